package rules

import (
	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
)

func recipeRules() []Rule {
	b := binder{artifact: artifact.Dockerfile, kind: artifact.KindRecipe, prefix: "recipe"}

	return []Rule{
		b.rule("not-empty", "Dockerfile is not empty", NotEmpty()),
		b.rule("from", "has a FROM instruction", InstructionCount(1, "FROM")),
		b.rule("named-stage", "names a build stage (FROM ... AS name)", Predicate(func(v *extract.RecipeView) Verdict {
			if len(v.StageNames()) == 0 {
				return Fail("no FROM instruction names its stage")
			}
			return Pass()
		})),
		b.rule("multi-stage", "uses a multi-stage build",
			Count("FROM instructions", 2, (*extract.RecipeView).Stages)),
		b.rule("run", "installs dependencies with RUN", InstructionCount(1, "RUN")),
		b.rule("apt-clean", "cleans the apt cache", Presence(Literal("apt-get clean"))),
		b.rule("apt-lists-removed", "removes apt lists", Presence(Regex(`rm\s+-rf\s+/var/lib/apt/lists`))),
		b.rule("builds-app", "builds the application with make or qmake", Presence(Regex(`\bq?make\b`))),
		b.rule("expose", "exposes ports", InstructionCount(1, "EXPOSE")),
		b.rule("workdir", "sets a working directory", InstructionCount(1, "WORKDIR")),
		b.rule("copies-files", "copies files into the image", InstructionCount(1, "COPY", "ADD")),
		b.rule("entrypoint", "declares an ENTRYPOINT or CMD", InstructionCount(1, "ENTRYPOINT", "CMD")),
		b.rule("creates-user", "creates a non-root user", Presence(Regex(`\buseradd\b`))),
		b.rule("env", "sets environment variables", InstructionCount(1, "ENV")),
		b.rule("noninteractive-frontend", "runs apt non-interactively", Presence(Literal("DEBIAN_FRONTEND=noninteractive"))),
		b.rule("no-sudo", "does not use sudo", Absence(Regex(`\bsudo\b`))),
		b.rule("supervisord-config", "copies supervisord.conf", Presence(Literal("supervisord.conf"))),
		b.rule("entrypoint-script", "copies entrypoint.sh", Presence(Literal("entrypoint.sh"))),
		b.rule("entrypoint-executable", "makes the entrypoint executable",
			Presence(Regex(`chmod\s+(\+x|0?755)\b`))),
		b.rule("copies-docs", "ships the documentation", Presence(Regex(`\bdocs\b`))),
	}
}

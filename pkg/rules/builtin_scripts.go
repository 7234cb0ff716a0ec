package rules

import (
	"github.com/openfroyo/conformance/pkg/artifact"
)

var (
	bashShebang   = Regex(`\A#![^\n]*\bbash\b`)
	errorHandling = AnyOf(Regex(`\bset\s+-[a-z]*e`), Literal("exit 1"), Literal("|| exit"))
)

func script(name, prefix string) binder {
	return binder{artifact: name, kind: artifact.KindScript, prefix: "script." + prefix}
}

func scriptRules() []Rule {
	var all []Rule
	all = append(all, entrypointRules()...)
	all = append(all, deployRules()...)
	all = append(all, multiUserRules()...)
	all = append(all, redeployRules()...)
	all = append(all, publishRules()...)
	return all
}

func entrypointRules() []Rule {
	b := script(artifact.EntrypointScript, "entrypoint")

	return []Rule{
		b.rule("syntax", "entrypoint.sh passes bash -n", Syntax()),
		b.rule("error-handling", "exits on errors", Presence(errorHandling)),
		b.rule("vnc-password-check", "refuses to start when VNC_PASSWORD is not set",
			Presence(AllOf(Literal("VNC_PASSWORD"), Literal("not set")))),
		b.rule("vnc-dirs", "creates the .vnc directory", Presence(Literal(".vnc"))),
		b.rule("vncpasswd", "sets the VNC password with vncpasswd", Presence(Regex(`\bvncpasswd\b`))),
		b.rule("shebang", "starts with a bash shebang", Presence(bashShebang)),
	}
}

func deployRules() []Rule {
	b := script(artifact.DeployScript, "deploy")

	return []Rule{
		b.rule("syntax", "deploy.sh passes bash -n", Syntax()),
		b.rule("error-handling", "exits on errors", Presence(AnyOf(Regex(`\bset\s+-[a-z]*e`), Regex(`\bexit\b`)))),
		b.rule("mkdir", "creates required directories", Invocation("mkdir")),
		b.rule("network-create", "creates the Docker network", Invocation("docker", "network", "create")),
		b.rule("volume-create", "creates the Docker volume", Invocation("docker", "volume", "create")),
		b.rule("shebang", "starts with a bash shebang", Presence(bashShebang)),
	}
}

func multiUserRules() []Rule {
	b := script(artifact.MultiUserScript, "multi-user")

	return []Rule{
		b.rule("syntax", "multi_user_manager.sh passes bash -n", Syntax()),
		b.rule("username-validation", "validates USERNAME against [a-z0-9]",
			Presence(AllOf(Literal("USERNAME"), Literal("[a-z0-9]")))),
		b.rule("env-file", "checks for the .env file", Presence(Literal(".env"))),
		b.rule("docker-run", "starts user containers with docker run", Invocation("docker", "run")),
		b.rule("nginx-config", "writes per-user nginx configuration",
			Presence(AnyOf(Literal("CONFIG_DIR"), Literal("proxy_pass"), Literal(".conf")))),
		b.rule("nginx-reload", "reloads nginx", Presence(Regex(`\bnginx\b`))),
		b.rule("config-dir", "assigns CONFIG_DIR", Assignment("CONFIG_DIR")),
	}
}

func redeployRules() []Rule {
	b := script(artifact.RedeployScript, "redeploy")

	return []Rule{
		b.rule("syntax", "update_and_redeploy.sh passes bash -n", Syntax()),
		b.rule("docker-pull", "pulls the latest image", Invocation("docker", "pull")),
		b.rule("docs", "updates the documentation", Presence(Regex(`(?i)docs`))),
		b.rule("restart", "restarts the containers", Any(
			Presence(Regex(`\bdocker[- ]compose\b[^\n]*\bup\b`)),
			Invocation("docker", "restart"),
			Invocation("docker", "run"),
		)),
		b.rule("registry-url", "uses REGISTRY_URL", Presence(Literal("REGISTRY_URL"))),
	}
}

func publishRules() []Rule {
	b := script(artifact.PublishAllScript, "publish")

	return []Rule{
		b.rule("syntax", "publish_all.sh passes bash -n", Syntax()),
		b.rule("version", "handles VERSION", Presence(Literal("VERSION"))),
		b.rule("version-file", "reads the VERSION file", Presence(AllOf(Literal("VERSION"), Regex(`\b(cat|read)\b`)))),
		b.rule("doxygen", "generates documentation with doxygen", Invocation("doxygen")),
		b.rule("docs-check", "verifies index.html was generated", Presence(Literal("index.html"))),
		b.rule("git-push", "pushes to git", Invocation("git", "push")),
		b.rule("git-tag", "tags the release", Invocation("git", "tag")),
		b.rule("docker-build", "builds the Docker image", Invocation("docker", "build")),
		b.rule("docker-push", "pushes the image to the registry", Invocation("docker", "push")),
		b.rule("prompt", "prompts for input with read", Invocation("read")),
	}
}

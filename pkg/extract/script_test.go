package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/conformance/pkg/artifact"
)

type stubChecker struct {
	result SyntaxResult
	err    error
	calls  int
}

func (s *stubChecker) Check(ctx context.Context, script string) (SyntaxResult, error) {
	s.calls++
	return s.result, s.err
}

const deployScript = `#!/bin/bash
set -e

CONFIG_DIR=/opt/tikzit/nginx
export REGISTRY_URL="registry.example.com"

mkdir -p "$CONFIG_DIR"
docker network create tikzit_net || true
if ! docker volume inspect certs >/dev/null 2>&1; then
    docker volume create certs
fi
echo "done: $(git rev-parse HEAD)"
`

func TestExtractScript(t *testing.T) {
	checker := &stubChecker{result: SyntaxResult{OK: true}}
	v, err := ExtractScript(context.Background(), newArtifact(artifact.DeployScript, artifact.KindScript, deployScript), checker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if checker.calls != 1 {
		t.Errorf("expected checker to run once, got %d", checker.calls)
	}
	if !v.Syntax.OK || v.SyntaxErr != nil {
		t.Errorf("expected clean syntax result, got %+v %v", v.Syntax, v.SyntaxErr)
	}
	if v.Shebang != "#!/bin/bash" {
		t.Errorf("unexpected shebang %q", v.Shebang)
	}

	var names []string
	for _, a := range v.Assignments {
		names = append(names, a.Name)
	}
	if diff := cmp.Diff([]string{"CONFIG_DIR", "REGISTRY_URL"}, names); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}
	if v.Assignments[1].Value != "registry.example.com" {
		t.Errorf("expected quotes stripped from value, got %q", v.Assignments[1].Value)
	}
	if !v.Assigned("CONFIG_DIR") || v.Assigned("VERSION") {
		t.Error("unexpected Assigned result")
	}

	if len(v.Invocations("docker", "network", "create")) != 1 {
		t.Error("expected docker network create invocation")
	}
	if len(v.Invocations("docker", "volume", "create")) != 1 {
		t.Error("expected docker volume create invocation nested in if")
	}
	if len(v.Invocations("git", "rev-parse")) != 1 {
		t.Error("expected git invocation inside command substitution")
	}
	if len(v.Invocations("docker", "pull")) != 0 {
		t.Error("expected no docker pull invocation")
	}

	mkdir := v.Invocations("mkdir")
	if len(mkdir) != 1 {
		t.Fatalf("expected one mkdir, got %d", len(mkdir))
	}
	if diff := cmp.Diff([]string{"-p", "$CONFIG_DIR"}, mkdir[0].Args); diff != "" {
		t.Errorf("mkdir args mismatch (-want +got):\n%s", diff)
	}
	if mkdir[0].Line != 7 {
		t.Errorf("expected mkdir on line 7, got %d", mkdir[0].Line)
	}
}

func TestExtractScriptCheckerFailure(t *testing.T) {
	checker := &stubChecker{err: artifact.NewToolError("failed to run bash -n", errors.New("not found"))}
	v, err := ExtractScript(context.Background(), newArtifact(artifact.EntrypointScript, artifact.KindScript, "echo hi\n"), checker)
	if err != nil {
		t.Fatalf("checker failure must not fail extraction: %v", err)
	}
	if !artifact.IsTool(v.SyntaxErr) {
		t.Errorf("expected tool error on view, got %v", v.SyntaxErr)
	}
	if len(v.Invocations("echo")) != 1 {
		t.Error("expected commands to be extracted despite checker failure")
	}
}

func TestExtractScriptNoChecker(t *testing.T) {
	v, err := ExtractScript(context.Background(), newArtifact(artifact.EntrypointScript, artifact.KindScript, "true\n"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !artifact.IsTool(v.SyntaxErr) {
		t.Errorf("expected tool error without a checker, got %v", v.SyntaxErr)
	}
	if v.Shebang != "" {
		t.Errorf("expected no shebang, got %q", v.Shebang)
	}
}

func TestExtractScriptRepeated(t *testing.T) {
	a := newArtifact(artifact.DeployScript, artifact.KindScript, deployScript)

	// Each extraction owns and releases its parser and tree.
	for i := 0; i < 200; i++ {
		v, err := ExtractScript(context.Background(), a, &stubChecker{result: SyntaxResult{OK: true}})
		if err != nil {
			t.Fatalf("extraction %d failed: %v", i, err)
		}
		if len(v.Assignments) != 2 || len(v.Invocations("docker", "network", "create")) != 1 {
			t.Fatalf("extraction %d gave a different view: %d assignments", i, len(v.Assignments))
		}
	}
}

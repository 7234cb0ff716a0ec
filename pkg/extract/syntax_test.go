package extract

import (
	"context"
	"os/exec"
	"testing"

	"github.com/openfroyo/conformance/pkg/artifact"
)

func TestBashChecker(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}

	checker := NewBashChecker("")
	ctx := context.Background()

	tests := []struct {
		name   string
		script string
		ok     bool
	}{
		{name: "valid", script: "#!/bin/bash\nset -e\nif true; then echo ok; fi\n", ok: true},
		{name: "empty", script: "", ok: true},
		{name: "unterminated if", script: "if true; then\n  echo broken\n", ok: false},
		{name: "unbalanced quote", script: "echo \"never closed\n", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := checker.Check(ctx, tt.script)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.OK != tt.ok {
				t.Errorf("expected ok=%v, got %+v", tt.ok, result)
			}
			if !tt.ok && result.Diagnostic == "" {
				t.Error("expected a diagnostic for invalid scripts")
			}
		})
	}
}

func TestBashCheckerMissingInterpreter(t *testing.T) {
	checker := NewBashChecker("definitely-not-a-shell-binary")

	_, err := checker.Check(context.Background(), "echo hi\n")
	if !artifact.IsTool(err) {
		t.Fatalf("expected tool error, got %v", err)
	}
}

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/openfroyo/conformance/pkg/artifact"
)

// SyntaxResult is the outcome of an external syntax check.
type SyntaxResult struct {
	OK         bool   `json:"ok"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// SyntaxChecker validates script syntax without executing the script.
type SyntaxChecker interface {
	// Check returns the checker's verdict. A non-nil error means the checker
	// itself could not run and is classified as ErrorClassTool.
	Check(ctx context.Context, script string) (SyntaxResult, error)
}

// BashChecker runs "<shell> -n" with the script on stdin.
type BashChecker struct {
	shell string
}

// NewBashChecker creates a checker for the given interpreter. An empty shell
// defaults to "bash".
func NewBashChecker(shell string) *BashChecker {
	if shell == "" {
		shell = "bash"
	}
	return &BashChecker{shell: shell}
}

// Check implements SyntaxChecker. The script is valid only when the
// interpreter exits 0 with an empty diagnostic; otherwise the diagnostic is
// returned verbatim.
func (c *BashChecker) Check(ctx context.Context, script string) (SyntaxResult, error) {
	cmd := exec.CommandContext(ctx, c.shell, "-n")
	cmd.Stdin = strings.NewReader(script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	diagnostic := stderr.String()
	if diagnostic == "" {
		diagnostic = stdout.String()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			if diagnostic == "" {
				diagnostic = fmt.Sprintf("%s -n exited with status %d", c.shell, exitErr.ExitCode())
			}
			return SyntaxResult{OK: false, Diagnostic: diagnostic}, nil
		}
		if ctx.Err() != nil {
			return SyntaxResult{}, artifact.NewCancelledError("syntax check aborted", ctx.Err())
		}
		return SyntaxResult{}, artifact.NewToolError(fmt.Sprintf("failed to run %s -n", c.shell), err)
	}

	if diagnostic != "" {
		return SyntaxResult{OK: false, Diagnostic: diagnostic}, nil
	}
	return SyntaxResult{OK: true}, nil
}

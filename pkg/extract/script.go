package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"

	"github.com/openfroyo/conformance/pkg/artifact"
)

// Assignment is a variable assignment such as CONFIG_DIR=/etc/nginx.
type Assignment struct {
	Name  string
	Value string
	Line  int
}

// Command is a simple command invocation with its arguments.
type Command struct {
	Name string
	Args []string
	Line int
}

// ScriptView is the structural view of an operator shell script.
type ScriptView struct {
	base

	// Syntax is the external checker's verdict. It is meaningful only when
	// SyntaxErr is nil.
	Syntax SyntaxResult

	// SyntaxErr is set when the checker could not be run at all.
	SyntaxErr error

	// Shebang is the first line when it starts with "#!".
	Shebang string

	// Assignments and Commands are in textual order.
	Assignments []Assignment
	Commands    []Command
}

// ExtractScript runs the syntax checker and parses the script with the bash
// grammar. The returned error is non-nil only when the context is cancelled;
// checker failures are carried on the view.
func ExtractScript(ctx context.Context, a *artifact.Artifact, checker SyntaxChecker) (*ScriptView, error) {
	v := &ScriptView{base: base{artifact: a}}

	if first, _, _ := strings.Cut(a.Text(), "\n"); strings.HasPrefix(first, "#!") {
		v.Shebang = strings.TrimSpace(first)
	}

	if checker == nil {
		v.SyntaxErr = artifact.NewToolError("no syntax checker configured", nil).WithArtifact(a.Name())
	} else {
		v.Syntax, v.SyntaxErr = checker.Check(ctx, a.Text())
	}

	src := []byte(a.Text())
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(bash.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, artifact.NewCancelledError(fmt.Sprintf("failed to parse %s", a.Location()), err).WithArtifact(a.Name())
	}
	defer tree.Close()

	v.walk(tree.RootNode(), src)
	return v, nil
}

func (v *ScriptView) walk(node *sitter.Node, src []byte) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "variable_assignment":
			a := Assignment{Line: int(child.StartPoint().Row) + 1}
			if name := child.ChildByFieldName("name"); name != nil {
				a.Name = name.Content(src)
			}
			if value := child.ChildByFieldName("value"); value != nil {
				a.Value = unquote(value, src)
			}
			v.Assignments = append(v.Assignments, a)

		case "command":
			v.Commands = append(v.Commands, parseCommand(child, src))
		}

		v.walk(child, src)
	}
}

func parseCommand(node *sitter.Node, src []byte) Command {
	cmd := Command{Line: int(node.StartPoint().Row) + 1}

	if name := node.ChildByFieldName("name"); name != nil {
		cmd.Name = unquote(name, src)
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "command_name", "variable_assignment", "file_redirect", "heredoc_redirect", "herestring_redirect":
			continue
		}
		cmd.Args = append(cmd.Args, unquote(child, src))
	}
	return cmd
}

// unquote returns the node text with one level of surrounding quotes
// removed.
func unquote(node *sitter.Node, src []byte) string {
	text := node.Content(src)
	switch node.Type() {
	case "string", "raw_string":
		if len(text) >= 2 {
			return text[1 : len(text)-1]
		}
	case "command_name":
		if node.NamedChildCount() == 1 {
			return unquote(node.NamedChild(0), src)
		}
	}
	return text
}

// Assigned reports whether name is assigned anywhere in the script.
func (v *ScriptView) Assigned(name string) bool {
	for _, a := range v.Assignments {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Invocations returns the commands named name whose leading arguments equal
// prefix, e.g. Invocations("docker", "network", "create").
func (v *ScriptView) Invocations(name string, prefix ...string) []Command {
	var out []Command
	for _, c := range v.Commands {
		if c.Name != name || len(c.Args) < len(prefix) {
			continue
		}
		match := true
		for i, p := range prefix {
			if c.Args[i] != p {
				match = false
				break
			}
		}
		if match {
			out = append(out, c)
		}
	}
	return out
}

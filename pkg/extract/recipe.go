package extract

import (
	"strings"

	"github.com/openfroyo/conformance/pkg/artifact"
)

// stageVerb starts a new build stage.
const stageVerb = "FROM"

// Instruction is one logical recipe instruction after continuation lines
// have been joined.
type Instruction struct {
	// Verb is the upper-cased leading token ("RUN").
	Verb string

	// Args is the remainder of the instruction.
	Args string

	// Line is the 1-based line the instruction starts on.
	Line int
}

// RecipeView is the structural view of a container build recipe.
type RecipeView struct {
	base
	Instructions []Instruction
}

// ExtractRecipe splits the text into instructions. A trailing backslash
// joins the next line; comment and blank lines are skipped, including inside
// a continuation.
func ExtractRecipe(a *artifact.Artifact) *RecipeView {
	v := &RecipeView{base: base{artifact: a}}

	var (
		parts []string
		start int
	)

	finish := func() {
		if len(parts) == 0 {
			return
		}
		logical := strings.Join(parts, " ")
		parts = nil

		verb, args := logical, ""
		if idx := strings.IndexAny(logical, " \t"); idx >= 0 {
			verb, args = logical[:idx], logical[idx+1:]
		}
		v.Instructions = append(v.Instructions, Instruction{
			Verb: strings.ToUpper(verb),
			Args: strings.TrimSpace(args),
			Line: start,
		})
	}

	for n, raw := range strings.Split(a.Text(), "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if len(parts) == 0 {
			start = n + 1
		}

		continued := strings.HasSuffix(line, "\\")
		if continued {
			line = strings.TrimSpace(strings.TrimSuffix(line, "\\"))
		}
		if line != "" {
			parts = append(parts, line)
		}

		if !continued {
			finish()
		}
	}
	finish()

	return v
}

// Count returns the number of instructions whose verb is one of verbs.
func (v *RecipeView) Count(verbs ...string) int {
	n := 0
	for _, inst := range v.Instructions {
		for _, verb := range verbs {
			if inst.Verb == strings.ToUpper(verb) {
				n++
				break
			}
		}
	}
	return n
}

// Find returns the instructions with the given verb.
func (v *RecipeView) Find(verb string) []Instruction {
	var out []Instruction
	for _, inst := range v.Instructions {
		if inst.Verb == strings.ToUpper(verb) {
			out = append(out, inst)
		}
	}
	return out
}

// Stages returns the number of stage-starting instructions.
func (v *RecipeView) Stages() int {
	return v.Count(stageVerb)
}

// StageNames returns the names given with "FROM image AS name", in order.
func (v *RecipeView) StageNames() []string {
	var names []string
	for _, inst := range v.Find(stageVerb) {
		fields := strings.Fields(inst.Args)
		for i := 0; i+1 < len(fields); i++ {
			if strings.EqualFold(fields[i], "AS") {
				names = append(names, fields[i+1])
				break
			}
		}
	}
	return names
}

package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/openfroyo/conformance/pkg/artifact"
	"github.com/openfroyo/conformance/pkg/extract"
)

// Option adjusts a scoped rule.
type Option func(*options)

type options struct {
	skipIfAbsent bool
	notNull      bool
}

// SkipIfAbsent makes a scoped rule pass when its scope does not exist. The
// separate rule asserting the scope's existence is then the only one to
// report the absence.
func SkipIfAbsent() Option {
	return func(o *options) { o.skipIfAbsent = true }
}

// NotNull makes Key reject a present key whose value is null.
func NotNull() Option {
	return func(o *options) { o.notNull = true }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// as asserts the concrete view type a check needs.
func as[V extract.View](view extract.View) (V, error) {
	v, ok := view.(V)
	if !ok {
		var zero V
		return zero, artifact.NewInternalError(fmt.Sprintf("rule expects %T, got %T", zero, view), nil)
	}
	return v, nil
}

// NotEmpty requires the artifact to contain non-whitespace text.
func NotEmpty() CheckFunc {
	return func(_ context.Context, view extract.View) Verdict {
		if strings.TrimSpace(view.Artifact().Text()) == "" {
			return Fail("%s is empty", view.Artifact().Name())
		}
		return Pass()
	}
}

// Presence requires m to match somewhere in the raw text.
func Presence(m Matcher) CheckFunc {
	return func(_ context.Context, view extract.View) Verdict {
		if m.Find(view.Artifact().Text()) < 0 {
			return Fail("expected %s", m)
		}
		return Pass()
	}
}

// Absence forbids m anywhere in the raw text.
func Absence(m Matcher) CheckFunc {
	return func(_ context.Context, view extract.View) Verdict {
		text := view.Artifact().Text()
		if off := m.Find(text); off >= 0 {
			return Fail("%s must not appear (found on line %d)", m, lineOf(text, off))
		}
		return Pass()
	}
}

// ScopedPresence requires m to match inside scope. A missing scope fails
// unless SkipIfAbsent is given.
func ScopedPresence(scope Scope, m Matcher, opts ...Option) CheckFunc {
	o := collect(opts)
	return func(_ context.Context, view extract.View) Verdict {
		bodies, found, err := scope.Bodies(view)
		if err != nil {
			return ErrorFrom(err)
		}
		if !found {
			if o.skipIfAbsent {
				return Pass()
			}
			return Fail("%s not found", scope)
		}
		for _, body := range bodies {
			if m.Find(body) >= 0 {
				return Pass()
			}
		}
		return Fail("expected %s within %s", m, scope)
	}
}

// Count requires count(view) >= least. what names the counted thing in the
// failure reason.
func Count[V extract.View](what string, least int, count func(V) int) CheckFunc {
	return func(_ context.Context, view extract.View) Verdict {
		v, err := as[V](view)
		if err != nil {
			return ErrorFrom(err)
		}
		if n := count(v); n < least {
			return Fail("expected at least %d %s, found %d", least, what, n)
		}
		return Pass()
	}
}

// Predicate adapts a typed function into a check.
func Predicate[V extract.View](fn func(V) Verdict) CheckFunc {
	return func(_ context.Context, view extract.View) Verdict {
		v, err := as[V](view)
		if err != nil {
			return ErrorFrom(err)
		}
		return fn(v)
	}
}

// BlockCount requires the given number of blocks with keyword, or more.
func BlockCount(keyword string, least int) CheckFunc {
	return Count(keyword+" block(s)", least, func(v *extract.ProxyView) int {
		return len(v.Find(keyword))
	})
}

// LocationBlock requires a location block for the given path.
func LocationBlock(path string) CheckFunc {
	return Count("location "+path+" block(s)", 1, func(v *extract.ProxyView) int {
		return len(v.FindWithArg("location", path))
	})
}

// TopLevelBlock fails when a block with keyword is nested inside another
// block. A config without such a block passes.
func TopLevelBlock(keyword string) CheckFunc {
	return Predicate(func(v *extract.ProxyView) Verdict {
		for _, b := range v.Find(keyword) {
			if b.Depth > 0 {
				return Fail("%s block on line %d is nested at depth %d", keyword, lineOf(v.Artifact().Text(), b.Start), b.Depth)
			}
		}
		return Pass()
	})
}

// InstructionCount requires least or more instructions with any of verbs.
func InstructionCount(least int, verbs ...string) CheckFunc {
	return Count(strings.Join(verbs, "/")+" instruction(s)", least, func(v *extract.RecipeView) int {
		return v.Count(verbs...)
	})
}

// SectionDefined requires a section with the given header.
func SectionDefined(name string) CheckFunc {
	return Predicate(func(v *extract.SectionView) Verdict {
		if _, ok := v.Lookup(name); !ok {
			return Fail("section [%s] not found", name)
		}
		return Pass()
	})
}

// Key requires a dotted manifest path to be present. With NotNull the value
// must also be non-null; with SkipIfAbsent the rule passes when the path's
// parent is missing.
func Key(path string, opts ...Option) CheckFunc {
	o := collect(opts)
	return Predicate(func(v *extract.ManifestView) Verdict {
		if o.skipIfAbsent {
			if idx := strings.LastIndex(path, "."); idx > 0 {
				if _, ok := v.Lookup(path[:idx]); !ok {
					return Pass()
				}
			}
		}
		node, ok := v.Lookup(path)
		if !ok {
			return Fail("%s is not defined", path)
		}
		if o.notNull && node == nil {
			return Fail("%s is empty", path)
		}
		return Pass()
	})
}

// NonEmptyMapping requires a dotted manifest path to hold a mapping with at
// least one entry.
func NonEmptyMapping(path string) CheckFunc {
	return Predicate(func(v *extract.ManifestView) Verdict {
		node, ok := v.Lookup(path)
		if !ok {
			return Fail("%s is not defined", path)
		}
		m, ok := node.(map[string]any)
		if !ok {
			return Fail("%s must be a mapping", path)
		}
		if len(m) == 0 {
			return Fail("%s defines no entries", path)
		}
		return Pass()
	})
}

// Invocation requires the script to invoke name with the given leading
// arguments, e.g. Invocation("docker", "network", "create").
func Invocation(name string, args ...string) CheckFunc {
	want := strings.TrimSpace(name + " " + strings.Join(args, " "))
	return Predicate(func(v *extract.ScriptView) Verdict {
		if len(v.Invocations(name, args...)) == 0 {
			return Fail("expected %q to be invoked", want)
		}
		return Pass()
	})
}

// Assignment requires the script to assign the named variable.
func Assignment(name string) CheckFunc {
	return Predicate(func(v *extract.ScriptView) Verdict {
		if !v.Assigned(name) {
			return Fail("expected variable %s to be assigned", name)
		}
		return Pass()
	})
}

// Syntax reports the external syntax checker's result. A checker that could
// not run yields Error; a rejected script fails with the diagnostic verbatim.
func Syntax() CheckFunc {
	return Predicate(func(v *extract.ScriptView) Verdict {
		if v.SyntaxErr != nil {
			return ErrorFrom(v.SyntaxErr)
		}
		if !v.Syntax.OK {
			return Verdict{Status: StatusFail, Reason: v.Syntax.Diagnostic}
		}
		return Pass()
	})
}

// Any passes when at least one check passes. Otherwise it fails with the
// joined reasons, or errors if every alternative errored.
func Any(checks ...CheckFunc) CheckFunc {
	return func(ctx context.Context, view extract.View) Verdict {
		var reasons []string
		errored := 0
		for _, check := range checks {
			v := check(ctx, view)
			switch v.Status {
			case StatusPass:
				return v
			case StatusError:
				errored++
			}
			reasons = append(reasons, v.Reason)
		}
		if errored == len(checks) && errored > 0 {
			return Errorf("%s", strings.Join(reasons, "; "))
		}
		return Fail("%s", strings.Join(reasons, "; or "))
	}
}

package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher locates a pattern in text.
type Matcher interface {
	// Find returns the offset of the first match, or -1.
	Find(text string) int

	// String describes the pattern for failure reasons.
	String() string
}

type literal string

// Literal matches an exact substring.
func Literal(s string) Matcher { return literal(s) }

func (l literal) Find(text string) int { return strings.Index(text, string(l)) }
func (l literal) String() string       { return fmt.Sprintf("%q", string(l)) }

type pattern struct {
	re *regexp.Regexp
}

// Regex matches a regular expression. It panics on an invalid expression,
// so it is only used for catalog literals.
func Regex(expr string) Matcher {
	return pattern{re: regexp.MustCompile(expr)}
}

func (p pattern) Find(text string) int {
	loc := p.re.FindStringIndex(text)
	if loc == nil {
		return -1
	}
	return loc[0]
}

func (p pattern) String() string { return "/" + p.re.String() + "/" }

type anyOf []Matcher

// AnyOf matches when at least one matcher matches; Find returns the earliest
// offset.
func AnyOf(ms ...Matcher) Matcher { return anyOf(ms) }

func (a anyOf) Find(text string) int {
	best := -1
	for _, m := range a {
		if off := m.Find(text); off >= 0 && (best < 0 || off < best) {
			best = off
		}
	}
	return best
}

func (a anyOf) String() string { return join(a, " or ") }

type allOf []Matcher

// AllOf matches when every matcher matches; Find returns the offset of the
// first matcher's match.
func AllOf(ms ...Matcher) Matcher { return allOf(ms) }

func (a allOf) Find(text string) int {
	first := -1
	for i, m := range a {
		off := m.Find(text)
		if off < 0 {
			return -1
		}
		if i == 0 {
			first = off
		}
	}
	return first
}

func (a allOf) String() string { return join(a, " and ") }

func join(ms []Matcher, sep string) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return strings.Join(parts, sep)
}

// lineOf returns the 1-based line containing offset.
func lineOf(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}

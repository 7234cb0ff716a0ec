package extract

import (
	"regexp"
	"strings"

	"github.com/openfroyo/conformance/pkg/artifact"
)

// headerPattern matches a complete section header line such as
// "[program:vncserver]".
var headerPattern = regexp.MustCompile(`^\[[\w:.\-]+\]$`)

// Section is one occurrence of a named section. Repeated headers produce
// independent Section values.
type Section struct {
	// Name is the header without brackets ("program:vncserver").
	Name string

	// Line is the 1-based line of the header.
	Line int

	// Start is the offset of the header; End is the offset of the next
	// header or the end of the text.
	Start int
	End   int

	// Body is the text after the header line up to End.
	Body string

	// Values holds key=value pairs. Keys lists them in first-seen order.
	Values map[string]string
	Keys   []string
}

// Get returns the value of key within the section.
func (s *Section) Get(key string) (string, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// LineIssue is a single offending line with the reason it was rejected.
type LineIssue struct {
	Number int
	Text   string
	Reason string
}

// SectionView is the structural view of an INI-style supervisor configuration.
type SectionView struct {
	base

	// Sections are in textual order and never overlap.
	Sections []Section

	// Malformed lists lines that are neither a header, a comment, a
	// key=value pair nor an indented continuation.
	Malformed []LineIssue

	// InvalidHeaders lists bracketed lines that do not match the header
	// pattern.
	InvalidHeaders []LineIssue
}

// ExtractSections splits the text into sections at header lines. Each
// section's body runs from just after its header to the next valid header.
func ExtractSections(a *artifact.Artifact) *SectionView {
	text := a.Text()
	v := &SectionView{base: base{artifact: a}}

	cur := -1
	bodyStart := 0
	lastKey := ""
	offset := 0

	closeSection := func(end int) {
		if cur >= 0 {
			v.Sections[cur].End = end
			v.Sections[cur].Body = text[bodyStart:end]
		}
	}

	for n, raw := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(raw)

		line := strings.TrimRight(raw, "\r\n")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "", strings.HasPrefix(trimmed, ";"), strings.HasPrefix(trimmed, "#"):
			continue

		case strings.HasPrefix(trimmed, "["):
			if !headerPattern.MatchString(trimmed) {
				v.InvalidHeaders = append(v.InvalidHeaders, LineIssue{Number: n + 1, Text: trimmed, Reason: "invalid section header"})
				continue
			}
			closeSection(lineStart)
			v.Sections = append(v.Sections, Section{
				Name:   trimmed[1 : len(trimmed)-1],
				Line:   n + 1,
				Start:  lineStart,
				Values: make(map[string]string),
			})
			cur = len(v.Sections) - 1
			bodyStart = offset
			lastKey = ""

		case (line[0] == ' ' || line[0] == '\t') && cur >= 0 && lastKey != "":
			sec := &v.Sections[cur]
			sec.Values[lastKey] += "\n" + trimmed

		default:
			key, value, ok := strings.Cut(trimmed, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				v.Malformed = append(v.Malformed, LineIssue{Number: n + 1, Text: trimmed, Reason: "expected key=value"})
				continue
			}
			if cur < 0 {
				v.Malformed = append(v.Malformed, LineIssue{Number: n + 1, Text: trimmed, Reason: "key outside of any section"})
				continue
			}

			value = strings.TrimSpace(value)
			if idx := strings.Index(value, " ;"); idx >= 0 {
				value = strings.TrimSpace(value[:idx])
			}

			sec := &v.Sections[cur]
			if _, seen := sec.Values[key]; !seen {
				sec.Keys = append(sec.Keys, key)
			}
			sec.Values[key] = value
			lastKey = key
		}
	}

	closeSection(len(text))
	return v
}

// Lookup returns the first section with the given name.
func (v *SectionView) Lookup(name string) (*Section, bool) {
	for i := range v.Sections {
		if v.Sections[i].Name == name {
			return &v.Sections[i], true
		}
	}
	return nil, false
}

// Names returns the section names in textual order, repeats included.
func (v *SectionView) Names() []string {
	names := make([]string, len(v.Sections))
	for i, s := range v.Sections {
		names[i] = s.Name
	}
	return names
}

// Duplicates returns the names declared more than once, in order of their
// first declaration.
func (v *SectionView) Duplicates() []string {
	counts := make(map[string]int, len(v.Sections))
	var order []string
	for _, s := range v.Sections {
		if counts[s.Name] == 0 {
			order = append(order, s.Name)
		}
		counts[s.Name]++
	}

	var dups []string
	for _, name := range order {
		if counts[name] > 1 {
			dups = append(dups, name)
		}
	}
	return dups
}

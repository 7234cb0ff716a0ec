package extract

import (
	"sort"
	"strings"

	"github.com/openfroyo/conformance/pkg/artifact"
)

// Block is a brace-delimited block such as "server { ... }".
type Block struct {
	// Keyword is the first token of the block header ("server", "location").
	Keyword string

	// Args are the remaining header tokens, with quotes removed.
	Args []string

	// Start is the byte offset of the header; End is the offset just past the
	// closing brace, or the end of the text for an unclosed block.
	Start int
	End   int

	// Body is the text between the braces.
	Body string

	// Depth is the nesting level; top-level blocks have depth 0.
	Depth int

	// Closed is false when the text ended before the block's closing brace.
	Closed bool
}

// Directive is a single semicolon-terminated statement.
type Directive struct {
	Name   string
	Args   []string
	Offset int
	Depth  int
}

// ProxyView is the structural view of a reverse-proxy configuration.
type ProxyView struct {
	base

	// Blocks are ordered by header offset.
	Blocks []Block

	// Directives are in textual order.
	Directives []Directive

	// OpenBraces and CloseBraces are raw character counts over the whole
	// text, comments and strings included.
	OpenBraces  int
	CloseBraces int

	// StrayCloses counts closing braces that had no open block.
	StrayCloses int
}

// ExtractProxy scans the text once, tracking a stack of open blocks so that
// nested blocks close at the brace matching their own depth. Comments and
// quoted strings are skipped for structure but still counted by the raw
// brace totals.
func ExtractProxy(a *artifact.Artifact) *ProxyView {
	text := a.Text()
	v := &ProxyView{
		base:        base{artifact: a},
		OpenBraces:  strings.Count(text, "{"),
		CloseBraces: strings.Count(text, "}"),
	}

	type frame struct {
		block     Block
		bodyStart int
	}

	var (
		stack     []frame
		tokens    []string
		tok       strings.Builder
		inToken   bool
		stmtStart = -1
		quote     byte
	)

	flush := func() {
		if inToken {
			tokens = append(tokens, tok.String())
			tok.Reset()
			inToken = false
		}
	}
	emit := func() {
		if len(tokens) > 0 {
			v.Directives = append(v.Directives, Directive{
				Name:   tokens[0],
				Args:   tokens[1:],
				Offset: stmtStart,
				Depth:  len(stack),
			})
		}
		tokens = nil
		stmtStart = -1
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			switch {
			case c == '\\' && i+1 < len(text):
				i++
				tok.WriteByte(text[i])
			case c == quote:
				quote = 0
			default:
				tok.WriteByte(c)
			}
			continue
		}

		switch c {
		case '#':
			if inToken {
				tok.WriteByte(c)
				continue
			}
			for i+1 < len(text) && text[i+1] != '\n' {
				i++
			}
		case '"', '\'':
			if stmtStart < 0 {
				stmtStart = i
			}
			quote = c
			inToken = true
		case ' ', '\t', '\r', '\n':
			flush()
		case ';':
			flush()
			emit()
		case '{':
			if inToken && strings.HasSuffix(tok.String(), "$") {
				// ${var} stays inside the token.
				end := strings.IndexByte(text[i:], '}')
				if end < 0 {
					end = len(text) - i - 1
				}
				tok.WriteString(text[i : i+end+1])
				i += end
				continue
			}
			flush()
			b := Block{Start: i, Depth: len(stack)}
			if len(tokens) > 0 {
				b.Keyword = tokens[0]
				b.Args = tokens[1:]
				b.Start = stmtStart
			}
			stack = append(stack, frame{block: b, bodyStart: i + 1})
			tokens = nil
			stmtStart = -1
		case '}':
			flush()
			emit()
			if len(stack) == 0 {
				v.StrayCloses++
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.block.End = i + 1
			top.block.Body = text[top.bodyStart:i]
			top.block.Closed = true
			v.Blocks = append(v.Blocks, top.block)
		default:
			if stmtStart < 0 {
				stmtStart = i
			}
			tok.WriteByte(c)
			inToken = true
		}
	}

	flush()
	emit()

	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		f.block.End = len(text)
		f.block.Body = text[f.bodyStart:]
		v.Blocks = append(v.Blocks, f.block)
	}

	sort.SliceStable(v.Blocks, func(i, j int) bool {
		return v.Blocks[i].Start < v.Blocks[j].Start
	})

	return v
}

// Find returns the blocks with the given keyword, in textual order.
func (v *ProxyView) Find(keyword string) []Block {
	var out []Block
	for _, b := range v.Blocks {
		if b.Keyword == keyword {
			out = append(out, b)
		}
	}
	return out
}

// FindWithArg returns the blocks with the given keyword that carry arg among
// their header arguments, e.g. FindWithArg("location", "/docs/").
func (v *ProxyView) FindWithArg(keyword, arg string) []Block {
	var out []Block
	for _, b := range v.Find(keyword) {
		for _, a := range b.Args {
			if a == arg {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// Lookup returns every directive with the given name.
func (v *ProxyView) Lookup(name string) []Directive {
	var out []Directive
	for _, d := range v.Directives {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

// Within returns the directives located inside b, at any depth.
func (v *ProxyView) Within(b Block) []Directive {
	var out []Directive
	for _, d := range v.Directives {
		if d.Offset > b.Start && d.Offset < b.End && d.Depth > b.Depth {
			out = append(out, d)
		}
	}
	return out
}

// Balanced reports whether the raw brace counts are equal.
func (v *ProxyView) Balanced() bool {
	return v.OpenBraces == v.CloseBraces
}

// Package structure finds section markers in generated text and arranges
// them into an outline.
package structure

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type Kind string

const (
	KindHeading  Kind = "heading"  // markdown ATX or setext heading
	KindAllCaps  Kind = "allcaps"  // SHOUTED LINE
	KindColon    Kind = "colon"    // Line ending with a colon:
	KindNumbered Kind = "numbered" // 2.3 Numbered title
)

// Marker is one line that looks like the start of a section.
type Marker struct {
	Line   int    `json:"line"` // zero-based
	Kind   Kind   `json:"kind"`
	Depth  int    `json:"depth"`
	Number string `json:"number,omitempty"`
	Title  string `json:"title"`
}

// maxMarkerLen bounds heuristic markers; longer lines are prose.
const maxMarkerLen = 80

var (
	// 2.3 Title, 2.3. Title
	dottedRe = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3})+)\.?\s+(\S.*)$`)
	// 2. Title, 2) Title
	listRe = regexp.MustCompile(`^(\d{1,3})[.)]\s+(\S.*)$`)
)

// Markers returns the section markers of text in line order. Markdown
// headings come from the goldmark parse; the remaining lines are checked for
// all-caps, colon-terminated and numbered headings. Lines inside code blocks
// are ignored.
func Markers(src string) []Marker {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	source := []byte(src)
	lineStarts := indexLines(source)

	headings := map[int]Marker{}
	skip := map[int]bool{}

	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	// the walker never returns an error
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			lines := n.Lines()
			if lines.Len() == 0 {
				return ast.WalkSkipChildren, nil
			}
			first := lineOf(lineStarts, lines.At(0).Start)
			last := lineOf(lineStarts, lines.At(lines.Len()-1).Start)
			setext := !bytes.HasPrefix(bytes.TrimLeft(lineBytes(source, lineStarts, first), " "), []byte("#"))
			if setext {
				// underline
				last++
			}
			for l := first; l <= last; l++ {
				skip[l] = true
			}
			headings[first] = Marker{
				Line:  first,
				Kind:  KindHeading,
				Depth: n.Level,
				Title: strings.TrimSpace(string(n.Text(source))),
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				skip[lineOf(lineStarts, lines.At(i).Start)] = true
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	var out []Marker
	for i := range lineStarts {
		if m, ok := headings[i]; ok {
			out = append(out, m)
			continue
		}
		if skip[i] {
			continue
		}
		if m, ok := classify(string(lineBytes(source, lineStarts, i))); ok {
			m.Line = i
			out = append(out, m)
		}
	}
	return out
}

// Count is len(Markers(text)).
func Count(text string) int {
	return len(Markers(text))
}

func classify(line string) (Marker, bool) {
	t := strings.TrimSpace(line)
	if t == "" || strings.HasPrefix(t, "#") || utf8.RuneCountInString(t) >= maxMarkerLen {
		return Marker{}, false
	}
	m := dottedRe.FindStringSubmatch(t)
	if m == nil {
		m = listRe.FindStringSubmatch(t)
	}
	if m != nil {
		return Marker{
			Kind:   KindNumbered,
			Depth:  strings.Count(m[1], ".") + 1,
			Number: m[1],
			Title:  strings.TrimSpace(m[2]),
		}, true
	}
	if IsAllCaps(t) && utf8.RuneCountInString(t) >= 3 {
		return Marker{Kind: KindAllCaps, Depth: 1, Title: t}, true
	}
	if strings.HasSuffix(t, ":") && len(t) > 1 {
		return Marker{Kind: KindColon, Depth: 2, Title: strings.TrimSuffix(t, ":")}, true
	}
	return Marker{}, false
}

// IsAllCaps reports whether s has at least one letter and no lowercase ones.
func IsAllCaps(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}

func indexLines(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' && i+1 < len(src) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineOf(starts []int, offset int) int {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func lineBytes(src []byte, starts []int, i int) []byte {
	if i >= len(starts) {
		return nil
	}
	end := len(src)
	if i+1 < len(starts) {
		end = starts[i+1]
	}
	return bytes.TrimRight(src[starts[i]:end], "\r\n")
}

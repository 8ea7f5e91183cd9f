// Package boundary finds natural cut points in text: paragraph breaks, line
// breaks, sentence ends and word gaps. The chunker and the paginator share it
// so both cut text the same way.
package boundary

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Direction selects which match inside a window a Rule reports.
type Direction int

const (
	// Last picks the final occurrence inside the window.
	Last Direction = iota
	// First picks the earliest occurrence inside the window.
	First
)

// Rule describes one kind of break. Exactly one of Literal or Pattern is set.
type Rule struct {
	Name    string
	Literal string
	Pattern *regexp.Regexp
	Dir     Direction
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s`)

// ChunkRules is the priority list used when closing a chunk.
var ChunkRules = []Rule{
	{Name: "paragraph", Literal: "\n\n", Dir: Last},
	{Name: "line", Literal: "\n", Dir: Last},
	{Name: "sentence", Literal: ". ", Dir: Last},
}

// PageRules is the priority list used when closing a display page.
var PageRules = []Rule{
	{Name: "paragraph", Literal: "\n\n", Dir: First},
	{Name: "line", Literal: "\n", Dir: Last},
	{Name: "sentence", Pattern: sentenceEnd, Dir: First},
	{Name: "word", Literal: " ", Dir: Last},
}

// Find searches text[start:end] for each rule in order and returns the byte
// offset just after the first rule's match. ok is false when no rule matches.
func Find(text string, start, end int, rules []Rule) (cut int, ok bool) {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return 0, false
	}
	window := text[start:end]
	for _, r := range rules {
		if at, n := r.locate(window); at >= 0 {
			return start + at + n, true
		}
	}
	return 0, false
}

// locate returns the match position and length inside s, or -1.
func (r Rule) locate(s string) (int, int) {
	if r.Pattern != nil {
		if r.Dir == First {
			loc := r.Pattern.FindStringIndex(s)
			if loc == nil {
				return -1, 0
			}
			return loc[0], loc[1] - loc[0]
		}
		all := r.Pattern.FindAllStringIndex(s, -1)
		if len(all) == 0 {
			return -1, 0
		}
		loc := all[len(all)-1]
		return loc[0], loc[1] - loc[0]
	}
	if r.Literal == "" {
		return -1, 0
	}
	var at int
	if r.Dir == First {
		at = strings.Index(s, r.Literal)
	} else {
		at = strings.LastIndex(s, r.Literal)
	}
	return at, len(r.Literal)
}

// Advance returns the byte offset n runes after from, stopping at len(text).
func Advance(text string, from, n int) int {
	i := from
	for ; n > 0 && i < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return i
}

// Retreat returns the byte offset n runes before from, stopping at 0.
func Retreat(text string, from, n int) int {
	i := from
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:i])
		i -= size
	}
	return i
}

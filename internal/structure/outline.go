package structure

import "strings"

type Section struct {
	Number   string    `json:"number,omitempty"`
	Title    string    `json:"title"`
	Kind     Kind      `json:"kind"`
	Depth    int       `json:"depth"`
	Line     int       `json:"line"`
	Children []Section `json:"children,omitempty"`
}

// Outline turns a flat marker list into a tree. A marker hangs under the
// closest earlier marker of smaller depth; numbered markers additionally
// need a numbering prefix match (2.1 under 2) when the candidate is numbered
// too. Markers without a parent become roots.
func Outline(markers []Marker) []Section {
	parents := make([]int, len(markers))
	for i, m := range markers {
		parents[i] = -1
		for j := i - 1; j >= 0; j-- {
			p := markers[j]
			if p.Depth >= m.Depth {
				continue
			}
			if m.Number != "" && p.Number != "" && !strings.HasPrefix(m.Number, p.Number+".") {
				continue
			}
			parents[i] = j
			break
		}
	}

	children := make([][]int, len(markers))
	var roots []int
	for i, p := range parents {
		if p == -1 {
			roots = append(roots, i)
			continue
		}
		children[p] = append(children[p], i)
	}

	var build func(i int) Section
	build = func(i int) Section {
		m := markers[i]
		s := Section{Number: m.Number, Title: m.Title, Kind: m.Kind, Depth: m.Depth, Line: m.Line}
		for _, c := range children[i] {
			s.Children = append(s.Children, build(c))
		}
		return s
	}
	out := make([]Section, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out
}

// Flatten lists the tree in document order.
func Flatten(sections []Section) []Section {
	var out []Section
	for _, s := range sections {
		kids := s.Children
		s.Children = nil
		out = append(out, s)
		out = append(out, Flatten(kids)...)
	}
	return out
}

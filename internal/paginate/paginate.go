// Package paginate cuts finished text into display pages.
package paginate

import (
	"strings"

	"github.com/thywilljoshua/haunted-syllabus/internal/boundary"
)

const (
	DefaultCharactersPerPage = 2000

	// searchRadius is how far either side of the raw cut a natural break may be.
	searchRadius = 200
)

// Paginate splits content into trimmed pages of roughly charactersPerPage
// runes, moving each cut to a nearby paragraph break, line break, sentence end
// or space. Non-blank content always yields at least one page.
func Paginate(content string, charactersPerPage int) []string {
	if strings.TrimSpace(content) == "" {
		return []string{}
	}
	if charactersPerPage <= 0 {
		charactersPerPage = DefaultCharactersPerPage
	}

	pages := []string{}
	cursor := 0
	for cursor < len(content) {
		end := boundary.Advance(content, cursor, charactersPerPage)
		if end < len(content) {
			searchStart := boundary.Retreat(content, end, searchRadius)
			if searchStart < cursor {
				searchStart = cursor
			}
			searchEnd := boundary.Advance(content, end, searchRadius)
			if cut, ok := boundary.Find(content, searchStart, searchEnd, boundary.PageRules); ok {
				end = cut
			}
		}

		if page := strings.TrimSpace(content[cursor:end]); page != "" {
			pages = append(pages, page)
		}
		cursor = end
	}

	if len(pages) == 0 {
		return []string{content}
	}
	return pages
}

// ClampPage keeps a 1-based page number inside 1..total.
func ClampPage(page, total int) int {
	if total < 1 || page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

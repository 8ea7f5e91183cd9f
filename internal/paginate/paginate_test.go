package paginate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestPaginate(t *testing.T) {
	t.Run("Should return no pages for blank content", func(t *testing.T) {
		assert.Empty(t, Paginate("", 100))
		assert.Empty(t, Paginate(" \n\t ", 100))
	})

	t.Run("Should return one trimmed page for short content", func(t *testing.T) {
		assert.Equal(t, []string{"brief haunting"}, Paginate("  brief haunting\n", 100))
	})

	t.Run("Should cut at the first paragraph break near the raw cut", func(t *testing.T) {
		first := strings.Repeat("a", 90)
		second := strings.Repeat("b", 90)
		pages := Paginate(first+"\n\n"+second, 100)
		require.Len(t, pages, 2)
		assert.Equal(t, first, pages[0])
		assert.Equal(t, second, pages[1])
	})

	t.Run("Should fall back to a line break", func(t *testing.T) {
		text := strings.Repeat("x", 950) + "\n" + strings.Repeat("y", 950)
		pages := Paginate(text, 1000)
		require.Len(t, pages, 2)
		assert.Equal(t, strings.Repeat("x", 950), pages[0])
	})

	t.Run("Should fall back to a sentence end", func(t *testing.T) {
		text := strings.Repeat("x", 950) + "! " + strings.Repeat("y", 950)
		pages := Paginate(text, 1000)
		require.Len(t, pages, 2)
		assert.Equal(t, strings.Repeat("x", 950)+"!", pages[0])
	})

	t.Run("Should fall back to a word gap", func(t *testing.T) {
		text := strings.Repeat("x", 950) + " " + strings.Repeat("y", 950)
		pages := Paginate(text, 1000)
		require.Len(t, pages, 2)
		assert.Equal(t, strings.Repeat("y", 950), pages[1])
	})

	t.Run("Should accept the raw cut when nothing breaks", func(t *testing.T) {
		text := strings.Repeat("z", 2500)
		pages := Paginate(text, 1000)
		require.Len(t, pages, 3)
		assert.Equal(t, 1000, utf8.RuneCountInString(pages[0]))
		assert.Equal(t, 500, utf8.RuneCountInString(pages[2]))
	})

	t.Run("Should keep every word and never emit blank pages", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 400; i++ {
			b.WriteString("The lantern flickers in the crypt. ")
			if i%7 == 0 {
				b.WriteString("\n\n")
			}
		}
		text := b.String()
		pages := Paginate(text, 500)
		require.Greater(t, len(pages), 1)
		for _, p := range pages {
			assert.NotEmpty(t, p)
			assert.Equal(t, strings.TrimSpace(p), p)
			assert.LessOrEqual(t, utf8.RuneCountInString(p), 500+200)
		}
		assert.Equal(t, squash(text), squash(strings.Join(pages, "")))
	})

	t.Run("Should use the default page size for non-positive sizes", func(t *testing.T) {
		text := strings.Repeat("w ", 1500)
		assert.Len(t, Paginate(text, 0), 2)
	})
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		page, total, want int
	}{
		{0, 5, 1},
		{-3, 5, 1},
		{3, 5, 3},
		{9, 5, 5},
		{1, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampPage(tt.page, tt.total), "page=%d total=%d", tt.page, tt.total)
	}
}

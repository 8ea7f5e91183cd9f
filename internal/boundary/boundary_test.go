package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFind(t *testing.T) {
	t.Run("Should prefer a paragraph break over a later line break", func(t *testing.T) {
		text := "one\n\ntwo\nthree"
		cut, ok := Find(text, 0, len(text), ChunkRules)
		assert.True(t, ok)
		assert.Equal(t, "one\n\n", text[:cut])
	})

	t.Run("Should pick the last paragraph break for chunk rules", func(t *testing.T) {
		text := "a\n\nb\n\nc"
		cut, ok := Find(text, 0, len(text), ChunkRules)
		assert.True(t, ok)
		assert.Equal(t, "a\n\nb\n\n", text[:cut])
	})

	t.Run("Should pick the first paragraph break for page rules", func(t *testing.T) {
		text := "a\n\nb\n\nc"
		cut, ok := Find(text, 0, len(text), PageRules)
		assert.True(t, ok)
		assert.Equal(t, "a\n\n", text[:cut])
	})

	t.Run("Should fall through to sentence ends", func(t *testing.T) {
		text := "First one. Second one. tail"
		cut, ok := Find(text, 0, len(text), ChunkRules)
		assert.True(t, ok)
		assert.Equal(t, "First one. Second one. ", text[:cut])
	})

	t.Run("Should match question and exclamation marks on pages", func(t *testing.T) {
		text := "Really? Yes! ok"
		cut, ok := Find(text, 0, len(text), PageRules)
		assert.True(t, ok)
		assert.Equal(t, "Really? ", text[:cut])
	})

	t.Run("Should use the last space as a word break on pages", func(t *testing.T) {
		text := "alpha beta gamma"
		cut, ok := Find(text, 0, len(text), PageRules)
		assert.True(t, ok)
		assert.Equal(t, "alpha beta ", text[:cut])
	})

	t.Run("Should only look inside the window", func(t *testing.T) {
		text := "x\n\nyyyyyyyy"
		_, ok := Find(text, 4, len(text), ChunkRules)
		assert.False(t, ok)
	})

	t.Run("Should report no match for an empty or inverted window", func(t *testing.T) {
		_, ok := Find("abc\n", 3, 2, ChunkRules)
		assert.False(t, ok)
		_, ok = Find("", 0, 0, PageRules)
		assert.False(t, ok)
	})

	t.Run("Should clamp window bounds to the text", func(t *testing.T) {
		text := "ab\ncd"
		cut, ok := Find(text, -5, 100, ChunkRules)
		assert.True(t, ok)
		assert.Equal(t, 3, cut)
	})
}

func TestAdvanceRetreat(t *testing.T) {
	t.Run("Should move by runes rather than bytes", func(t *testing.T) {
		text := "héllo wörld"
		i := Advance(text, 0, 2)
		assert.Equal(t, "hé", text[:i])
		j := Retreat(text, len(text), 3)
		assert.Equal(t, "rld", text[j:])
	})

	t.Run("Should stop at the edges", func(t *testing.T) {
		assert.Equal(t, 3, Advance("abc", 1, 10))
		assert.Equal(t, 0, Retreat("abc", 2, 10))
	})
}

// Package chunk splits long text into bounded, overlapping chunks for a
// size-limited model and stitches the processed chunks back together.
package chunk

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/thywilljoshua/haunted-syllabus/internal/boundary"
)

const (
	DefaultMaxChunkSize = 30000
	DefaultOverlapSize  = 200

	// boundarySearchWindow is how far back from a hard cut we look for a
	// natural break.
	boundarySearchWindow = 500
)

type TextChunk struct {
	Index          int    `json:"index"`
	Content        string `json:"content"`
	CharacterCount int    `json:"character_count"`
	IsProcessed    bool   `json:"is_processed"`
}

func newChunk(index int, content string) TextChunk {
	return TextChunk{
		Index:          index,
		Content:        content,
		CharacterCount: utf8.RuneCountInString(content),
	}
}

// WithOutput returns a copy of c carrying the processed text.
func (c TextChunk) WithOutput(out string) TextChunk {
	c.Content = out
	c.CharacterCount = utf8.RuneCountInString(out)
	c.IsProcessed = true
	return c
}

// Chunk splits text into chunks of at most maxChunkSize runes. Non-final
// chunks end on the last paragraph break, line break or sentence end found in
// the trailing 500 runes of the window, and the next chunk starts overlapSize
// runes before that end. With overlapSize 0 the chunks concatenate back to
// text exactly.
func Chunk(text string, maxChunkSize, overlapSize int) []TextChunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if overlapSize < 0 {
		overlapSize = 0
	}
	chunks := []TextChunk{}
	if text == "" {
		return chunks
	}
	if utf8.RuneCountInString(text) <= maxChunkSize {
		return append(chunks, newChunk(0, text))
	}

	start := 0
	for start < len(text) {
		end := boundary.Advance(text, start, maxChunkSize)
		if end < len(text) {
			searchStart := boundary.Retreat(text, end, boundarySearchWindow)
			if searchStart < start {
				searchStart = start
			}
			if cut, ok := boundary.Find(text, searchStart, end, boundary.ChunkRules); ok {
				end = cut
			}
		}

		chunks = append(chunks, newChunk(len(chunks), text[start:end]))
		if end >= len(text) {
			break
		}

		next := boundary.Retreat(text, end, overlapSize)
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

type Options struct {
	MaxChunkSize int
	OverlapSize  int
}

type Option func(*Options)

var ErrChunkTooSmall = errors.New("chunk size too small for the overlap")

// Validate checks that every non-final chunk stays longer than the overlap,
// even after its end moves back to a boundary. Shorter chunks are emitted
// without overlap and Merge would then trim or separate text that was never
// repeated.
func (o Options) Validate() error {
	if o.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max chunk size must be positive, got %d", ErrChunkTooSmall, o.MaxChunkSize)
	}
	if o.OverlapSize > 0 && o.MaxChunkSize <= o.OverlapSize+boundarySearchWindow {
		return fmt.Errorf("%w: max chunk size %d must exceed overlap %d plus %d",
			ErrChunkTooSmall, o.MaxChunkSize, o.OverlapSize, boundarySearchWindow)
	}
	return nil
}

func DefaultOptions() Options {
	return Options{
		MaxChunkSize: DefaultMaxChunkSize,
		OverlapSize:  DefaultOverlapSize,
	}
}

func WithMaxChunkSize(n int) Option {
	return func(o *Options) {
		o.MaxChunkSize = n
	}
}

func WithOverlapSize(n int) Option {
	return func(o *Options) {
		o.OverlapSize = n
	}
}

// Splitter binds one chunk size and overlap so that Split and Merge always
// agree on the overlap window.
type Splitter struct {
	opts Options
}

func NewSplitter(opts ...Option) *Splitter {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = DefaultMaxChunkSize
	}
	if o.OverlapSize < 0 {
		o.OverlapSize = 0
	}
	return &Splitter{opts: o}
}

func (s *Splitter) Options() Options { return s.opts }

func (s *Splitter) Split(text string) []TextChunk {
	return Chunk(text, s.opts.MaxChunkSize, s.opts.OverlapSize)
}

func (s *Splitter) Merge(chunks []TextChunk) (string, MergeReport) {
	return MergeWithReport(chunks, s.opts.OverlapSize)
}

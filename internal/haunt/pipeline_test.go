package haunt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thywilljoshua/haunted-syllabus/internal/ai"
	"github.com/thywilljoshua/haunted-syllabus/internal/chunk"
	"github.com/thywilljoshua/haunted-syllabus/internal/metrics"
	"github.com/thywilljoshua/haunted-syllabus/internal/paginate"
	"github.com/thywilljoshua/haunted-syllabus/internal/retry"
	"github.com/thywilljoshua/haunted-syllabus/internal/sanitize"
)

// fakeGenerator echoes its input after failing the first failures calls.
type fakeGenerator struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	prompts  []string
	syllabus ai.Syllabus
}

func (f *fakeGenerator) next(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, text)
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	return nil
}

func (f *fakeGenerator) Haunt(_ context.Context, text string) (string, error) {
	if err := f.next(text); err != nil {
		return "", err
	}
	return text, nil
}

func (f *fakeGenerator) ExtractSyllabus(context.Context, []byte, string) (ai.Syllabus, error) {
	if err := f.next("syllabus"); err != nil {
		return ai.Syllabus{}, err
	}
	return f.syllabus, nil
}

func (f *fakeGenerator) ExtractText(context.Context, []byte, string) (string, error) {
	if err := f.next("ocr"); err != nil {
		return "", err
	}
	return "TRANSCRIBED\r\nsyllabus", nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastRetry() retry.Options {
	return retry.Options{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func longDocument() string {
	var b strings.Builder
	for i := 0; b.Len() < 20000; i++ {
		fmt.Fprintf(&b, "SECTION %d\n\nThe ghost of lecture %d drifts through the hall. It mutters about exams. ", i, i)
		b.WriteString("Students shiver and take notes.\n\n")
	}
	return b.String()
}

func newPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestPipeline_Run(t *testing.T) {
	t.Run("Should reproduce the source with an echo generator", func(t *testing.T) {
		src := longDocument()
		p := newPipeline(t, Config{
			Generator:         ai.Noop{},
			Chunk:             chunk.Options{MaxChunkSize: 3000, OverlapSize: 200},
			Retry:             fastRetry(),
			CharactersPerPage: 1500,
		})
		res, err := p.Run(t.Context(), Request{Text: src})
		require.NoError(t, err)

		want := sanitize.Sanitize(src)
		assert.Equal(t, want, res.Text)
		assert.Greater(t, res.ProcessedChunks, 1)
		assert.Equal(t, res.ProcessedChunks-1, res.Merge.Matched)
		assert.False(t, res.Merge.Fallback)
		assert.Equal(t, paginate.Paginate(want, 1500), res.Pages)
		assert.NotEmpty(t, res.JobID)
		assert.Equal(t, res.Markers.Merged, strings.Count(want, "SECTION "))
		assert.Len(t, res.Outline, res.Markers.Merged)
		for _, c := range res.Chunks {
			assert.True(t, c.IsProcessed)
		}
	})

	t.Run("Should honour per request sizes", func(t *testing.T) {
		p := newPipeline(t, Config{Chunk: chunk.Options{MaxChunkSize: 30000, OverlapSize: 200}})
		res, err := p.Run(t.Context(), Request{Text: longDocument(), MaxChunkSize: 5000, CharactersPerPage: 4000})
		require.NoError(t, err)
		assert.Greater(t, res.ProcessedChunks, 3)
		assert.Equal(t, paginate.Paginate(res.Text, 4000), res.Pages)
	})

	t.Run("Should reject per request chunk sizes smaller than the overlap", func(t *testing.T) {
		gen := &fakeGenerator{}
		p := newPipeline(t, Config{Generator: gen, Chunk: chunk.Options{MaxChunkSize: 30000, OverlapSize: 200}})
		for _, size := range []int{1, 100, 200, 700} {
			_, err := p.Run(t.Context(), Request{Text: strings.Repeat("a", 300), MaxChunkSize: size})
			assert.ErrorIs(t, err, chunk.ErrChunkTooSmall, "size %d", size)
		}
		assert.Equal(t, 0, gen.callCount())

		res, err := p.Run(t.Context(), Request{Text: strings.Repeat("a", 3000), MaxChunkSize: 701})
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("a", 3000), res.Text)
		assert.Greater(t, res.ProcessedChunks, 1)
	})

	t.Run("Should refuse a configured chunk size smaller than the overlap", func(t *testing.T) {
		_, err := New(Config{Chunk: chunk.Options{MaxChunkSize: 300, OverlapSize: 200}})
		assert.ErrorIs(t, err, chunk.ErrChunkTooSmall)
	})

	t.Run("Should reject empty text", func(t *testing.T) {
		p := newPipeline(t, Config{})
		_, err := p.Run(t.Context(), Request{Text: " \x00\n "})
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("Should retry transient failures", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		gen := &fakeGenerator{failures: 2, err: errors.New("429 quota exceeded")}
		p := newPipeline(t, Config{Generator: gen, Retry: fastRetry(), Metrics: m})

		res, err := p.Run(t.Context(), Request{Text: "A short lesson."})
		require.NoError(t, err)
		assert.Equal(t, "A short lesson.", res.Text)
		assert.Equal(t, 3, gen.callCount())
		assert.Equal(t, 2.0, testutil.ToFloat64(m.Retries))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.AICalls.WithLabelValues("haunt", "error")))
		assert.Equal(t, []string{"A short lesson.", "A short lesson.", "A short lesson."}, gen.prompts)
	})

	t.Run("Should stop on permanent failures", func(t *testing.T) {
		boom := errors.New("invalid api key")
		gen := &fakeGenerator{failures: 10, err: boom}
		p := newPipeline(t, Config{Generator: gen, Retry: fastRetry()})

		_, err := p.Run(t.Context(), Request{Text: "text"})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, gen.callCount())
	})

	t.Run("Should give up after the retry budget", func(t *testing.T) {
		gen := &fakeGenerator{failures: 10, err: errors.New("503 unavailable")}
		p := newPipeline(t, Config{Generator: gen, Retry: fastRetry()})

		_, err := p.Run(t.Context(), Request{Text: "text"})
		require.Error(t, err)
		assert.True(t, retry.IsRetryable(err))
		assert.Equal(t, 4, gen.callCount())
	})

	t.Run("Should serve repeated chunks from the cache", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		gen := &fakeGenerator{}
		p := newPipeline(t, Config{Generator: gen, CacheSize: 8, Metrics: m})

		for range 3 {
			_, err := p.Run(t.Context(), Request{Text: "same text"})
			require.NoError(t, err)
		}
		assert.Equal(t, 1, gen.callCount())
		assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	})

	t.Run("Should produce the same text concurrently", func(t *testing.T) {
		src := longDocument()
		cfg := Config{Chunk: chunk.Options{MaxChunkSize: 2000, OverlapSize: 100}}
		seq, err := newPipeline(t, cfg).Run(t.Context(), Request{Text: src})
		require.NoError(t, err)

		cfg.Concurrency = 4
		gen := &fakeGenerator{}
		cfg.Generator = gen
		par, err := newPipeline(t, cfg).Run(t.Context(), Request{Text: src})
		require.NoError(t, err)
		assert.Equal(t, seq.Text, par.Text)
		assert.Equal(t, seq.ProcessedChunks, gen.callCount())
	})

	t.Run("Should stop when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		gen := &fakeGenerator{failures: 10, err: errors.New("network down")}
		p := newPipeline(t, Config{Generator: gen, Retry: retry.Options{MaxRetries: 3, BaseDelay: time.Hour}})
		_, err := p.Run(ctx, Request{Text: "text"})
		assert.Error(t, err)
	})
}

func TestPipeline_Lesson(t *testing.T) {
	t.Run("Should send the lesson prompt", func(t *testing.T) {
		gen := &fakeGenerator{}
		p := newPipeline(t, Config{Generator: gen})
		res, err := p.Lesson(t.Context(), ai.LessonTakeaways, "Unit 3: Tombs", "Embalming")
		require.NoError(t, err)
		require.Len(t, gen.prompts, 1)
		assert.Equal(t, ai.LessonPrompt(ai.LessonTakeaways, "Unit 3: Tombs", "Embalming"), gen.prompts[0])
		assert.Contains(t, res.Text, "Embalming")
	})

	t.Run("Should require a topic", func(t *testing.T) {
		p := newPipeline(t, Config{})
		_, err := p.Lesson(t.Context(), ai.LessonOverview, "Unit 1", "  ")
		assert.ErrorIs(t, err, ErrMissingTopic)
	})
}

func TestPipeline_Syllabus(t *testing.T) {
	want := ai.Syllabus{Units: []ai.Unit{{ID: "unit1", Title: "Unit 1: Bones", Topics: []string{"skull"}}}}

	t.Run("Should retry rate limited extraction", func(t *testing.T) {
		gen := &fakeGenerator{failures: 1, err: errors.New("Error 429, Status: RESOURCE_EXHAUSTED"), syllabus: want}
		p := newPipeline(t, Config{Generator: gen, Retry: fastRetry()})
		got, err := p.Syllabus(t.Context(), []byte("img"), "image/png")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, 2, gen.callCount())
	})

	t.Run("Should not retry a syllabus without units", func(t *testing.T) {
		gen := &fakeGenerator{failures: 5, err: ai.ErrNoUnits}
		p := newPipeline(t, Config{Generator: gen, Retry: fastRetry()})
		_, err := p.Syllabus(t.Context(), []byte("img"), "image/png")
		assert.ErrorIs(t, err, ai.ErrNoUnits)
		assert.Equal(t, 1, gen.callCount())
	})
}

func TestPipeline_Document(t *testing.T) {
	gen := &fakeGenerator{}
	p := newPipeline(t, Config{Generator: gen, MaxUploadBytes: 1 << 20})
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	doc, err := p.Document(t.Context(), "syllabus.png", png)
	require.NoError(t, err)
	assert.Equal(t, "TRANSCRIBED\nsyllabus", doc.Text)
	assert.Equal(t, []string{"ocr"}, gen.prompts)
}

// Package haunt runs source text through the generator chunk by chunk and
// reassembles the result into pages.
package haunt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/thywilljoshua/haunted-syllabus/internal/ai"
	"github.com/thywilljoshua/haunted-syllabus/internal/chunk"
	"github.com/thywilljoshua/haunted-syllabus/internal/extract"
	"github.com/thywilljoshua/haunted-syllabus/internal/logger"
	"github.com/thywilljoshua/haunted-syllabus/internal/metrics"
	"github.com/thywilljoshua/haunted-syllabus/internal/paginate"
	"github.com/thywilljoshua/haunted-syllabus/internal/retry"
	"github.com/thywilljoshua/haunted-syllabus/internal/sanitize"
	"github.com/thywilljoshua/haunted-syllabus/internal/structure"
)

var (
	ErrEmptyText    = errors.New("no text provided")
	ErrMissingTopic = errors.New("unit and topic are required")
)

type Config struct {
	Generator         ai.Generator
	Chunk             chunk.Options
	Retry             retry.Options
	CharactersPerPage int
	// Concurrency bounds parallel generator calls. 1 keeps chunks strictly
	// sequential.
	Concurrency int
	// CacheSize is the number of chunk outputs kept. Zero disables caching.
	CacheSize int
	// MaxUploadBytes limits documents passed to Document.
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
}

type Pipeline struct {
	cfg      Config
	gen      *retrying
	splitter *chunk.Splitter
	cache    *lru.Cache[string, string]
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Generator == nil {
		cfg.Generator = ai.Noop{}
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.CharactersPerPage <= 0 {
		cfg.CharactersPerPage = paginate.DefaultCharactersPerPage
	}
	splitter := chunk.NewSplitter(chunk.WithMaxChunkSize(cfg.Chunk.MaxChunkSize), chunk.WithOverlapSize(cfg.Chunk.OverlapSize))
	if err := splitter.Options().Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:      cfg,
		gen:      &retrying{gen: cfg.Generator, opts: cfg.Retry, metrics: cfg.Metrics},
		splitter: splitter,
	}
	if cfg.CacheSize > 0 {
		c, err := lru.New[string, string](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create output cache: %w", err)
		}
		p.cache = c
	}
	return p, nil
}

type Request struct {
	Text string
	// MaxChunkSize and CharactersPerPage override the pipeline defaults when
	// positive. MaxChunkSize must still leave room for the configured overlap.
	MaxChunkSize      int
	CharactersPerPage int
}

type MarkerCount struct {
	Chunks int `json:"chunks"`
	Merged int `json:"merged"`
}

type Result struct {
	JobID string `json:"jobId"`
	// Text is the merger output, unmodified.
	Text            string              `json:"text"`
	Pages           []string            `json:"pages"`
	Chunks          []chunk.TextChunk   `json:"-"`
	ProcessedChunks int                 `json:"processedChunks"`
	Merge           chunk.MergeReport   `json:"merge"`
	Markers         MarkerCount         `json:"markers"`
	Outline         []structure.Section `json:"outline,omitempty"`
	Duration        time.Duration       `json:"duration"`
}

// Run sanitizes req.Text, sends every chunk through the generator, merges the
// outputs and paginates the merged text. Any chunk failing after its retries
// fails the whole run.
func (p *Pipeline) Run(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	res.JobID = uuid.NewString()
	log := logger.FromContext(ctx).With("job", res.JobID)
	ctx = logger.ContextWithLogger(ctx, log)
	defer func() {
		res.Duration = time.Since(start)
		p.cfg.Metrics.ObservePipeline(res.Duration, err)
	}()

	text := sanitize.Sanitize(req.Text)
	if text == "" {
		return res, ErrEmptyText
	}

	splitter := p.splitter
	if req.MaxChunkSize > 0 {
		opts := splitter.Options()
		opts.MaxChunkSize = req.MaxChunkSize
		if err := opts.Validate(); err != nil {
			return res, err
		}
		splitter = chunk.NewSplitter(chunk.WithMaxChunkSize(opts.MaxChunkSize), chunk.WithOverlapSize(opts.OverlapSize))
	}
	chunks := splitter.Split(text)
	p.cfg.Metrics.RecordChunks(len(chunks))
	log.Info("Haunting text", "chars", len(text), "chunks", len(chunks), "concurrency", p.cfg.Concurrency)

	processed := make([]chunk.TextChunk, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			out, err := p.hauntChunk(gctx, c.Content)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", c.Index, err)
			}
			processed[i] = c.WithOutput(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	merged, report := splitter.Merge(processed)
	p.cfg.Metrics.RecordMerge(report.Matched, report.HalfMatched, report.Separated, report.Fallback)
	if report.Fallback {
		log.Warn("Merge fell back to sequential join", "reason", report.FallbackReason)
	}
	if report.Separated > 0 {
		log.Info("Chunks joined without overlap", "separated", report.Separated)
	}

	markers := structure.Markers(merged)
	res.Markers = checkMarkers(log, processed, len(markers))
	res.Outline = structure.Outline(markers)

	cpp := p.cfg.CharactersPerPage
	if req.CharactersPerPage > 0 {
		cpp = req.CharactersPerPage
	}
	res.Pages = paginate.Paginate(merged, cpp)
	p.cfg.Metrics.RecordPages(len(res.Pages))

	res.Text = merged
	res.Chunks = processed
	res.ProcessedChunks = len(processed)
	res.Merge = report
	log.Info("Haunting finished", "pages", len(res.Pages), "matched", report.Matched, "duration", time.Since(start))
	return res, nil
}

func (p *Pipeline) hauntChunk(ctx context.Context, text string) (string, error) {
	key := cacheKey(text)
	if p.cache != nil {
		out, ok := p.cache.Get(key)
		p.cfg.Metrics.RecordCache(ok)
		if ok {
			logger.FromContext(ctx).Debug("Chunk output served from cache", "key", key[:12])
			return out, nil
		}
	}
	out, err := p.gen.Haunt(ctx, text)
	if err != nil {
		return "", err
	}
	if p.cache != nil {
		p.cache.Add(key, out)
	}
	return out, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(ai.HauntPrompt(text)))
	return hex.EncodeToString(sum[:])
}

// checkMarkers compares the section markers of the processed chunks with the
// merged text. The merged count can be lower than the sum because overlaps
// repeat markers, but never lower than any single chunk.
func checkMarkers(log logger.Logger, processed []chunk.TextChunk, merged int) MarkerCount {
	var mc MarkerCount
	maxChunk := 0
	for _, c := range processed {
		n := structure.Count(c.Content)
		mc.Chunks += n
		maxChunk = max(maxChunk, n)
	}
	mc.Merged = merged
	if mc.Merged < maxChunk || mc.Merged > mc.Chunks {
		log.Warn("Section markers drifted during merge", "chunks", mc.Chunks, "merged", mc.Merged)
	} else {
		log.Debug("Section markers preserved", "chunks", mc.Chunks, "merged", mc.Merged)
	}
	return mc
}

// Lesson generates study material for one topic of a syllabus unit.
func (p *Pipeline) Lesson(ctx context.Context, kind ai.LessonKind, unit, topic string) (Result, error) {
	unit, topic = strings.TrimSpace(unit), strings.TrimSpace(topic)
	if unit == "" || topic == "" {
		return Result{}, ErrMissingTopic
	}
	return p.Run(ctx, Request{Text: ai.LessonPrompt(kind, unit, topic)})
}

// Syllabus reads the units of a syllabus image.
func (p *Pipeline) Syllabus(ctx context.Context, image []byte, mimeType string) (ai.Syllabus, error) {
	return p.gen.ExtractSyllabus(ctx, image, mimeType)
}

// Document extracts the text of an uploaded file. Images are transcribed by
// the generator under the retry policy.
func (p *Pipeline) Document(ctx context.Context, name string, data []byte) (extract.Document, error) {
	return extract.FromBytes(ctx, name, data, extract.Options{
		MaxBytes:  p.cfg.MaxUploadBytes,
		Generator: p.gen,
	})
}

// Paginate splits text with the pipeline's page size unless perPage is
// positive.
func (p *Pipeline) Paginate(text string, perPage int) []string {
	if perPage <= 0 {
		perPage = p.cfg.CharactersPerPage
	}
	return paginate.Paginate(text, perPage)
}

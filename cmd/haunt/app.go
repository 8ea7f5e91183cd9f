package main

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thywilljoshua/haunted-syllabus/internal/ai"
	"github.com/thywilljoshua/haunted-syllabus/internal/chunk"
	"github.com/thywilljoshua/haunted-syllabus/internal/config"
	"github.com/thywilljoshua/haunted-syllabus/internal/haunt"
	"github.com/thywilljoshua/haunted-syllabus/internal/logger"
	"github.com/thywilljoshua/haunted-syllabus/internal/metrics"
)

func newGenerator(ctx context.Context, cfg *config.Config) (ai.Generator, error) {
	if !strings.EqualFold(cfg.AI.Provider, "gemini") {
		logger.FromContext(ctx).Warn("AI provider is off, text is echoed back")
		return ai.Noop{}, nil
	}
	return ai.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model)
}

func newPipeline(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*haunt.Pipeline, *metrics.Metrics, error) {
	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}
	p, err := haunt.New(haunt.Config{
		Generator: gen,
		Chunk: chunk.Options{
			MaxChunkSize: cfg.Chunking.MaxChunkSize,
			OverlapSize:  cfg.Chunking.OverlapSize,
		},
		Retry:             cfg.RetryOptions(),
		CharactersPerPage: cfg.Pages.CharactersPerPage,
		Concurrency:       cfg.Pipeline.Concurrency,
		CacheSize:         cfg.Pipeline.CacheSize,
		MaxUploadBytes:    cfg.MaxUploadBytes(),
		Metrics:           m,
	})
	if err != nil {
		return nil, nil, err
	}
	return p, m, nil
}

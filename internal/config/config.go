package config

import (
	"time"

	"github.com/thywilljoshua/haunted-syllabus/internal/chunk"
	"github.com/thywilljoshua/haunted-syllabus/internal/paginate"
	"github.com/thywilljoshua/haunted-syllabus/internal/retry"
)

type Config struct {
	AI       AIConfig       `koanf:"ai"`
	Chunking ChunkingConfig `koanf:"chunking"`
	Retry    RetryConfig    `koanf:"retry"`
	Pages    PagesConfig    `koanf:"pages"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Upload   UploadConfig   `koanf:"upload"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
}

type AIConfig struct {
	Provider string `koanf:"provider" validate:"oneof=off gemini"`
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
}

type ChunkingConfig struct {
	MaxChunkSize int `koanf:"max_chunk_size" validate:"min=100"`
	OverlapSize  int `koanf:"overlap_size"   validate:"min=0,ltfield=MaxChunkSize"`
}

type RetryConfig struct {
	MaxRetries int           `koanf:"max_retries" validate:"min=0,max=10"`
	BaseDelay  time.Duration `koanf:"base_delay"  validate:"gt=0"`
	MaxDelay   time.Duration `koanf:"max_delay"   validate:"min=0"`
}

type PagesConfig struct {
	CharactersPerPage int `koanf:"characters_per_page" validate:"min=200"`
}

type PipelineConfig struct {
	Concurrency int `koanf:"concurrency" validate:"min=1,max=16"`
	CacheSize   int `koanf:"cache_size"  validate:"min=0"`
}

type UploadConfig struct {
	MaxSizeMB int `koanf:"max_size_mb" validate:"min=1"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

func Default() *Config {
	r := retry.DefaultOptions()
	return &Config{
		AI: AIConfig{
			Provider: "off",
			Model:    "gemini-2.5-flash",
		},
		Chunking: ChunkingConfig{
			MaxChunkSize: chunk.DefaultMaxChunkSize,
			OverlapSize:  chunk.DefaultOverlapSize,
		},
		Retry: RetryConfig{
			MaxRetries: r.MaxRetries,
			BaseDelay:  r.BaseDelay,
			MaxDelay:   r.MaxDelay,
		},
		Pages: PagesConfig{
			CharactersPerPage: paginate.DefaultCharactersPerPage,
		},
		Pipeline: PipelineConfig{
			Concurrency: 1,
			CacheSize:   128,
		},
		Upload: UploadConfig{
			MaxSizeMB: 10,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// RetryOptions converts the retry section for the retry package.
func (c *Config) RetryOptions() retry.Options {
	return retry.Options{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  c.Retry.BaseDelay,
		MaxDelay:   c.Retry.MaxDelay,
	}
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxSizeMB) * 1024 * 1024
}

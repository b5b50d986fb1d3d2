package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Batch input: directory holding Collection* folders.
	CollectionsDir string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Logging
	LogLevel string
	LogFile  string

	// PDF
	PDFBackend        string
	PDFFallbackTabula bool

	Pipeline Pipeline
}

// Pipeline holds the tunables of segmentation, ranking and refinement.
// They can also be set from the YAML file named by DOCFOCUS_CONFIG.
type Pipeline struct {
	LineTolerance     float64 `yaml:"line_tolerance"`
	SizeTolerance     float64 `yaml:"size_tolerance"`
	MinSectionChars   int     `yaml:"min_section_chars"`
	PreviewChars      int     `yaml:"preview_chars"`
	MinParagraphChars int     `yaml:"min_paragraph_chars"`
	MaxExcerptChars   int     `yaml:"max_excerpt_chars"`
	TopN              int     `yaml:"top_n"`
}

// DefaultPipeline returns the stock heuristic constants.
func DefaultPipeline() Pipeline {
	return Pipeline{
		LineTolerance:     2.5,
		SizeTolerance:     0.1,
		MinSectionChars:   60,
		PreviewChars:      600,
		MinParagraphChars: 40,
		MaxExcerptChars:   350,
		TopN:              5,
	}
}

func Load() (Config, error) {
	def := DefaultPipeline()
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCFOCUS_API_KEY"),

		CollectionsDir: envOr("COLLECTIONS_DIR", "."),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 104857600), // 100MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		LogLevel: envOr("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),

		PDFBackend:        envOr("PDF_BACKEND", "ledongthuc"),
		PDFFallbackTabula: envBool("PDF_FALLBACK_TABULA", true),

		Pipeline: Pipeline{
			LineTolerance:     envFloat("LINE_TOLERANCE", def.LineTolerance),
			SizeTolerance:     envFloat("SIZE_TOLERANCE", def.SizeTolerance),
			MinSectionChars:   envInt("MIN_SECTION_CHARS", def.MinSectionChars),
			PreviewChars:      envInt("SECTION_PREVIEW_CHARS", def.PreviewChars),
			MinParagraphChars: envInt("MIN_PARAGRAPH_CHARS", def.MinParagraphChars),
			MaxExcerptChars:   envInt("MAX_EXCERPT_CHARS", def.MaxExcerptChars),
			TopN:              envInt("TOP_N", def.TopN),
		},
	}

	if path := os.Getenv("DOCFOCUS_CONFIG"); path != "" {
		if err := cfg.Pipeline.loadFile(path); err != nil {
			return cfg, err
		}
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 104857600
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	cfg.Pipeline.applyDefaults()

	return cfg, nil
}

// loadFile overlays the non-zero values of a YAML file onto p.
func (p *Pipeline) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var file Pipeline
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if file.LineTolerance != 0 {
		p.LineTolerance = file.LineTolerance
	}
	if file.SizeTolerance != 0 {
		p.SizeTolerance = file.SizeTolerance
	}
	if file.MinSectionChars != 0 {
		p.MinSectionChars = file.MinSectionChars
	}
	if file.PreviewChars != 0 {
		p.PreviewChars = file.PreviewChars
	}
	if file.MinParagraphChars != 0 {
		p.MinParagraphChars = file.MinParagraphChars
	}
	if file.MaxExcerptChars != 0 {
		p.MaxExcerptChars = file.MaxExcerptChars
	}
	if file.TopN != 0 {
		p.TopN = file.TopN
	}
	return nil
}

func (p *Pipeline) applyDefaults() {
	def := DefaultPipeline()
	if p.LineTolerance <= 0 {
		p.LineTolerance = def.LineTolerance
	}
	if p.SizeTolerance <= 0 {
		p.SizeTolerance = def.SizeTolerance
	}
	if p.MinSectionChars <= 0 {
		p.MinSectionChars = def.MinSectionChars
	}
	if p.PreviewChars <= 0 {
		p.PreviewChars = def.PreviewChars
	}
	if p.MinParagraphChars <= 0 {
		p.MinParagraphChars = def.MinParagraphChars
	}
	if p.MaxExcerptChars <= 0 {
		p.MaxExcerptChars = def.MaxExcerptChars
	}
	if p.TopN <= 0 {
		p.TopN = def.TopN
	}
}

// Validate checks settings shared by every command.
func (c Config) Validate() error {
	switch c.PDFBackend {
	case "ledongthuc", "tabula":
	default:
		return fmt.Errorf("PDF_BACKEND must be ledongthuc or tabula, got %q", c.PDFBackend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// ValidateServer additionally checks what the HTTP server needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCFOCUS_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

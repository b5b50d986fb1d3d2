package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dgallion1/docfocus/internal/collection"
	"github.com/dgallion1/docfocus/internal/config"
	"github.com/dgallion1/docfocus/internal/docmodel"
	"github.com/dgallion1/docfocus/internal/metrics"
	"github.com/dgallion1/docfocus/internal/parser"
	"github.com/dgallion1/docfocus/internal/rank"
	"github.com/dgallion1/docfocus/internal/refine"
	"github.com/dgallion1/docfocus/internal/segment"
)

var (
	// ErrNoInput means a collection has no job record.
	ErrNoInput = errors.New("job record not found")
	// ErrInvalidInput means the job record could not be decoded or validated.
	ErrInvalidInput = errors.New("invalid job record")
	// ErrNoDocuments means none of the record's documents exist.
	ErrNoDocuments = errors.New("no valid documents found")
)

// SourceFunc picks the document source for a file.
type SourceFunc func(path string) (parser.Source, error)

// Request is one analysis: a reader intent and the documents to search.
type Request struct {
	Persona   string
	Task      string
	Documents []string // file paths, in record order

	// OnDocument, when set, is called after each document is segmented.
	OnDocument func(name string, sections int)
}

// Analyzer runs segmentation, ranking and refinement over a set of documents.
type Analyzer struct {
	segmenter    *segment.Segmenter
	refiner      *refine.Refiner
	source       SourceFunc
	previewChars int
	topN         int
	stats        *metrics.LatencyStats
	log          *slog.Logger
	now          func() time.Time
}

func NewAnalyzer(cfg config.Config, log *slog.Logger) *Analyzer {
	opts := parser.Options{
		PDFBackend:     cfg.PDFBackend,
		FallbackTabula: cfg.PDFFallbackTabula,
	}
	p := cfg.Pipeline
	return &Analyzer{
		segmenter: segment.New(segment.Config{
			LineTolerance:   p.LineTolerance,
			SizeTolerance:   p.SizeTolerance,
			MinSectionChars: p.MinSectionChars,
		}, log),
		refiner: refine.New(refine.Config{
			MinParagraphChars: p.MinParagraphChars,
			MaxExcerptChars:   p.MaxExcerptChars,
		}),
		source: func(path string) (parser.Source, error) {
			return parser.ForFile(path, opts)
		},
		previewChars: p.PreviewChars,
		topN:         p.TopN,
		stats:        metrics.NewLatencyStats(time.Hour),
		log:          log,
		now:          time.Now,
	}
}

// WithSource replaces how documents are opened.
func (a *Analyzer) WithSource(fn SourceFunc) *Analyzer {
	a.source = fn
	return a
}

// Stats returns the rolling latency of completed analyses.
func (a *Analyzer) Stats() *metrics.LatencyStats {
	return a.stats
}

// Analyze segments every document in order, ranks all sections against the
// query and refines the top N. It fails only if ctx ends between documents.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*collection.Result, error) {
	start := time.Now()
	in := collection.Input{
		Persona:     collection.Persona{Role: req.Persona},
		JobToBeDone: collection.JobToBeDone{Task: req.Task},
	}
	query := in.Query()

	names := make([]string, 0, len(req.Documents))
	var sections []docmodel.Section
	for _, path := range req.Documents {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis interrupted: %w", err)
		}
		name := filepath.Base(path)
		names = append(names, name)

		found := a.segmentDocument(path, name)
		sections = append(sections, found...)
		if req.OnDocument != nil {
			req.OnDocument(name, len(found))
		}
	}

	ranked := rank.Sections(sections, query, a.previewChars)
	if len(ranked) > a.topN {
		ranked = ranked[:a.topN]
	}

	res := &collection.Result{
		Metadata: collection.Metadata{
			InputDocuments:      names,
			Persona:             req.Persona,
			JobToBeDone:         req.Task,
			ProcessingTimestamp: collection.FormatTimestamp(a.now()),
		},
		ExtractedSections:  make([]collection.ExtractedSection, 0, len(ranked)),
		SubsectionAnalysis: make([]collection.SubsectionAnalysis, 0, len(ranked)),
	}
	for _, s := range ranked {
		res.ExtractedSections = append(res.ExtractedSections, collection.ExtractedSection{
			Document:       s.Document,
			SectionTitle:   s.Title,
			ImportanceRank: s.Rank,
			PageNumber:     s.Page,
		})
		res.SubsectionAnalysis = append(res.SubsectionAnalysis, collection.SubsectionAnalysis{
			Document:    s.Document,
			RefinedText: a.refiner.Refine(s.Section, query),
			PageNumber:  s.Page,
		})
	}

	elapsed := time.Since(start)
	metrics.AnalysisDuration.Observe(elapsed.Seconds())
	a.stats.Record(elapsed)
	a.log.Info("analysis complete",
		"documents", len(names),
		"sections", len(sections),
		"selected", len(ranked),
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

func (a *Analyzer) segmentDocument(path, name string) []docmodel.Section {
	src, err := a.source(path)
	if err != nil {
		a.log.Warn("unsupported document, skipping", "document", name, "error", err)
		metrics.DocumentsTotal.WithLabelValues("unsupported").Inc()
		return nil
	}

	res := a.segmenter.SegmentFile(src, path)
	metrics.PagesSkippedTotal.Add(float64(res.PagesSkipped))
	switch {
	case len(res.Sections) == 0:
		metrics.DocumentsTotal.WithLabelValues("empty").Inc()
	case res.Fallback:
		metrics.DocumentsTotal.WithLabelValues("ok").Inc()
		metrics.SectionsTotal.WithLabelValues("fallback").Add(float64(len(res.Sections)))
	default:
		metrics.DocumentsTotal.WithLabelValues("ok").Inc()
		metrics.SectionsTotal.WithLabelValues("heading").Add(float64(len(res.Sections)))
	}
	return res.Sections
}

// ProcessCollection analyzes one collection folder and writes its output
// record. Collections without a record or without any existing document are
// skipped with ErrNoInput or ErrNoDocuments, and no output is written.
func (a *Analyzer) ProcessCollection(ctx context.Context, dir string) (*collection.Result, error) {
	log := a.log.With("collection", filepath.Base(dir))

	in, err := collection.ReadInput(filepath.Join(dir, collection.InputFile))
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("job record not found, skipping")
		return nil, ErrNoInput
	}
	if err != nil {
		log.Error("invalid job record, skipping", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	docs := collection.ResolveDocuments(filepath.Join(dir, collection.DocumentDir), in)
	if len(docs) == 0 {
		log.Warn("no valid documents found to analyze")
		return nil, ErrNoDocuments
	}

	log.Info("analyzing collection", "documents", len(docs))
	res, err := a.Analyze(ctx, Request{
		Persona:   in.Persona.Role,
		Task:      in.JobToBeDone.Task,
		Documents: docs,
	})
	if err != nil {
		return nil, err
	}

	out := filepath.Join(dir, collection.OutputFile)
	if err := collection.WriteResult(out, res); err != nil {
		log.Error("could not write output", "error", err)
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	log.Info("output written", "path", out, "sections", len(res.ExtractedSections))
	return res, nil
}

// Summary reports what happened to one collection in a batch run.
type Summary struct {
	Name     string
	Outcome  string // "completed", "skipped" or "failed"
	Sections int
	Err      error
}

// ProcessAll runs ProcessCollection over every Collection* folder under
// base. Per-collection failures are recorded in the summaries; only a
// cancelled context or an unreadable base directory stops the run.
func (a *Analyzer) ProcessAll(ctx context.Context, base string) ([]Summary, error) {
	dirs, err := collection.Discover(base)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		a.log.Warn("no collection folders found", "base", base)
		return nil, nil
	}

	summaries := make([]Summary, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		sum := Summary{Name: filepath.Base(dir)}
		res, err := a.ProcessCollection(ctx, dir)
		switch {
		case err == nil:
			sum.Outcome = "completed"
			sum.Sections = len(res.ExtractedSections)
		case errors.Is(err, ErrNoInput), errors.Is(err, ErrNoDocuments), errors.Is(err, ErrInvalidInput):
			sum.Outcome = "skipped"
			sum.Err = err
		case ctx.Err() != nil:
			return summaries, ctx.Err()
		default:
			sum.Outcome = "failed"
			sum.Err = err
		}
		metrics.CollectionsTotal.WithLabelValues(sum.Outcome).Inc()
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

package segment

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docfocus/internal/docmodel"
	"github.com/dgallion1/docfocus/internal/parser"
)

// DefaultTitle names sections when a document never yields a heading.
const DefaultTitle = "Document Start"

// Config controls the heading heuristic.
type Config struct {
	LineTolerance   float64 // Max baseline delta for words on one line.
	SizeTolerance   float64 // Slack below the document's max font size that still counts as a heading.
	MinSectionChars int     // Sections with shorter content are dropped.
}

// DefaultConfig returns the stock heuristic constants.
func DefaultConfig() Config {
	return Config{
		LineTolerance:   2.5,
		SizeTolerance:   0.1,
		MinSectionChars: 60,
	}
}

// Result is the outcome of segmenting one document.
type Result struct {
	Sections     []docmodel.Section
	Pages        int
	PagesSkipped int
	Fallback     bool // Sections holds the single page-1 fallback section
}

// Segmenter splits documents into titled sections using the largest font
// size in each document as the heading style.
type Segmenter struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Segmenter {
	def := DefaultConfig()
	if cfg.LineTolerance <= 0 {
		cfg.LineTolerance = def.LineTolerance
	}
	if cfg.SizeTolerance <= 0 {
		cfg.SizeTolerance = def.SizeTolerance
	}
	if cfg.MinSectionChars <= 0 {
		cfg.MinSectionChars = def.MinSectionChars
	}
	if log == nil {
		log = slog.Default()
	}
	return &Segmenter{cfg: cfg, log: log}
}

// SegmentFile opens path with src and segments it. Open failures and crashes
// inside the extraction library are logged and yield an empty result.
func (s *Segmenter) SegmentFile(src parser.Source, path string) (res Result) {
	name := filepath.Base(path)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("document segmentation crashed", "document", name, "panic", fmt.Sprint(r))
			res = Result{}
		}
	}()

	doc, err := src.Open(path)
	if err != nil {
		s.log.Error("could not parse document", "document", name, "error", err)
		return Result{}
	}
	defer doc.Close()

	return s.Segment(doc, name)
}

// Segment splits an opened document into sections tagged with name.
// Pages that fail extraction are logged and skipped.
func (s *Segmenter) Segment(doc parser.Document, name string) Result {
	log := s.log.With("document", name)
	res := Result{Pages: doc.NumPages()}

	// Pass 1: the largest size anywhere in the document is the heading size.
	pages := make([][]docmodel.Word, res.Pages)
	readable := make([]bool, res.Pages)
	var threshold float64
	for i := range pages {
		words, err := doc.Words(i + 1)
		if err != nil {
			log.Warn("page extraction failed, skipping", "page", i+1, "error", err)
			res.PagesSkipped++
			continue
		}
		pages[i], readable[i] = words, true
		for _, w := range words {
			if w.Size > threshold {
				threshold = w.Size
			}
		}
	}

	// Pass 2: split each page's lines at headings.
	var firstHeading string
	seenHeading := false
	for i, words := range pages {
		if !readable[i] {
			continue
		}
		page := i + 1

		var title string
		hasTitle := false
		var content []string
		flush := func() {
			if !hasTitle || len(content) == 0 {
				return
			}
			body := strings.Join(content, "\n")
			if utf8.RuneCountInString(body) < s.cfg.MinSectionChars {
				return
			}
			res.Sections = append(res.Sections, docmodel.Section{
				Title:    title,
				Content:  body,
				Page:     page,
				Document: name,
			})
		}

		for _, line := range AssembleLines(words, s.cfg.LineTolerance) {
			if line.Size >= threshold-s.cfg.SizeTolerance {
				flush()
				content = nil
				title, hasTitle = line.Text, true
				if !seenHeading {
					firstHeading, seenHeading = line.Text, true
				}
				continue
			}
			content = append(content, line.Text)
		}
		flush()
	}

	if len(res.Sections) == 0 {
		fb, err := fallbackSection(doc, name)
		if err != nil {
			log.Warn("no sections and no fallback available", "error", err)
			return res
		}
		res.Sections = []docmodel.Section{fb}
		res.Fallback = true
		firstHeading = fb.Title
	}

	for i := range res.Sections {
		if res.Sections[i].Title != "" {
			continue
		}
		if firstHeading != "" {
			res.Sections[i].Title = firstHeading
		} else {
			res.Sections[i].Title = DefaultTitle
		}
	}

	log.Debug("segmented document",
		"pages", res.Pages,
		"pages_skipped", res.PagesSkipped,
		"sections", len(res.Sections),
		"fallback", res.Fallback,
	)
	return res
}

// fallbackSection builds the single section used when no heading split
// produced anything: first line of page 1 as title, the rest as content.
func fallbackSection(doc parser.Document, name string) (docmodel.Section, error) {
	if doc.NumPages() == 0 {
		return docmodel.Section{}, fmt.Errorf("document has no pages")
	}
	text, err := doc.PlainText(1)
	if err != nil {
		return docmodel.Section{}, fmt.Errorf("page 1 text: %w", err)
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	return docmodel.Section{
		Title:    lines[0],
		Content:  strings.Join(lines[1:], "\n"),
		Page:     1,
		Document: name,
	}, nil
}

package refine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docfocus/internal/docmodel"
	"github.com/dgallion1/docfocus/internal/rank"
)

// paragraphBreak splits on blank-line runs or a period followed by whitespace,
// Unicode spaces such as NBSP included. The separators themselves are dropped.
var paragraphBreak = regexp.MustCompile(`\n{2,}|\.[\s\v\x{1c}-\x{1f}\x{85}\p{Z}]`)

// Config controls refinement.
type Config struct {
	MinParagraphChars int // Candidates must be strictly longer than this.
	MaxExcerptChars   int // Excerpts are cut to this length.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinParagraphChars: 40,
		MaxExcerptChars:   350,
	}
}

// Refiner narrows a section down to its single best-matching paragraph.
type Refiner struct {
	cfg Config
}

func New(cfg Config) *Refiner {
	if cfg.MinParagraphChars <= 0 {
		cfg.MinParagraphChars = 40
	}
	if cfg.MaxExcerptChars <= 0 {
		cfg.MaxExcerptChars = 350
	}
	return &Refiner{cfg: cfg}
}

// Paragraphs returns the candidate paragraphs of content.
func (r *Refiner) Paragraphs(content string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(content, -1) {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) > r.cfg.MinParagraphChars {
			out = append(out, p)
		}
	}
	return out
}

// Refine returns the paragraph of s most similar to query. Sections without
// a long enough paragraph yield the start of their content instead.
func (r *Refiner) Refine(s docmodel.Section, query string) string {
	paras := r.Paragraphs(s.Content)
	if len(paras) == 0 {
		return docmodel.TruncateRunes(strings.TrimSpace(s.Content), r.cfg.MaxExcerptChars)
	}
	best := rank.Rank(paras, query)[0]
	return docmodel.TruncateRunes(paras[best.Index], r.cfg.MaxExcerptChars)
}

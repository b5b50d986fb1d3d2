package parser

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/dgallion1/docfocus/internal/docmodel"
	pdflib "github.com/ledongthuc/pdf"
)

// wordGapRatio is the horizontal gap, relative to font size, that splits two
// glyphs into separate words when the PDF carries no explicit space glyph.
const wordGapRatio = 0.25

// rowTolerance is the largest baseline difference between words of one row
// when rebuilding plain text.
const rowTolerance = 2.5

// PDFSource handles PDF files. It tries ledongthuc/pdf first,
// then falls back to tabula if enabled.
type PDFSource struct {
	FallbackTabula bool
}

func (s *PDFSource) Open(path string) (Document, error) {
	doc, err := openPDF(path)
	if err != nil && s.FallbackTabula {
		return (&TabulaSource{}).Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return doc, nil
}

type pdfDocument struct {
	f      *os.File
	reader *pdflib.Reader
}

func openPDF(path string) (doc *pdfDocument, err error) {
	defer recoverPage(&err)
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	return &pdfDocument{f: f, reader: reader}, nil
}

func (d *pdfDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) Words(n int) (words []docmodel.Word, err error) {
	defer recoverPage(&err)
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d: missing page object", n)
	}
	return glyphWords(page.Content().Text), nil
}

// PlainText rebuilds the page text from positioned glyphs, one row per
// baseline. Text operators alone do not mark line breaks reliably.
func (d *pdfDocument) PlainText(n int) (string, error) {
	words, err := d.Words(n)
	if err != nil {
		return "", err
	}
	return joinRows(words, rowTolerance), nil
}

func (d *pdfDocument) Close() error {
	return d.f.Close()
}

// joinRows joins words with spaces, starting a new line whenever the
// baseline moves by more than tol.
func joinRows(words []docmodel.Word, tol float64) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			if math.Abs(w.Bottom-words[i-1].Bottom) > tol {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.Text)
	}
	return b.String()
}

// glyphWords merges the per-glyph text runs reported by ledongthuc/pdf into
// words. A word ends at a whitespace glyph, a baseline or font size change,
// or a horizontal gap wider than wordGapRatio of the font size.
func glyphWords(glyphs []pdflib.Text) []docmodel.Word {
	var words []docmodel.Word
	var cur strings.Builder
	var bottom, size, lastEnd float64
	var lastWidth float64

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, docmodel.Word{Text: cur.String(), Bottom: bottom, Size: size})
			cur.Reset()
		}
	}

	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		if cur.Len() > 0 {
			gapped := lastWidth > 0 && g.X-lastEnd > wordGapRatio*size
			if g.Y != bottom || g.FontSize != size || gapped {
				flush()
			}
		}
		if cur.Len() == 0 {
			bottom, size = g.Y, g.FontSize
		}
		cur.WriteString(g.S)
		lastEnd = g.X + g.W
		lastWidth = g.W
	}
	flush()
	return words
}

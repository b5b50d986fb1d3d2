package parser

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docfocus/internal/docmodel"
	"github.com/tsawler/tabula/reader"
)

// TabulaSource reads PDFs with tabula's content-stream extractor.
type TabulaSource struct{}

func (s *TabulaSource) Open(path string) (doc Document, err error) {
	defer recoverPage(&err)
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n, err := r.PageCount()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("count pages: %w", err)
	}
	return &tabulaDocument{r: r, pages: n}, nil
}

type tabulaDocument struct {
	r     *reader.Reader
	pages int
}

func (d *tabulaDocument) NumPages() int { return d.pages }

func (d *tabulaDocument) Words(n int) (words []docmodel.Word, err error) {
	defer recoverPage(&err)
	page, err := d.r.GetPage(n - 1)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	frags, err := d.r.ExtractTextFragments(page)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	for _, f := range frags {
		for _, tok := range strings.Fields(f.Text) {
			words = append(words, docmodel.Word{Text: tok, Bottom: f.Y, Size: f.FontSize})
		}
	}
	return words, nil
}

func (d *tabulaDocument) PlainText(n int) (string, error) {
	words, err := d.Words(n)
	if err != nil {
		return "", err
	}
	return joinRows(words, rowTolerance), nil
}

func (d *tabulaDocument) Close() error {
	return d.r.Close()
}

package parser

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docfocus/internal/docmodel"
)

// Structured formats carry no font sizes, so heading levels are mapped onto
// sizes that rank the same way a typeset document would.
const (
	bodySize     = 10.0
	blockLeading = 14.0
)

// block is one logical line of a structured document. Level 0 is body text.
type block struct {
	text  string
	level int
}

func blockSize(level int) float64 {
	if level <= 0 {
		return bodySize
	}
	return 24 - 2*float64(level-1)
}

// bodyBlocks splits text into one body block per non-blank line.
func bodyBlocks(text string) []block {
	var out []block
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, block{text: line})
		}
	}
	return out
}

// blockDocument serves pre-parsed pages of blocks. Every block becomes a
// single word on its own baseline.
type blockDocument struct {
	pages [][]block
}

func (d *blockDocument) NumPages() int { return len(d.pages) }

func (d *blockDocument) Words(page int) ([]docmodel.Word, error) {
	if page < 1 || page > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, len(d.pages))
	}
	blocks := d.pages[page-1]
	words := make([]docmodel.Word, 0, len(blocks))
	for i, b := range blocks {
		words = append(words, docmodel.Word{
			Text:   b.text,
			Bottom: float64(i) * blockLeading,
			Size:   blockSize(b.level),
		})
	}
	return words, nil
}

func (d *blockDocument) PlainText(page int) (string, error) {
	if page < 1 || page > len(d.pages) {
		return "", fmt.Errorf("page %d out of range (1-%d)", page, len(d.pages))
	}
	lines := make([]string, 0, len(d.pages[page-1]))
	for _, b := range d.pages[page-1] {
		lines = append(lines, b.text)
	}
	return strings.Join(lines, "\n"), nil
}

func (d *blockDocument) Close() error { return nil }

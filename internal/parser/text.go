package parser

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// TextSource handles plain text files. Form feeds separate pages; text
// files carry no heading structure, so segmentation takes its fallback path.
type TextSource struct{}

func (s *TextSource) Open(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open text: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &blockDocument{pages: [][]block{nil}}
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\f")
		for i, part := range parts {
			if i > 0 {
				doc.pages = append(doc.pages, nil)
			}
			last := len(doc.pages) - 1
			doc.pages[last] = append(doc.pages[last], bodyBlocks(part)...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return doc, nil
}

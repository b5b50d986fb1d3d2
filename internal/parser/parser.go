package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docfocus/internal/docmodel"
)

// ErrExtractPanic marks a page or document the extraction library crashed on.
var ErrExtractPanic = errors.New("extraction panicked")

// Document is an opened source whose pages are read one at a time.
// Page numbers are 1-based.
type Document interface {
	NumPages() int
	Words(page int) ([]docmodel.Word, error)
	PlainText(page int) (string, error)
	Close() error
}

// Source opens documents from disk.
type Source interface {
	Open(path string) (Document, error)
}

// Options selects the PDF backend.
type Options struct {
	PDFBackend     string // "ledongthuc" (default) or "tabula"
	FallbackTabula bool   // retry with tabula when the primary backend cannot open a file
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate source for a filename.
func ForFile(filename string, opts Options) (Source, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		if opts.PDFBackend == "tabula" {
			return &TabulaSource{}, nil
		}
		return &PDFSource{FallbackTabula: opts.FallbackTabula}, nil
	case ".txt":
		return &TextSource{}, nil
	case ".md", ".markdown":
		return &MarkdownSource{}, nil
	case ".html", ".htm":
		return &HTMLSource{}, nil
	case ".docx":
		return &DOCXSource{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func recoverPage(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrExtractPanic, r)
	}
}

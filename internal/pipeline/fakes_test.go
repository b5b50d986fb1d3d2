package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docfocus/internal/config"
	"github.com/dgallion1/docfocus/internal/docmodel"
	"github.com/dgallion1/docfocus/internal/parser"
)

// textLine is one visual line of a fake page.
type textLine struct {
	text string
	size float64
}

func heading(text string) textLine { return textLine{text, 18} }
func body(text string) textLine    { return textLine{text, 10} }

type fakeDoc struct {
	pages [][]textLine
}

func (d *fakeDoc) NumPages() int { return len(d.pages) }

func (d *fakeDoc) Words(page int) ([]docmodel.Word, error) {
	var words []docmodel.Word
	for i, l := range d.pages[page-1] {
		for _, f := range strings.Fields(l.text) {
			words = append(words, docmodel.Word{Text: f, Bottom: float64(100 + i*20), Size: l.size})
		}
	}
	return words, nil
}

func (d *fakeDoc) PlainText(page int) (string, error) {
	var lines []string
	for _, l := range d.pages[page-1] {
		lines = append(lines, l.text)
	}
	return strings.Join(lines, "\n"), nil
}

func (d *fakeDoc) Close() error { return nil }

type fakeSource struct{ doc *fakeDoc }

func (s fakeSource) Open(string) (parser.Document, error) {
	if s.doc == nil {
		return nil, errors.New("malformed document")
	}
	return s.doc, nil
}

// fakeLibrary serves fake documents by base filename. Unknown names fail to open.
type fakeLibrary map[string]*fakeDoc

func (l fakeLibrary) source(path string) (parser.Source, error) {
	return fakeSource{doc: l[filepath.Base(path)]}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		PDFBackend:   "ledongthuc",
		WorkerCount:  1,
		MaxQueueSize: 4,
		Pipeline:     config.DefaultPipeline(),
	}
}

func newTestAnalyzer(lib fakeLibrary) *Analyzer {
	return NewAnalyzer(testConfig(), quietLogger()).WithSource(lib.source)
}

const (
	introBody   = "This report describes the background of the study and the motivation for the survey."
	methodsBody = "We describe the research methods used: sampling methods, interview methods and statistical analysis."
)

// studyDoc is a two-page paper with an Introduction and a Methods section.
func studyDoc() *fakeDoc {
	return &fakeDoc{pages: [][]textLine{
		{heading("Introduction"), body(introBody)},
		{heading("Methods"), body(methodsBody)},
	}}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Package collection reads job records and writes result records for
// collection folders laid out as
//
//	<base>/Collection N/challenge1b_input.json
//	<base>/Collection N/PDFs/<filename>
//	<base>/Collection N/challenge1b_output.json
package collection

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	InputFile   = "challenge1b_input.json"
	OutputFile  = "challenge1b_output.json"
	DocumentDir = "PDFs"
	DirPrefix   = "Collection"

	// TimestampLayout renders processing_timestamp as local time with microseconds.
	TimestampLayout = "2006-01-02T15:04:05.000000"
	// wholeSecondLayout is used when the sub-second part is below a microsecond.
	wholeSecondLayout = "2006-01-02T15:04:05"
)

// FormatTimestamp renders t as a naive local ISO-8601 timestamp. The
// fractional part is microseconds and is left out entirely when zero.
func FormatTimestamp(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(wholeSecondLayout)
	}
	return t.Format(TimestampLayout)
}

var validate = validator.New()

type DocumentRef struct {
	Filename string `json:"filename" validate:"required"`
	Title    string `json:"title,omitempty"`
}

type Persona struct {
	Role string `json:"role"`
}

type JobToBeDone struct {
	Task string `json:"task"`
}

// Input is the job record of one collection.
type Input struct {
	Documents   []DocumentRef `json:"documents" validate:"dive"`
	Persona     Persona       `json:"persona"`
	JobToBeDone JobToBeDone   `json:"job_to_be_done"`
}

// Query joins the trimmed persona role and task with one space.
func (in *Input) Query() string {
	return strings.TrimSpace(in.Persona.Role) + " " + strings.TrimSpace(in.JobToBeDone.Task)
}

type Metadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
}

type ExtractedSection struct {
	Document       string `json:"document"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
	PageNumber     int    `json:"page_number"`
}

type SubsectionAnalysis struct {
	Document    string `json:"document"`
	RefinedText string `json:"refined_text"`
	PageNumber  int    `json:"page_number"`
}

// Result is the output record of one analysis.
type Result struct {
	Metadata           Metadata             `json:"metadata"`
	ExtractedSections  []ExtractedSection   `json:"extracted_sections"`
	SubsectionAnalysis []SubsectionAnalysis `json:"subsection_analysis"`
}

// DecodeInput parses and validates a job record.
func DecodeInput(r io.Reader) (*Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode job record: %w", err)
	}
	if err := validate.Struct(&in); err != nil {
		return nil, fmt.Errorf("validate job record: %w", err)
	}
	return &in, nil
}

// ReadInput loads the job record at path. A missing file is reported with
// an error wrapping fs.ErrNotExist.
func ReadInput(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open job record: %w", err)
	}
	defer f.Close()
	return DecodeInput(f)
}

// Encode writes res as two-space indented JSON with non-ASCII and HTML
// characters left unescaped.
func Encode(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteResult writes res to path through a temporary file in the same
// directory, so an existing file is replaced only by a complete record.
func WriteResult(path string, res *Result) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".docfocus-*.json")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Encode(tmp, res); err != nil {
		tmp.Close()
		return fmt.Errorf("encode result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docfocus/internal/collection"
	"github.com/dgallion1/docfocus/internal/config"
	"github.com/dgallion1/docfocus/internal/pipeline"
)

const testKey = "secret-key"

const studyMarkdown = `# Introduction

This report describes the background of the study and the motivation for the survey.

# Methods

We describe the research methods used: sampling methods, interview methods and statistical analysis.
`

const studyRecord = `{
  "documents": [{"filename": "study.md", "title": "Study"}],
  "persona": {"role": "Researcher"},
  "job_to_be_done": {"task": "review the research methods"}
}`

func newTestServer(t *testing.T) (*Server, config.Config) {
	t.Helper()
	cfg := config.Config{
		APIKey:         testKey,
		CollectionsDir: t.TempDir(),
		WorkerCount:    1,
		MaxQueueSize:   4,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
		PDFBackend:     "ledongthuc",
		Pipeline:       config.DefaultPipeline(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, pipeline.NewAnalyzer(cfg, log), log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, log, cfg), cfg
}

func do(t *testing.T, srv http.Handler, req *http.Request, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	if auth {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

// analyzeRequest builds a multipart upload with the record and named files.
func analyzeRequest(t *testing.T, record string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if record != "" {
		if err := mw.WriteField("input", record); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth_Public(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/health", nil), false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out map[string]any
	decode(t, rr, &out)
	if out["status"] != "ok" {
		t.Errorf("unexpected body %v", out)
	}
}

func TestMetrics_Public(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil), false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/stats/analysis", nil), false)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats/analysis", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = do(t, srv, req, false)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rr.Code)
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/stats/analysis", nil), true)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rr.Code)
	}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, analyzeRequest(t, studyRecord, map[string]string{
		"study.md":  studyMarkdown,
		"notes.exe": "binary",
	}), true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var accepted struct {
		JobID     string              `json:"job_id"`
		Documents []string            `json:"documents"`
		Rejected  []map[string]string `json:"rejected"`
		ResultURL string              `json:"result_url"`
	}
	decode(t, rr, &accepted)
	if accepted.JobID == "" || len(accepted.Documents) != 1 || len(accepted.Rejected) != 1 {
		t.Fatalf("unexpected accept body %+v", accepted)
	}

	var res collection.Result
	deadline := time.Now().Add(5 * time.Second)
	for {
		rr = do(t, srv, httptest.NewRequest(http.MethodGet, accepted.ResultURL, nil), true)
		if rr.Code == http.StatusOK {
			decode(t, rr, &res)
			break
		}
		if rr.Code != http.StatusConflict {
			t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not complete")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(res.ExtractedSections) != 2 || res.ExtractedSections[0].SectionTitle != "Methods" {
		t.Fatalf("unexpected sections %+v", res.ExtractedSections)
	}
	if !strings.Contains(res.SubsectionAnalysis[0].RefinedText, "research methods") {
		t.Errorf("unexpected refinement %q", res.SubsectionAnalysis[0].RefinedText)
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/analyze/"+accepted.JobID+"/status", nil), true)
	var snap pipeline.JobSnapshot
	decode(t, rr, &snap)
	if snap.Status != pipeline.StatusCompleted || snap.Progress.SectionsFound != 2 {
		t.Errorf("unexpected status snapshot %+v", snap)
	}
}

func TestAnalyze_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		record string
		files  map[string]string
		want   int
	}{
		{"missing input", "", map[string]string{"study.md": studyMarkdown}, http.StatusBadRequest},
		{"invalid input", `{"documents": 5}`, map[string]string{"study.md": studyMarkdown}, http.StatusBadRequest},
		{"no files", studyRecord, nil, http.StatusBadRequest},
		{"files not in record", studyRecord, map[string]string{"other.md": studyMarkdown}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, analyzeRequest(t, tt.record, tt.files), true)
			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestAnalyzeStatus_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/api/analyze/nope/status", "/api/analyze/nope/result"} {
		rr := do(t, srv, httptest.NewRequest(http.MethodGet, path, nil), true)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rr.Code)
		}
	}
}

func TestCollections_ListAndRun(t *testing.T) {
	srv, cfg := newTestServer(t)
	dir := filepath.Join(cfg.CollectionsDir, "Collection 1")
	if err := os.MkdirAll(filepath.Join(dir, collection.DocumentDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, collection.InputFile), []byte(studyRecord), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, collection.DocumentDir, "study.md"), []byte(studyMarkdown), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.CollectionsDir, "Collection 2"), 0o755); err != nil {
		t.Fatal(err)
	}

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/collections", nil), true)
	var list struct {
		Collections []collectionInfo `json:"collections"`
	}
	decode(t, rr, &list)
	if len(list.Collections) != 2 || !list.Collections[0].HasInput || list.Collections[0].HasOutput {
		t.Fatalf("unexpected listing %+v", list.Collections)
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/collections/Collection%201/run", nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res collection.Result
	decode(t, rr, &res)
	if len(res.ExtractedSections) != 2 {
		t.Errorf("expected 2 sections, got %d", len(res.ExtractedSections))
	}
	if _, err := os.Stat(filepath.Join(dir, collection.OutputFile)); err != nil {
		t.Errorf("expected output file written: %v", err)
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/collections/Collection%202/run", nil), true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for collection without record, got %d", rr.Code)
	}
	rr = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/collections/Missing/run", nil), true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-collection name, got %d", rr.Code)
	}
	rr = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/collections/Collection%209/run", nil), true)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown collection, got %d", rr.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		`C:\docs\report.pdf`:  "report.pdf",
		"..":                  "_",
		"":                    "unnamed",
		"dir/":                "dir",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

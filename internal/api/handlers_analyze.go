package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docfocus/internal/collection"
	"github.com/dgallion1/docfocus/internal/parser"
	"github.com/dgallion1/docfocus/internal/pipeline"
)

// handleAnalyze accepts a job record (form field or file part "input") and
// the documents it names (file parts "files"), and queues an analysis.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	in, err := readInputPart(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	work, err := os.MkdirTemp("", "docfocus-upload-*")
	if err != nil {
		s.log.Error("create upload dir", "error", err)
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	var rejected []map[string]string
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			rejected = append(rejected, map[string]string{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}
		if err := saveUpload(fh, filepath.Join(work, filename)); err != nil {
			rejected = append(rejected, map[string]string{"filename": filename, "error": err.Error()})
		}
	}

	docs := collection.ResolveDocuments(work, in)
	if len(docs) == 0 {
		os.RemoveAll(work)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    "no valid documents found to analyze",
			"rejected": rejected,
		})
		return
	}

	job := pipeline.NewJob(in.Persona.Role, in.JobToBeDone.Task, work, docs)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = filepath.Base(d)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     job.ID,
		"status":     pipeline.StatusQueued,
		"documents":  names,
		"rejected":   rejected,
		"poll_url":   fmt.Sprintf("/api/analyze/%s/status", job.ID),
		"result_url": fmt.Sprintf("/api/analyze/%s/result", job.ID),
	})
}

func readInputPart(r *http.Request) (*collection.Input, error) {
	if v := r.FormValue("input"); v != "" {
		return collection.DecodeInput(strings.NewReader(v))
	}
	f, _, err := r.FormFile("input")
	if err != nil {
		return nil, fmt.Errorf("input is required")
	}
	defer f.Close()
	return collection.DecodeInput(f)
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open file")
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to store file")
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("failed to store file")
	}
	return out.Close()
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleAnalyzeResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	res := job.Result()
	if res == nil {
		snap := job.Snapshot()
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "job has no result",
			"status": snap.Status,
			"errors": snap.Progress.Errors,
		})
		return
	}
	writeResult(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, code int, res *collection.Result) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	collection.Encode(w, res)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}

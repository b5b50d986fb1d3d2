package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docfocus/internal/collection"
	"github.com/dgallion1/docfocus/internal/pipeline"
)

type collectionInfo struct {
	Name      string `json:"name"`
	HasInput  bool   `json:"has_input"`
	HasOutput bool   `json:"has_output"`
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	dirs, err := collection.Discover(s.cfg.CollectionsDir)
	if err != nil {
		s.log.Error("list collections failed", "error", err)
		jsonError(w, "failed to list collections", http.StatusInternalServerError)
		return
	}

	list := make([]collectionInfo, 0, len(dirs))
	for _, dir := range dirs {
		list = append(list, collectionInfo{
			Name:      filepath.Base(dir),
			HasInput:  fileExists(filepath.Join(dir, collection.InputFile)),
			HasOutput: fileExists(filepath.Join(dir, collection.OutputFile)),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": list})
}

// handleRunCollection processes one collection folder synchronously and
// returns the record it wrote.
func (s *Server) handleRunCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name != filepath.Base(name) || !strings.HasPrefix(name, collection.DirPrefix) {
		jsonError(w, "invalid collection name", http.StatusBadRequest)
		return
	}
	dir := filepath.Join(s.cfg.CollectionsDir, name)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		jsonError(w, "collection not found", http.StatusNotFound)
		return
	}

	res, err := s.orchestrator.Analyzer().ProcessCollection(r.Context(), dir)
	switch {
	case err == nil:
		writeResult(w, http.StatusOK, res)
	case errors.Is(err, pipeline.ErrNoInput):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pipeline.ErrNoDocuments), errors.Is(err, pipeline.ErrInvalidInput):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		s.log.Error("collection run failed", "collection", name, "error", err)
		jsonError(w, "collection run failed", http.StatusInternalServerError)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

package api

import "net/http"

func (s *Server) handleAnalysisStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.orchestrator.Analyzer().Stats().Snapshot(),
	})
}

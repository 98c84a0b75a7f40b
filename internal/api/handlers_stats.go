package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleCollectorStats(w http.ResponseWriter, r *http.Request) {
	stats := s.orchestrator.Extractor().Stats()
	if stats == nil {
		jsonError(w, "collector stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"window":      s.cfg.StatsWindow.String(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"collectors":  stats.Snapshot(),
	})
}

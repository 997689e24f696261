package web

import (
	"net/http"

	"github.com/JonMunkholm/badgemerge/internal/core"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports run-slot usage and database availability.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":     s.service.LimiterStatus(),
		"database": s.service.HasDatabase(),
	})
}

// handleListEvents returns the paid events of the newest registration
// export in the source directory.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.ListEvents(r.Context(), "")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if events == nil {
		events = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleListSources returns the exports a run would use.
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.Sources(r.Context(), "")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dir":   s.service.SourceDir(),
		"files": files,
	})
}

// handleMerge runs the merge over the source directory.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req core.RunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Run(withRequestMetadata(r.Context(), r), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeRunResult(w, r, res)
}

// handleListRuns returns recent run history, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultRunLimit)
	runs, err := s.service.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []core.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

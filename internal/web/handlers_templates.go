package web

import (
	"net/http"

	"github.com/JonMunkholm/badgemerge/internal/core"
	"github.com/go-chi/chi/v5"
)

// handleListRuleSets returns every rule set a run can name.
func (s *Server) handleListRuleSets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rule_sets": s.service.RuleSets(r.Context())})
}

// handleListTemplates returns all stored preprocessing templates.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.ListTemplates(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if templates == nil {
		templates = []core.Template{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

// handleGetTemplate returns a single template by ID.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleCreateTemplate stores a new template.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in core.TemplateInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}

	t, err := s.service.CreateTemplate(withRequestMetadata(r.Context(), r), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleUpdateTemplate replaces the fields of an existing template.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var in core.TemplateInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}

	t, err := s.service.UpdateTemplate(withRequestMetadata(r.Context(), r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTemplate removes a template.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTemplate(withRequestMetadata(r.Context(), r), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

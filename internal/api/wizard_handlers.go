package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/brand"
	"github.com/JakeFAU/brandprobe/internal/logging"
	"github.com/JakeFAU/brandprobe/internal/wizard"
)

// sessionNotFound sends the visitor back to the URL input step.
type sessionNotFound struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.deps.Wizard.Create(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, brand.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"url":        sess.URL,
		"expires_at": sess.ExpiresAt,
	})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Wizard.Get(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) refreshSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Wizard.Refresh(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) patchSession(w http.ResponseWriter, r *http.Request) {
	var override wizard.Override
	if err := decodeJSON(r, &override); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.deps.Wizard.Patch(r.Context(), chi.URLParam(r, "session_id"), override)
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) confirmSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Wizard.Confirm(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "confirmed", "profile": res})
}

func (s *Server) writeWizardError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, sessionNotFound{Error: "session not found", Redirect: "/"})
	case errors.Is(err, wizard.ErrInvalidOverride):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(r.Context(), s.logger).Warn("wizard request failed", zap.Error(err))
		writeError(w, statusForContextErr(err), "extraction did not complete")
	}
}

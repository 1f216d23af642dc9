package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/compliai/compliai/internal/application/assessments"
	"github.com/compliai/compliai/internal/domain/compliance"
	mw "github.com/compliai/compliai/internal/middleware"
)

func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	var body struct {
		Mode string `json:"mode"`
	}
	if req.ContentLength > 0 {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return fmt.Errorf("%w: invalid JSON body", errBadRequest)
		}
	}
	snap, err := r.assessments.Create(user.ID, assessments.Mode(body.Mode))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, snap)
}

func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	snap, err := r.assessments.Get(user.ID, chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

func (r *Router) handleCloseSession(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	if err := r.assessments.Close(user.ID, chi.URLParam(req, "id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (r *Router) handleToggleRegulation(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	reg, err := compliance.ParseRegulation(chi.URLParam(req, "regulation"))
	if err != nil {
		return err
	}
	snap, err := r.assessments.Toggle(req.Context(), user.ID, chi.URLParam(req, "id"), reg)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

func (r *Router) handleSetDocument(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	snap, err := r.assessments.SetDocument(req.Context(), user.ID, chi.URLParam(req, "id"), body.Text)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

// handleAnalyze triggers the explicit submit. The response carries the
// Checking snapshot; completion is observed by polling the session.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	snap, err := r.assessments.Analyze(req.Context(), user.ID, chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, snap)
}

func (r *Router) handleQuestionnaire(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	var q assessments.Questionnaire
	if err := json.NewDecoder(req.Body).Decode(&q); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	snap, err := r.assessments.SubmitQuestionnaire(req.Context(), user.ID, chi.URLParam(req, "id"), q)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, snap)
}

// handleExport streams the plain-text report as a download.
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	name, body, err := r.assessments.Export(user.ID, chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(body)
	return err
}

// handleArchiveExport uploads the report to the object store and returns the
// download URL.
func (r *Router) handleArchiveExport(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	url, err := r.assessments.Archive(req.Context(), user.ID, chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

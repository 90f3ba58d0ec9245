package http

import (
	"context"
	"net/http"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks the persistence backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, CodeNotReady, "storage unavailable").Write(w)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]any{"categories": core.Categories()}).Write(w)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(ThemeRequest{Theme: string(s.store.Theme())}).Write(w)
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	if err := s.store.SetTheme(r.Context(), ledger.Theme(req.Theme)); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().JSON(ThemeRequest{Theme: string(s.store.Theme())}).Write(w)
}

// handleExportSessions downloads the full session map. month names the
// file; it defaults to the current month and accepts "current".
func (s *Server) handleExportSessions(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthKey(r.URL.Query().Get("month"))
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	exp, err := s.store.ExportSessions(month)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Sessions exported",
		log.FieldOperation, log.OpExport,
		"file", exp.FileName)
	NewJSONResponse().Attachment(exp.FileName, exp.Data).Write(w)
}

func (s *Server) handleExportEvent(w http.ResponseWriter, r *http.Request) {
	t, err := groupTarget(r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	exp, err := s.store.ExportGroupEvent(t.Key)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Group event exported",
		log.FieldOperation, log.OpExport,
		log.FieldEventID, t.Key,
		"file", exp.FileName)
	NewJSONResponse().Attachment(exp.FileName, exp.Data).Write(w)
}

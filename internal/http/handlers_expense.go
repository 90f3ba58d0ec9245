package http

import (
	"net/http"
	"strings"

	"chitieu/internal/log"
)

func (s *Server) handleAddExpense(resolve targetResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := resolve(r)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		var req ExpenseRequest
		if err := DecodeJSON(r, &req); err != nil {
			ErrorFor(err).Write(w)
			return
		}
		e, err := req.ToExpense(s.norm)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		added, err := s.store.AddExpense(r.Context(), t, e)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		NewJSONResponse().Status(http.StatusCreated).JSON(added).Write(w)
	}
}

// handleUpdateExpense replaces an expense. In a month session a date in
// another month moves the expense to that month.
func (s *Server) handleUpdateExpense(resolve targetResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := resolve(r)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		var req ExpenseRequest
		if err := DecodeJSON(r, &req); err != nil {
			ErrorFor(err).Write(w)
			return
		}
		e, err := req.ToExpense(s.norm)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		e.ID = strings.TrimSpace(r.PathValue("expense"))
		updated, err := s.store.UpdateExpense(r.Context(), t, e)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		NewJSONResponse().JSON(updated).Write(w)
	}
}

func (s *Server) handleDeleteExpense(resolve targetResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := resolve(r)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		if err := s.store.DeleteExpense(r.Context(), t, strings.TrimSpace(r.PathValue("expense"))); err != nil {
			ErrorFor(err).Write(w)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleToggleLock(resolve targetResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := resolve(r)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		locked, err := s.store.ToggleLock(r.Context(), t)
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		log.FromContext(r.Context()).DebugContext(r.Context(), "Lock toggled",
			log.FieldTarget, t.String(),
			"locked", locked)
		NewJSONResponse().JSON(lockResponse{Mode: t.Mode, Key: t.Key, IsLocked: locked}).Write(w)
	}
}

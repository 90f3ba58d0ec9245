package http

import (
	"net/http"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/normalize"
)

type sessionSummary struct {
	Month    string     `json:"month"`
	Total    core.Money `json:"total"`
	Count    int        `json:"count"`
	Budget   core.Money `json:"budget,omitempty"`
	IsLocked bool       `json:"isLocked"`
}

type sessionsResponse struct {
	Current  string           `json:"current"`
	Sessions []sessionSummary `json:"sessions"`
}

// sessionResponse is one month as the UI renders it. Previous and Next are
// the neighbouring month keys for navigation.
type sessionResponse struct {
	Month    string         `json:"month"`
	Previous string         `json:"previous"`
	Next     string         `json:"next"`
	IsLocked bool           `json:"isLocked"`
	Budget   core.Money     `json:"budget,omitempty"`
	Expenses []core.Expense `json:"expenses"`
	Summary  core.Summary   `json:"summary"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.store.Sessions()
	out := sessionsResponse{Current: s.store.CurrentMonth(), Sessions: []sessionSummary{}}
	for _, key := range s.store.SessionKeys() {
		sess := sessions[key]
		out.Sessions = append(out.Sessions, sessionSummary{
			Month:    key,
			Total:    sess.Total(),
			Count:    len(sess.Expenses),
			Budget:   sess.Budget,
			IsLocked: sess.Locked(),
		})
	}
	NewJSONResponse().JSON(out).Write(w)
}

// handleGetSession returns one month. A month without a session is
// returned empty and unlocked.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	t, err := s.personalTarget(r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	expenses, err := s.store.Expenses(t)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	prev, _ := core.ShiftMonth(t.Key, -1)
	next, _ := core.ShiftMonth(t.Key, 1)
	sess, _ := s.store.Session(t.Key)

	NewJSONResponse().JSON(sessionResponse{
		Month:    t.Key,
		Previous: prev,
		Next:     next,
		IsLocked: sess.Locked(),
		Budget:   sess.Budget,
		Expenses: expenses,
		Summary:  core.Summarize(expenses),
	}).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	t, err := s.personalTarget(r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	var req BudgetRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	budget := normalize.ParseAmount(req.Budget)
	if budget < 0 {
		ErrorFor(core.ErrInvalidAmount).Write(w)
		return
	}
	if err := s.store.SetBudget(r.Context(), t.Key, budget); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().JSON(map[string]any{"month": t.Key, "budget": budget}).Write(w)
}

// lockResponse reports the lock state after a toggle.
type lockResponse struct {
	Mode     ledger.Mode `json:"mode"`
	Key      string      `json:"key"`
	IsLocked bool        `json:"isLocked"`
}

package http

import (
	"net/http"
	"time"

	"chitieu/internal/core"
)

type eventSummary struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	StartDate  time.Time          `json:"startDate"`
	EndDate    *time.Time         `json:"endDate,omitempty"`
	Role       core.GroupRole     `json:"role"`
	Members    []core.GroupMember `json:"members"`
	IsArchived bool               `json:"isArchived"`
	Total      core.Money         `json:"total"`
	Count      int                `json:"count"`
}

type eventResponse struct {
	Event    eventSummary   `json:"event"`
	Expenses []core.Expense `json:"expenses"`
	Summary  core.Summary   `json:"summary"`
}

func summarizeEvent(ev core.GroupEvent) eventSummary {
	members := ev.Members
	if members == nil {
		members = []core.GroupMember{}
	}
	return eventSummary{
		ID:         ev.ID,
		Name:       ev.Name,
		StartDate:  ev.StartDate,
		EndDate:    ev.EndDate,
		Role:       ev.Role,
		Members:    members,
		IsArchived: ev.Locked(),
		Total:      ev.Total(),
		Count:      len(ev.Expenses),
	}
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events := s.store.GroupEvents()
	out := make([]eventSummary, 0, len(events))
	for _, ev := range events {
		out = append(out, summarizeEvent(ev))
	}
	NewJSONResponse().JSON(map[string]any{"events": out}).Write(w)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	ev, err := req.ToEvent(s.store.Location())
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	created, err := s.store.CreateGroupEvent(r.Context(), ev)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/events/"+created.ID).
		JSON(summarizeEvent(created)).
		Write(w)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	t, err := groupTarget(r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	ev, ok := s.store.GroupEvent(t.Key)
	if !ok {
		NotFoundError("group event not found").Write(w)
		return
	}
	expenses, err := s.store.Expenses(t)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().JSON(eventResponse{
		Event:    summarizeEvent(ev),
		Expenses: expenses,
		Summary:  core.Summarize(expenses),
	}).Write(w)
}

// Package http exposes the ledger as a JSON API.
//
// This file turns request bodies and path values into domain values.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/normalize"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// targetResolver extracts the session or event a route operates on.
type targetResolver func(*http.Request) (ledger.Target, error)

// currentAlias names the month of today wherever a month key is accepted.
const currentAlias = "current"

// monthKey resolves the current alias and validates the result. An empty
// month is the current one.
func (s *Server) monthKey(month string) (string, error) {
	month = strings.TrimSpace(month)
	if month == "" || strings.EqualFold(month, currentAlias) {
		month = s.store.CurrentMonth()
	}
	if !core.ValidMonthKey(month) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}
	return month, nil
}

func (s *Server) personalTarget(r *http.Request) (ledger.Target, error) {
	month, err := s.monthKey(r.PathValue("month"))
	if err != nil {
		return ledger.Target{}, err
	}
	return ledger.Personal(month), nil
}

func groupTarget(r *http.Request) (ledger.Target, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return ledger.Target{}, fmt.Errorf("%w: missing event id", ledger.ErrInvalidTarget)
	}
	return ledger.Group(id), nil
}

// DecodeJSON reads a JSON body into dst. Oversized, malformed or trailing
// content is a bad request.
func DecodeJSON(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	if len(data) > maxBodyBytes {
		return fmt.Errorf("%w: body larger than %d bytes", errBadRequest, maxBodyBytes)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after JSON body", errBadRequest)
	}
	return nil
}

// ExpenseRequest is the body of expense create and update. Amount and Date
// accept the same shapes as imported records: numbers or strings.
type ExpenseRequest struct {
	Amount   any    `json:"amount"`
	Note     string `json:"note"`
	Category string `json:"category"`
	Date     any    `json:"date"`
}

// ToExpense validates the request. A missing category is classified from
// the note; a missing note takes the category label; a missing date is now.
func (req ExpenseRequest) ToExpense(n *normalize.Normalizer) (core.Expense, error) {
	amount := normalize.ParseAmount(req.Amount)
	if err := amount.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, req.Amount)
	}

	note := sanitizeInput(req.Note)
	var cat core.Category
	if c := strings.TrimSpace(req.Category); c != "" {
		parsed, ok := core.ParseCategory(c)
		if !ok {
			return core.Expense{}, fmt.Errorf("%w: %q", core.ErrInvalidCategory, c)
		}
		cat = parsed
	} else {
		cat = normalize.DetectCategory(note)
	}
	if note == "" {
		note = cat.Label()
	}

	return core.Expense{
		Amount:   amount,
		Note:     note,
		Category: cat,
		Date:     n.ParseDate(req.Date),
	}, nil
}

// EventRequest is the body of group event creation. Dates are
// "YYYY-MM-DD" or RFC 3339.
type EventRequest struct {
	Name      string   `json:"name"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Role      string   `json:"role"`
	Members   []string `json:"members"`
}

func (req EventRequest) ToEvent(loc *time.Location) (core.GroupEvent, error) {
	ev := core.GroupEvent{
		Name: sanitizeInput(req.Name),
		Role: core.GroupRole(strings.ToUpper(strings.TrimSpace(req.Role))),
	}
	if s := strings.TrimSpace(req.StartDate); s != "" {
		t, err := parseEventDate(s, loc)
		if err != nil {
			return core.GroupEvent{}, err
		}
		ev.StartDate = t
	}
	if s := strings.TrimSpace(req.EndDate); s != "" {
		t, err := parseEventDate(s, loc)
		if err != nil {
			return core.GroupEvent{}, err
		}
		ev.EndDate = &t
	}
	for _, m := range req.Members {
		if name := sanitizeInput(m); name != "" {
			ev.Members = append(ev.Members, core.GroupMember{Name: name})
		}
	}
	return ev, nil
}

func parseEventDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", errBadRequest, s)
}

// SheetImportRequest names the spreadsheet range to import. Event selects
// group mode.
type SheetImportRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range"`
	Event         string `json:"event"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type BudgetRequest struct {
	Budget any `json:"budget"`
}

package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RoleOwner  GroupRole = "OWNER"
	RoleMember GroupRole = "MEMBER"
)

type (
	GroupRole string

	Expense struct {
		ID       string    `json:"id"`
		Amount   Money     `json:"amount"`
		Note     string    `json:"note"`
		Category Category  `json:"category"`
		Date     time.Time `json:"date"`
	}

	// MonthlySession holds the personal expenses of one calendar month.
	// ID is the month key ("YYYY-MM") it is stored under.
	MonthlySession struct {
		ID          string    `json:"id"`
		Expenses    []Expense `json:"expenses"`
		Budget      Money     `json:"budget,omitempty"`
		IsCompleted bool      `json:"isCompleted,omitempty"`
	}

	GroupMember struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// GroupEvent is a shared occasion or fund. StartDate/EndDate are
	// informational only and are not checked against expense dates.
	GroupEvent struct {
		ID         string        `json:"id"`
		Name       string        `json:"name"`
		StartDate  time.Time     `json:"startDate"`
		EndDate    *time.Time    `json:"endDate,omitempty"`
		Role       GroupRole     `json:"role"`
		Members    []GroupMember `json:"members"`
		Expenses   []Expense     `json:"expenses"`
		IsArchived bool          `json:"isArchived,omitempty"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidDate      = errors.New("date cannot be zero")
	ErrInvalidMonthKey  = errors.New("invalid month key")
	ErrEmptyEventName   = errors.New("empty event name")
	ErrEventNameTooLong = errors.New("event name too long (max 200 characters)")
	ErrInvalidRole      = errors.New("invalid group role")
	ErrEmptyMemberName  = errors.New("empty member name")
	ErrEndBeforeStart   = errors.New("end date must not be before start date")
)

// Validate reports whether e may enter the ledger. The id is not checked:
// it is assigned by the store.
func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Locked reports whether the session rejects mutations.
func (s MonthlySession) Locked() bool { return s.IsCompleted }

// Total sums the amounts of the session.
func (s MonthlySession) Total() Money { return SumAmounts(s.Expenses) }

func (r GroupRole) IsValid() bool {
	return r == RoleOwner || r == RoleMember
}

// Locked reports whether the event rejects mutations.
func (g GroupEvent) Locked() bool { return g.IsArchived }

// Total sums the amounts of the event.
func (g GroupEvent) Total() Money { return SumAmounts(g.Expenses) }

func (g GroupEvent) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyEventName
	}
	if len(g.Name) > 200 {
		return ErrEventNameTooLong
	}
	if !g.Role.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, g.Role)
	}
	if g.EndDate != nil && !g.StartDate.IsZero() && g.EndDate.Before(g.StartDate) {
		return ErrEndBeforeStart
	}
	for _, m := range g.Members {
		if strings.TrimSpace(m.Name) == "" {
			return ErrEmptyMemberName
		}
	}
	return nil
}

// MonthKey returns the "YYYY-MM" partition key of t in t's own location.
// Callers convert t to the ledger's location first.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// ParseMonthKey returns the year and month encoded in a "YYYY-MM" key.
func ParseMonthKey(key string) (year int, month time.Month, err error) {
	t, perr := time.Parse("2006-01", strings.TrimSpace(key))
	if perr != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	return t.Year(), t.Month(), nil
}

// ValidMonthKey reports whether key is a well-formed "YYYY-MM" key.
func ValidMonthKey(key string) bool {
	_, _, err := ParseMonthKey(key)
	return err == nil && len(key) == 7
}

// ShiftMonth moves a month key by delta months (negative goes back).
func ShiftMonth(key string, delta int) (string, error) {
	y, m, err := ParseMonthKey(key)
	if err != nil {
		return "", err
	}
	t := time.Date(y, m+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return MonthKey(t), nil
}

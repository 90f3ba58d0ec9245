package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chitieu/internal/core"
)

// Mode selects between personal month sessions and group events.
type Mode string

const (
	ModePersonal Mode = "personal"
	ModeGroup    Mode = "group"
)

// Target addresses one container: a month key in personal mode or an
// event id in group mode.
type Target struct {
	Mode Mode
	Key  string
}

func Personal(month string) Target { return Target{Mode: ModePersonal, Key: month} }
func Group(eventID string) Target  { return Target{Mode: ModeGroup, Key: eventID} }

func (t Target) String() string { return string(t.Mode) + ":" + t.Key }

// Validate checks the mode and, in personal mode, the month key.
func (t Target) Validate() error {
	switch t.Mode {
	case ModePersonal:
		if !core.ValidMonthKey(t.Key) {
			return fmt.Errorf("%w: %w", ErrInvalidTarget, core.ErrInvalidMonthKey)
		}
	case ModeGroup:
		if strings.TrimSpace(t.Key) == "" {
			return fmt.Errorf("%w: empty event id", ErrInvalidTarget)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidTarget, t.Mode)
	}
	return nil
}

// Theme is the persisted UI colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) IsValid() bool { return t == ThemeLight || t == ThemeDark }

var (
	// ErrLocked is returned when a mutation targets a locked session or an
	// archived event. The store is left unchanged.
	ErrLocked          = errors.New("target is locked")
	ErrExpenseNotFound = errors.New("expense not found")
	ErrEventNotFound   = errors.New("group event not found")
	ErrInvalidTarget   = errors.New("invalid target")
	ErrInvalidTheme    = errors.New("invalid theme")
	ErrMissingID       = errors.New("expense id is required")
)

// State is everything the store persists: two independently keyed blobs
// and the theme scalar.
type State struct {
	Sessions map[string]core.MonthlySession
	Events   []core.GroupEvent
	Theme    Theme
}

// Persister is the durable storage collaborator. Each blob is written on
// its own; a failed write leaves the in-memory state authoritative.
type Persister interface {
	Load(ctx context.Context) (State, error)
	SaveSessions(ctx context.Context, sessions map[string]core.MonthlySession) error
	SaveEvents(ctx context.Context, events []core.GroupEvent) error
	SaveTheme(ctx context.Context, theme Theme) error
}

// Change operations carried by Event.
const (
	EventAdd         = "add"
	EventUpdate      = "update"
	EventDelete      = "delete"
	EventLock        = "lock"
	EventUnlock      = "unlock"
	EventCreateGroup = "create_event"
	EventMerge       = "merge"
	EventImport      = "import"
)

// Event describes one applied change. Notifiers publish it to whoever is
// listening; nothing in the store depends on delivery.
type Event struct {
	Op        string    `json:"op"`
	Mode      Mode      `json:"mode"`
	Key       string    `json:"key"`
	ExpenseID string    `json:"expense_id,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier receives change events after they are applied.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

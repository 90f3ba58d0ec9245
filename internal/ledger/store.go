// Package ledger owns the expense ledger: month sessions in personal mode,
// group events in group mode, and the lock rules governing mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chitieu/internal/core"
	"chitieu/internal/log"
	"chitieu/internal/metrics"
)

// Store is the single authority over ledger state. All mutations go
// through it, are serialized by its mutex and written back to the
// persister before the call returns.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]core.MonthlySession
	events   []core.GroupEvent
	theme    Theme

	persister Persister
	notifier  Notifier
	logger    *log.Logger
	slog      *log.StructuredLogger
	loc       *time.Location
	now       func() time.Time
	newID     func() string
}

type Option func(*Store)

// WithLocation sets the zone month keys are derived in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithNotifier(n Notifier) Option { return func(s *Store) { s.notifier = n } }

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithIDGenerator replaces the uuid generator. Tests use it for stable ids.
func WithIDGenerator(f func() string) Option { return func(s *Store) { s.newID = f } }

// NewStore returns an empty store. Call Load to read persisted state. A
// nil persister keeps everything in memory.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		sessions:  make(map[string]core.MonthlySession),
		theme:     ThemeLight,
		persister: p,
		logger:    log.Discard(),
		loc:       time.Local,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.slog = log.NewStructuredLogger(s.logger)
	return s
}

// Location is the zone month keys are derived in.
func (s *Store) Location() *time.Location { return s.loc }

// MonthKeyOf returns the month key of t in the store's zone.
func (s *Store) MonthKeyOf(t time.Time) string { return core.MonthKey(t.In(s.loc)) }

// CurrentMonth is the month key of the current instant.
func (s *Store) CurrentMonth() string { return s.MonthKeyOf(s.now()) }

// Load replaces the in-memory state with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	st, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]core.MonthlySession, len(st.Sessions))
	for k, sess := range st.Sessions {
		sess.ID = k
		s.sessions[k] = cloneSession(sess)
	}
	s.events = cloneEvents(st.Events)
	if st.Theme.IsValid() {
		s.theme = st.Theme
	}
	s.logger.InfoContext(ctx, "Ledger loaded",
		"sessions", len(s.sessions),
		"group_events", len(s.events))
	return nil
}

// AddExpense assigns a fresh id and prepends e to the target. In personal
// mode an empty key means the month of e.Date.
func (s *Store) AddExpense(ctx context.Context, t Target, e core.Expense) (core.Expense, error) {
	if t.Mode == ModePersonal && t.Key == "" && !e.Date.IsZero() {
		t.Key = s.MonthKeyOf(e.Date)
	}
	if err := t.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	var pending *Event
	defer func() { s.notify(ctx, pending) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.newID()
	var err error
	switch t.Mode {
	case ModePersonal:
		sess := s.sessionLocked(t.Key)
		if sess.Locked() {
			err = ErrLocked
			break
		}
		sess.Expenses = prepend(sess.Expenses, e)
		s.sessions[t.Key] = sess
	case ModeGroup:
		i := s.eventIndex(t.Key)
		switch {
		case i < 0:
			err = ErrEventNotFound
		case s.events[i].Locked():
			err = ErrLocked
		default:
			s.events[i].Expenses = prepend(s.events[i].Expenses, e)
		}
	}
	pending = s.finish(ctx, log.OpAdd, t, err, Event{Op: EventAdd, ExpenseID: e.ID, Count: 1})
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// UpdateExpense replaces the expense with e.ID. Group events update in
// place. Personal sessions relocate the record when its month changes: it
// is removed from the session holding it and appended to the session of
// the new date, which is created if needed. Both sessions must be open.
func (s *Store) UpdateExpense(ctx context.Context, t Target, e core.Expense) (core.Expense, error) {
	if err := t.Validate(); err != nil {
		return core.Expense{}, err
	}
	if strings.TrimSpace(e.ID) == "" {
		return core.Expense{}, ErrMissingID
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	var pending *Event
	defer func() { s.notify(ctx, pending) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	ev := Event{Op: EventUpdate, ExpenseID: e.ID, Count: 1}
	switch t.Mode {
	case ModeGroup:
		err = s.updateInEvent(t.Key, e)
	case ModePersonal:
		var dest string
		dest, err = s.updateInSession(t.Key, e)
		if err == nil && dest != t.Key {
			ev.Key = dest
		}
	}
	pending = s.finish(ctx, log.OpUpdate, t, err, ev)
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *Store) updateInEvent(id string, e core.Expense) error {
	i := s.eventIndex(id)
	if i < 0 {
		return ErrEventNotFound
	}
	if s.events[i].Locked() {
		return ErrLocked
	}
	j := indexOf(s.events[i].Expenses, e.ID)
	if j < 0 {
		return ErrExpenseNotFound
	}
	s.events[i].Expenses[j] = e
	return nil
}

// updateInSession returns the key of the session now holding e.
func (s *Store) updateInSession(key string, e core.Expense) (string, error) {
	src, ok := s.sessions[key]
	if !ok {
		return "", ErrExpenseNotFound
	}
	if src.Locked() {
		return "", ErrLocked
	}
	j := indexOf(src.Expenses, e.ID)
	if j < 0 {
		return "", ErrExpenseNotFound
	}

	oldKey := s.MonthKeyOf(src.Expenses[j].Date)
	newKey := s.MonthKeyOf(e.Date)
	if oldKey == newKey {
		src.Expenses[j] = e
		s.sessions[key] = src
		return key, nil
	}

	if newKey != key {
		if dst, ok := s.sessions[newKey]; ok && dst.Locked() {
			return "", ErrLocked
		}
	}
	src.Expenses = remove(src.Expenses, j)
	s.sessions[key] = src
	dst := s.sessionLocked(newKey)
	dst.Expenses = append(dst.Expenses, e)
	s.sessions[newKey] = dst
	return newKey, nil
}

// DeleteExpense removes the expense with id from the target.
func (s *Store) DeleteExpense(ctx context.Context, t Target, id string) error {
	if err := t.Validate(); err != nil {
		return err
	}

	var pending *Event
	defer func() { s.notify(ctx, pending) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch t.Mode {
	case ModePersonal:
		sess, ok := s.sessions[t.Key]
		j := -1
		if ok {
			j = indexOf(sess.Expenses, id)
		}
		switch {
		case ok && sess.Locked():
			err = ErrLocked
		case j < 0:
			err = ErrExpenseNotFound
		default:
			sess.Expenses = remove(sess.Expenses, j)
			s.sessions[t.Key] = sess
		}
	case ModeGroup:
		i := s.eventIndex(t.Key)
		switch {
		case i < 0:
			err = ErrEventNotFound
		case s.events[i].Locked():
			err = ErrLocked
		default:
			j := indexOf(s.events[i].Expenses, id)
			if j < 0 {
				err = ErrExpenseNotFound
				break
			}
			s.events[i].Expenses = remove(s.events[i].Expenses, j)
		}
	}
	pending = s.finish(ctx, log.OpDelete, t, err, Event{Op: EventDelete, ExpenseID: id, Count: 1})
	return err
}

// ToggleLock flips the lock flag of the target and returns the new state.
// Toggling a month without a session creates an empty one.
func (s *Store) ToggleLock(ctx context.Context, t Target) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}

	var pending *Event
	defer func() { s.notify(ctx, pending) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		locked bool
		err    error
	)
	switch t.Mode {
	case ModePersonal:
		sess := s.sessionLocked(t.Key)
		sess.IsCompleted = !sess.IsCompleted
		locked = sess.IsCompleted
		s.sessions[t.Key] = sess
	case ModeGroup:
		i := s.eventIndex(t.Key)
		if i < 0 {
			err = ErrEventNotFound
			break
		}
		s.events[i].IsArchived = !s.events[i].IsArchived
		locked = s.events[i].IsArchived
	}
	op := EventUnlock
	if locked {
		op = EventLock
	}
	pending = s.finish(ctx, log.OpLock, t, err, Event{Op: op})
	return locked, err
}

// CreateGroupEvent assigns ids to the event and its members and prepends
// it to the event list. Role defaults to OWNER and the start date to now.
func (s *Store) CreateGroupEvent(ctx context.Context, ev core.GroupEvent) (core.GroupEvent, error) {
	ev.Name = strings.TrimSpace(ev.Name)
	if ev.Role == "" {
		ev.Role = core.RoleOwner
	}
	if ev.StartDate.IsZero() {
		ev.StartDate = s.now()
	}
	if err := ev.Validate(); err != nil {
		return core.GroupEvent{}, err
	}

	var pending *Event
	defer func() { s.notify(ctx, pending) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = s.newID()
	members := make([]core.GroupMember, 0, len(ev.Members))
	for _, m := range ev.Members {
		members = append(members, core.GroupMember{ID: s.newID(), Name: strings.TrimSpace(m.Name)})
	}
	ev.Members = members
	ev.Expenses = []core.Expense{}
	ev.IsArchived = false
	s.events = append([]core.GroupEvent{ev}, s.events...)

	pending = s.finish(ctx, log.OpCreate, Group(ev.ID), nil, Event{Op: EventCreateGroup})
	return cloneEvent(ev), nil
}

// SetBudget records the spending budget of a month. Zero clears it.
func (s *Store) SetBudget(ctx context.Context, month string, budget core.Money) error {
	t := Personal(month)
	if err := t.Validate(); err != nil {
		return err
	}
	var pending *Event
	defer func() { s.notify(ctx, pending) }()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(month)
	var err error
	if sess.Locked() {
		err = ErrLocked
	} else {
		sess.Budget = budget
		s.sessions[month] = sess
	}
	pending = s.finish(ctx, log.OpUpdate, t, err, Event{Op: EventUpdate})
	return err
}

// MergeSessions installs a full backup. Imported months overwrite existing
// ones wholesale, lock flags included; other months are kept. It returns
// the latest imported month key.
func (s *Store) MergeSessions(ctx context.Context, in map[string]core.MonthlySession) (string, error) {
	if len(in) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(in))
	for k := range in {
		if !core.ValidMonthKey(k) {
			return "", fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pending *Event
	defer func() { s.notify(ctx, pending) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, k := range keys {
		sess := cloneSession(in[k])
		sess.ID = k
		for i := range sess.Expenses {
			if sess.Expenses[i].ID == "" {
				sess.Expenses[i].ID = s.newID()
			}
		}
		count += len(sess.Expenses)
		s.sessions[k] = sess
	}
	latest := keys[len(keys)-1]
	pending = s.finish(ctx, log.OpMerge, Personal(latest), nil, Event{Op: EventMerge, Count: count})
	return latest, nil
}

// Placement is one expense routed to a target by the import pipeline.
type Placement struct {
	Target  Target
	Expense core.Expense
}

// BatchResult reports what AddBatch did.
type BatchResult struct {
	Added   int
	Skipped int
	Months  []string
}

// AddBatch prepends every placement to its target and persists once.
// Placements into locked targets are skipped. A missing group event fails
// the whole batch before anything is applied.
func (s *Store) AddBatch(ctx context.Context, placements []Placement) (BatchResult, error) {
	for _, p := range placements {
		if err := p.Target.Validate(); err != nil {
			return BatchResult{}, err
		}
		if err := p.Expense.Validate(); err != nil {
			return BatchResult{}, err
		}
	}

	var pending *Event
	defer func() { s.notify(ctx, pending) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range placements {
		if p.Target.Mode == ModeGroup && s.eventIndex(p.Target.Key) < 0 {
			return BatchResult{}, fmt.Errorf("%w: %s", ErrEventNotFound, p.Target.Key)
		}
	}

	var res BatchResult
	touched := map[string]bool{}
	var sessionsDirty, eventsDirty bool
	for _, p := range placements {
		e := p.Expense
		e.ID = s.newID()
		switch p.Target.Mode {
		case ModePersonal:
			sess := s.sessionLocked(p.Target.Key)
			if sess.Locked() {
				res.Skipped++
				continue
			}
			sess.Expenses = prepend(sess.Expenses, e)
			s.sessions[p.Target.Key] = sess
			sessionsDirty = true
			if !touched[p.Target.Key] {
				touched[p.Target.Key] = true
				res.Months = append(res.Months, p.Target.Key)
			}
		case ModeGroup:
			i := s.eventIndex(p.Target.Key)
			if s.events[i].Locked() {
				res.Skipped++
				continue
			}
			s.events[i].Expenses = prepend(s.events[i].Expenses, e)
			eventsDirty = true
		}
		res.Added++
	}
	sort.Strings(res.Months)

	if sessionsDirty {
		s.saveSessions(ctx)
	}
	if eventsDirty {
		s.saveEvents(ctx)
	}
	metrics.LedgerMutations.WithLabelValues(log.OpImport, metrics.ResultOK).Inc()
	s.logger.InfoContext(ctx, "Batch applied",
		log.FieldOperation, log.OpImport,
		"added", res.Added,
		"skipped", res.Skipped)
	if res.Added > 0 {
		mode := ModePersonal
		if eventsDirty {
			mode = ModeGroup
		}
		pending = &Event{Op: EventImport, Mode: mode, Count: res.Added}
	}
	return res, nil
}

// SetTheme records the theme preference.
func (s *Store) SetTheme(ctx context.Context, th Theme) error {
	if !th.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, th)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = th
	if s.persister != nil {
		if err := s.persister.SaveTheme(ctx, th); err != nil {
			s.persistFailed(ctx, "theme", err)
		}
	}
	return nil
}

// finish persists, logs and counts one mutation and returns the event to
// publish, or nil when the mutation failed. It must be called with s.mu
// held. Mutators defer notify ahead of the unlock so the event goes out
// after the lock is released.
func (s *Store) finish(ctx context.Context, op string, t Target, err error, ev Event) *Event {
	result := metrics.ResultOK
	switch {
	case errors.Is(err, ErrLocked):
		result = metrics.ResultLocked
	case err != nil:
		result = metrics.ResultError
	}
	metrics.LedgerMutations.WithLabelValues(op, result).Inc()
	s.slog.LogMutation(ctx, op, string(t.Mode), t.Key, err)
	if err != nil {
		return nil
	}

	switch t.Mode {
	case ModePersonal:
		s.saveSessions(ctx)
	case ModeGroup:
		s.saveEvents(ctx)
	}

	ev.Mode = t.Mode
	if ev.Key == "" {
		ev.Key = t.Key
	}
	return &ev
}

// saveSessions writes the session blob unless it is empty, so an empty
// state never overwrites stored data.
func (s *Store) saveSessions(ctx context.Context) {
	if s.persister == nil || len(s.sessions) == 0 {
		return
	}
	if err := s.persister.SaveSessions(ctx, cloneSessions(s.sessions)); err != nil {
		s.persistFailed(ctx, "sessions", err)
	}
}

func (s *Store) saveEvents(ctx context.Context) {
	if s.persister == nil || len(s.events) == 0 {
		return
	}
	if err := s.persister.SaveEvents(ctx, cloneEvents(s.events)); err != nil {
		s.persistFailed(ctx, "group_events", err)
	}
}

func (s *Store) persistFailed(ctx context.Context, blob string, err error) {
	metrics.PersistErrors.WithLabelValues(blob).Inc()
	s.slog.LogError(ctx, "Failed to persist ledger state", err, log.ComponentStorage, log.OpPersist,
		log.LogFields{log.FieldBlob: blob})
}

// notify publishes ev. The caller must not hold s.mu.
func (s *Store) notify(ctx context.Context, ev *Event) {
	if s.notifier == nil || ev == nil {
		return
	}
	ev.Timestamp = s.now().UTC()
	if err := s.notifier.Publish(ctx, *ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, ev.Op,
			log.FieldError, err)
	}
}

// sessionLocked returns the session for key, or a new empty one. The
// caller stores it back if it changes it.
func (s *Store) sessionLocked(key string) core.MonthlySession {
	if sess, ok := s.sessions[key]; ok {
		return sess
	}
	return core.MonthlySession{ID: key, Expenses: []core.Expense{}}
}

func (s *Store) eventIndex(id string) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOf(list []core.Expense, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func prepend(list []core.Expense, e core.Expense) []core.Expense {
	out := make([]core.Expense, 0, len(list)+1)
	out = append(out, e)
	return append(out, list...)
}

func remove(list []core.Expense, i int) []core.Expense {
	out := make([]core.Expense, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

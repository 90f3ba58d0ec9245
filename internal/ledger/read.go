package ledger

import (
	"sort"

	"chitieu/internal/core"
)

// Session returns a copy of the session stored under month.
func (s *Store) Session(month string) (core.MonthlySession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[month]
	if !ok {
		return core.MonthlySession{}, false
	}
	return cloneSession(sess), true
}

// SessionKeys returns the stored month keys in ascending order.
func (s *Store) SessionKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.sessions))
	for k := range s.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sessions returns a copy of the whole session map.
func (s *Store) Sessions() map[string]core.MonthlySession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSessions(s.sessions)
}

// GroupEvents returns a copy of the events, most recently created first.
func (s *Store) GroupEvents() []core.GroupEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvents(s.events)
}

func (s *Store) GroupEvent(id string) (core.GroupEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.eventIndex(id)
	if i < 0 {
		return core.GroupEvent{}, false
	}
	return cloneEvent(s.events[i]), true
}

// Expenses returns the expenses of the target sorted by date, newest
// first. A month without a session has no expenses.
func (s *Store) Expenses(t Target) ([]core.Expense, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []core.Expense
	switch t.Mode {
	case ModePersonal:
		list = s.sessions[t.Key].Expenses
	case ModeGroup:
		i := s.eventIndex(t.Key)
		if i < 0 {
			return nil, ErrEventNotFound
		}
		list = s.events[i].Expenses
	}
	out := append([]core.Expense{}, list...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// IsLocked reports whether mutations of the target are refused. Unknown
// targets are open.
func (s *Store) IsLocked(t Target) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch t.Mode {
	case ModePersonal:
		return s.sessions[t.Key].Locked()
	case ModeGroup:
		if i := s.eventIndex(t.Key); i >= 0 {
			return s.events[i].Locked()
		}
	}
	return false
}

// Summary aggregates the target's expenses.
func (s *Store) Summary(t Target) (core.Summary, error) {
	list, err := s.Expenses(t)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(list), nil
}

func (s *Store) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func cloneSession(in core.MonthlySession) core.MonthlySession {
	out := in
	out.Expenses = append([]core.Expense{}, in.Expenses...)
	return out
}

func cloneSessions(in map[string]core.MonthlySession) map[string]core.MonthlySession {
	out := make(map[string]core.MonthlySession, len(in))
	for k, v := range in {
		out[k] = cloneSession(v)
	}
	return out
}

func cloneEvent(in core.GroupEvent) core.GroupEvent {
	out := in
	out.Members = append([]core.GroupMember{}, in.Members...)
	out.Expenses = append([]core.Expense{}, in.Expenses...)
	if in.EndDate != nil {
		end := *in.EndDate
		out.EndDate = &end
	}
	return out
}

func cloneEvents(in []core.GroupEvent) []core.GroupEvent {
	out := make([]core.GroupEvent, 0, len(in))
	for _, ev := range in {
		out = append(out, cloneEvent(ev))
	}
	return out
}

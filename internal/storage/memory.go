package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

// MemoryRepository keeps the blobs as encoded JSON in memory, so values
// go through the same round trip as with SQLite.
type MemoryRepository struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	imports []ImportRun
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{blobs: make(map[string][]byte)}
}

func (m *MemoryRepository) Load(_ context.Context) (ledger.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := ledger.State{Sessions: map[string]core.MonthlySession{}}
	if raw, ok := m.blobs[KeySessions]; ok {
		if err := json.Unmarshal(raw, &st.Sessions); err != nil {
			return st, fmt.Errorf("decode %s: %w", KeySessions, err)
		}
	}
	if raw, ok := m.blobs[KeyGroupEvents]; ok {
		if err := json.Unmarshal(raw, &st.Events); err != nil {
			return st, fmt.Errorf("decode %s: %w", KeyGroupEvents, err)
		}
	}
	st.Theme = ledger.Theme(m.blobs[KeyTheme])
	return st, nil
}

func (m *MemoryRepository) SaveSessions(_ context.Context, sessions map[string]core.MonthlySession) error {
	return m.put(KeySessions, sessions)
}

func (m *MemoryRepository) SaveEvents(_ context.Context, events []core.GroupEvent) error {
	return m.put(KeyGroupEvents, events)
}

func (m *MemoryRepository) SaveTheme(_ context.Context, theme ledger.Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[KeyTheme] = []byte(theme)
	return nil
}

func (m *MemoryRepository) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = raw
	return nil
}

func (m *MemoryRepository) RecordImport(_ context.Context, run ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = int64(len(m.imports) + 1)
	run.CreatedAt = time.Now().UTC()
	m.imports = append(m.imports, run)
	return nil
}

func (m *MemoryRepository) RecentImports(_ context.Context, limit int) ([]ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	out := make([]ImportRun, 0, limit)
	for i := len(m.imports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.imports[i])
	}
	return out, nil
}

func (m *MemoryRepository) Ping(context.Context) error { return nil }

func (m *MemoryRepository) Close() error { return nil }

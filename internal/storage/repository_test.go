package storage

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
)

type persister interface {
	ledger.Persister
	RecordImport(ctx context.Context, run ImportRun) error
	RecentImports(ctx context.Context, limit int) ([]ImportRun, error)
}

func repositories(t *testing.T) map[string]persister {
	t.Helper()
	sqlite, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "chitieu.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]persister{
		"sqlite": sqlite,
		"memory": NewMemoryRepository(),
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	end := day.AddDate(0, 0, 3)

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := repo.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty.Sessions)
			assert.Empty(t, empty.Events)
			assert.Equal(t, ledger.Theme(""), empty.Theme)

			sessions := map[string]core.MonthlySession{
				"2024-03": {
					ID:          "2024-03",
					Budget:      3000000,
					IsCompleted: true,
					Expenses: []core.Expense{
						{ID: "e1", Amount: 45000, Note: "Phở", Category: core.CategoryFood, Date: day},
					},
				},
			}
			events := []core.GroupEvent{{
				ID: "g1", Name: "Đà Lạt", Role: core.RoleMember, StartDate: day, EndDate: &end,
				Members:  []core.GroupMember{{ID: "m1", Name: "An"}},
				Expenses: []core.Expense{{ID: "e2", Amount: 500000, Note: "Phòng", Category: core.CategoryHousing, Date: day}},
			}}
			require.NoError(t, repo.SaveSessions(ctx, sessions))
			require.NoError(t, repo.SaveEvents(ctx, events))
			require.NoError(t, repo.SaveTheme(ctx, ledger.ThemeDark))

			st, err := repo.Load(ctx)
			require.NoError(t, err)
			require.Contains(t, st.Sessions, "2024-03")
			got := st.Sessions["2024-03"]
			assert.True(t, got.IsCompleted)
			assert.Equal(t, core.Money(3000000), got.Budget)
			require.Len(t, got.Expenses, 1)
			assert.True(t, got.Expenses[0].Date.Equal(day))
			require.Len(t, st.Events, 1)
			require.NotNil(t, st.Events[0].EndDate)
			assert.True(t, st.Events[0].EndDate.Equal(end))
			assert.Equal(t, ledger.ThemeDark, st.Theme)

			// Second write replaces the blob.
			require.NoError(t, repo.SaveSessions(ctx, map[string]core.MonthlySession{"2024-04": {ID: "2024-04"}}))
			st, err = repo.Load(ctx)
			require.NoError(t, err)
			assert.NotContains(t, st.Sessions, "2024-03")
			assert.Contains(t, st.Sessions, "2024-04")
		})
	}
}

func TestRepositoryImportHistory(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.RecordImport(ctx, ImportRun{Source: "a.csv", Kind: "list", Imported: 3}))
			require.NoError(t, repo.RecordImport(ctx, ImportRun{Source: "b.json", Kind: "backup", Imported: 10, Skipped: 1}))

			runs, err := repo.RecentImports(ctx, 10)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, "b.json", runs[0].Source)
			assert.Equal(t, 1, runs[0].Skipped)

			runs, err = repo.RecentImports(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, runs, 1)
		})
	}
}

func TestLedgerStoreOverSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)

	s := ledger.NewStore(repo, ledger.WithLocation(time.UTC))
	require.NoError(t, s.Load(ctx))
	_, err = s.AddExpense(ctx, ledger.Personal("2024-03"), core.Expense{
		Amount: 30000, Note: "Grab", Category: core.CategoryTransport, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	s2 := ledger.NewStore(reopened, ledger.WithLocation(time.UTC))
	require.NoError(t, s2.Load(ctx))
	sess, ok := s2.Session("2024-03")
	require.True(t, ok)
	require.Len(t, sess.Expenses, 1)
	assert.Equal(t, "Grab", sess.Expenses[0].Note)
}

func TestMigrationsRunOnRepositoryConnection(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chitieu.db")
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})})

	repo, err := NewSQLiteRepository(path, logger)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Database migrated")
	assert.Contains(t, buf.String(), "version=2")
	assert.Contains(t, buf.String(), "component=storage")

	var (
		version int
		dirty   bool
	)
	require.NoError(t, repo.db.QueryRowContext(ctx, "SELECT version, dirty FROM schema_migrations").Scan(&version, &dirty))
	assert.Equal(t, 2, version)
	assert.False(t, dirty)
	require.NoError(t, repo.SaveTheme(ctx, ledger.ThemeDark), "migrations must leave the connection open")
	require.NoError(t, repo.Close())

	buf.Reset()
	repo, err = NewSQLiteRepository(path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	assert.NotContains(t, buf.String(), "Database migrated")
	assert.Contains(t, buf.String(), "Database schema up to date")
	st, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.ThemeDark, st.Theme)
}

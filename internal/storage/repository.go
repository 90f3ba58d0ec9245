package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/log"

	_ "modernc.org/sqlite"
)

// Keys of the persisted blobs in ledger_state.
const (
	KeySessions    = "sessions"
	KeyGroupEvents = "group_events"
	KeyTheme       = "theme"
)

// ImportRun is one row of the import history.
type ImportRun struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"`
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped"`
	CreatedAt time.Time `json:"created_at"`
}

// SQLiteRepository stores the ledger blobs as JSON text in one key/value
// table. It implements ledger.Persister.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load reads all blobs. Missing blobs yield zero values.
func (r *SQLiteRepository) Load(ctx context.Context) (ledger.State, error) {
	var st ledger.State

	if err := r.get(ctx, KeySessions, &st.Sessions); err != nil {
		return st, err
	}
	if err := r.get(ctx, KeyGroupEvents, &st.Events); err != nil {
		return st, err
	}
	var theme string
	if err := r.get(ctx, KeyTheme, &theme); err != nil {
		return st, err
	}
	st.Theme = ledger.Theme(theme)
	if st.Sessions == nil {
		st.Sessions = map[string]core.MonthlySession{}
	}
	return st, nil
}

func (r *SQLiteRepository) SaveSessions(ctx context.Context, sessions map[string]core.MonthlySession) error {
	return r.put(ctx, KeySessions, sessions)
}

func (r *SQLiteRepository) SaveEvents(ctx context.Context, events []core.GroupEvent) error {
	return r.put(ctx, KeyGroupEvents, events)
}

func (r *SQLiteRepository) SaveTheme(ctx context.Context, theme ledger.Theme) error {
	return r.put(ctx, KeyTheme, string(theme))
}

func (r *SQLiteRepository) get(ctx context.Context, key string, dst any) error {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM ledger_state WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// put upserts one blob inside a transaction.
func (r *SQLiteRepository) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}

	r.logger.DebugContext(ctx, "Ledger blob saved",
		log.FieldBlob, key,
		"bytes", len(raw))
	return nil
}

// RecordImport appends a row to the import history.
func (r *SQLiteRepository) RecordImport(ctx context.Context, run ImportRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO import_runs (source, kind, imported, skipped) VALUES (?, ?, ?, ?)`,
		run.Source, run.Kind, run.Imported, run.Skipped)
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// RecentImports returns up to limit import runs, newest first.
func (r *SQLiteRepository) RecentImports(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, kind, imported, skipped, created_at
		FROM import_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []ImportRun
	for rows.Next() {
		var run ImportRun
		if err := rows.Scan(&run.ID, &run.Source, &run.Kind, &run.Imported, &run.Skipped, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

package backend

import (
	"context"
	"time"

	"chitieu/internal/analysis"
	"chitieu/internal/importer"
	"chitieu/internal/ledger"
	"chitieu/internal/sheets"
	"chitieu/internal/storage"
)

// Repository is what a persistence backend provides: the ledger blobs,
// the import history and a health probe.
type Repository interface {
	ledger.Persister
	importer.Recorder
	RecentImports(ctx context.Context, limit int) ([]storage.ImportRun, error)
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result is a fully wired ledger with its collaborators. Sheets is nil
// when no sheet source is configured.
type Result struct {
	Repository Repository
	Store      *ledger.Store
	Importer   *importer.Importer
	Analysis   *analysis.Bridge
	Sheets     sheets.RowFetcher
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	AMQPQueue      string

	GeminiAPIKey string
	GeminiModel  string

	SheetsSeedDir string

	Location *time.Location
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

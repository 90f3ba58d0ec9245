package backend

import (
	"context"
	"errors"
	"fmt"

	"chitieu/internal/amqp"
	"chitieu/internal/analysis"
	"chitieu/internal/importer"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
	"chitieu/internal/normalize"
	"chitieu/internal/sheets"
	gsheet "chitieu/internal/sheets/google"
	"chitieu/internal/sheets/memory"
	"chitieu/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

var _ Factory = (*DefaultFactory)(nil)

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create opens the repository, loads the ledger and wires the optional
// collaborators. Optional ones that fail to start are logged and skipped.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.createRepository(config)
	if err != nil {
		return nil, err
	}
	cleanups := []CleanupFunc{repo.Close}

	storeOpts := []ledger.Option{
		ledger.WithLogger(f.logger),
		ledger.WithLocation(config.Location),
	}
	if notifier := f.createNotifier(config); notifier != nil {
		storeOpts = append(storeOpts, ledger.WithNotifier(notifier))
		cleanups = append(cleanups, notifier.Close)
	}

	store := ledger.NewStore(repo, storeOpts...)
	if err := store.Load(ctx); err != nil {
		closeAll(cleanups)
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	imp := importer.New(store,
		importer.WithRecorder(repo),
		importer.WithLogger(f.logger),
		importer.WithNormalizer(normalize.New(store.Location())))

	return &Result{
		Repository: repo,
		Store:      store,
		Importer:   imp,
		Analysis:   analysis.NewBridge(f.createGenerator(ctx, config), f.logger),
		Sheets:     f.createSheets(ctx, config),
		Cleanup:    func() error { return closeAll(cleanups) },
	}, nil
}

func (f *DefaultFactory) createRepository(config Config) (Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return storage.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createNotifier(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"routing_key", config.AMQPRoutingKey)
	return client
}

func (f *DefaultFactory) createGenerator(ctx context.Context, config Config) analysis.Generator {
	if config.GeminiAPIKey == "" {
		f.logger.Info("No Gemini API key configured, analysis uses fallback messages")
		return nil
	}
	gen, err := analysis.NewGemini(ctx, config.GeminiAPIKey, config.GeminiModel)
	if err != nil {
		f.logger.Warn("Failed to initialize Gemini client", log.FieldError, err)
		return nil
	}
	return gen
}

// createSheets prefers Google credentials and falls back to the seed
// directory. It returns nil when neither is available.
func (f *DefaultFactory) createSheets(ctx context.Context, config Config) sheets.RowFetcher {
	if gsheet.HasCredentials() {
		cli, err := gsheet.NewFromEnv(ctx, f.logger)
		if err == nil {
			f.logger.Info("Initialized Google Sheets source")
			return cli
		}
		f.logger.Warn("Failed to initialize Google Sheets client", log.FieldError, err)
	}
	if config.SheetsSeedDir != "" {
		store, err := memory.NewFromDir(config.SheetsSeedDir)
		if err == nil {
			f.logger.Info("Initialized in-memory sheet source", "dir", config.SheetsSeedDir)
			return store
		}
		f.logger.Warn("Failed to load sheet seed directory", log.FieldError, err)
	}
	return nil
}

func closeAll(fns []CleanupFunc) error {
	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

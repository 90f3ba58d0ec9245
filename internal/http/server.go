package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"chitieu/internal/analysis"
	"chitieu/internal/cache"
	"chitieu/internal/importer"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
	"chitieu/internal/middleware/ratelimit"
	"chitieu/internal/middleware/security"
	"chitieu/internal/normalize"
	"chitieu/internal/sheets"
	"chitieu/internal/storage"
)

// Pinger reports whether the persistence backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ImportHistory lists past file and sheet imports, newest first.
type ImportHistory interface {
	RecentImports(ctx context.Context, limit int) ([]storage.ImportRun, error)
}

// Deps are the collaborators of the API. Sheets, Health and Imports may
// be nil.
type Deps struct {
	Store    *ledger.Store
	Importer *importer.Importer
	Analysis *analysis.Bridge
	Sheets   sheets.RowFetcher
	Health   Pinger
	Imports  ImportHistory
	Logger   *log.Logger

	RateLimitRPM     int
	AnalysisCacheTTL time.Duration
}

type Server struct {
	http.Server
	store    *ledger.Store
	importer *importer.Importer
	analysis *analysis.Bridge
	sheets   sheets.RowFetcher
	health   Pinger
	imports  ImportHistory
	norm     *normalize.Normalizer
	logger   *log.Logger
	slog     *log.StructuredLogger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	headers     security.HeadersConfig

	// Analysis results keyed by target and summary; identical requests
	// in flight share one generator call.
	analysisCache *cache.LRUCache[analysis.Result]
	analyzeGroup  singleflight.Group
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	bridge := deps.Analysis
	if bridge == nil {
		bridge = analysis.NewBridge(nil, logger)
	}
	ttl := deps.AnalysisCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	s := &Server{
		store:         deps.Store,
		importer:      deps.Importer,
		analysis:      bridge,
		sheets:        deps.Sheets,
		health:        deps.Health,
		imports:       deps.Imports,
		norm:          normalize.New(deps.Store.Location()),
		logger:        logger,
		slog:          log.NewStructuredLogger(logger),
		rateLimiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM}),
		detector:      security.NewDetector(),
		headers:       security.DefaultHeadersConfig(),
		analysisCache: cache.NewLRUCache[analysis.Result](256, ttl),
		cacheManager:  cache.NewManager(logger),
	}
	if s.importer == nil {
		s.importer = importer.New(s.store, importer.WithLogger(logger))
	}
	s.cacheManager.Register(s.analysisCache)
	s.cacheManager.StartCleanup(ttl)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withObservability(s.withRateLimit(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/theme", s.handleSetTheme)

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{month}", s.handleGetSession)
	mux.HandleFunc("PUT /api/sessions/{month}/budget", s.handleSetBudget)
	s.targetRoutes(mux, "/api/sessions/{month}", s.personalTarget)

	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("GET /api/events/{id}/export", s.handleExportEvent)
	s.targetRoutes(mux, "/api/events/{id}", groupTarget)

	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("POST /api/import/sheet", s.handleImportSheet)
	mux.HandleFunc("GET /api/imports", s.handleListImports)
	mux.HandleFunc("GET /api/export", s.handleExportSessions)
}

// targetRoutes mounts the routes shared by month sessions and group events.
func (s *Server) targetRoutes(mux *http.ServeMux, prefix string, resolve targetResolver) {
	mux.HandleFunc("POST "+prefix+"/expenses", s.handleAddExpense(resolve))
	mux.HandleFunc("PUT "+prefix+"/expenses/{expense}", s.handleUpdateExpense(resolve))
	mux.HandleFunc("DELETE "+prefix+"/expenses/{expense}", s.handleDeleteExpense(resolve))
	mux.HandleFunc("POST "+prefix+"/lock", s.handleToggleLock(resolve))
	mux.HandleFunc("POST "+prefix+"/analysis", s.handleAnalysis(resolve))
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	cfg "github.com/example/screenplay/internal/config"
	"github.com/example/screenplay/internal/report"
)

type App struct {
	DB      DB
	gate    *AuthGate
	engine  report.Engine
	logger  *slog.Logger
	limiter *RateLimiter
	origins []string
}

func NewApp(db DB, c *cfg.Config, engine report.Engine, logger *slog.Logger) *App {
	return &App{
		DB:      db,
		gate:    NewAuthGate(db, c.JwtSecret),
		engine:  engine,
		logger:  logger,
		limiter: NewRateLimiter(c.RateLimitPerMinute),
		origins: c.AllowedOrigins(),
	}
}

func (a *App) routes() http.Handler {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(RequestID)
	r.Use(a.Recovery)
	r.Use(SecurityHeaders)
	r.Use(a.Logging)
	r.Use(a.RateLimit)

	// Health check endpoints (no auth required)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/ready", a.HandleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", a.HandleRegister).Methods(http.MethodPost)
	api.HandleFunc("/login", a.HandleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/validate", a.HandleTokenValidate).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(a.RequireAuth)
	protected.HandleFunc("/me", a.HandleMe).Methods(http.MethodGet)

	protected.HandleFunc("/characters", a.HandleCreateCharacter).Methods(http.MethodPost)
	protected.HandleFunc("/characters", a.HandleListCharacters).Methods(http.MethodGet)
	protected.HandleFunc("/characters/{id}", a.HandleGetCharacter).Methods(http.MethodGet)
	protected.HandleFunc("/characters/{id}", a.HandleUpdateCharacter).Methods(http.MethodPut)
	protected.HandleFunc("/characters/{id}", a.HandleDeleteCharacter).Methods(http.MethodDelete)

	protected.HandleFunc("/relations", a.HandleCreateRelation).Methods(http.MethodPost)
	protected.HandleFunc("/relations", a.HandleListRelations).Methods(http.MethodGet)
	protected.HandleFunc("/relations/{id}", a.HandleGetRelation).Methods(http.MethodGet)
	protected.HandleFunc("/relations/{id}", a.HandleUpdateRelation).Methods(http.MethodPut)
	protected.HandleFunc("/relations/{id}", a.HandleDeleteRelation).Methods(http.MethodDelete)

	protected.HandleFunc("/properties", a.HandleCreateProperty).Methods(http.MethodPost)
	protected.HandleFunc("/properties", a.HandleListProperties).Methods(http.MethodGet)
	protected.HandleFunc("/properties/{id}", a.HandleGetProperty).Methods(http.MethodGet)
	protected.HandleFunc("/properties/{id}", a.HandleUpdateProperty).Methods(http.MethodPut)
	protected.HandleFunc("/properties/{id}", a.HandleDeleteProperty).Methods(http.MethodDelete)

	protected.HandleFunc("/reports/pdf", a.HandlePDFReport).Methods(http.MethodGet)
	protected.HandleFunc("/reports/excel-csv", a.HandleTabularReport).Methods(http.MethodGet)
	protected.HandleFunc("/reports/csv", a.HandleCSVReport).Methods(http.MethodGet)

	// Preflight requests are answered before routing.
	return a.CORS(r)
}

func (a *App) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.DB.Ping(ctx); err != nil {
		a.logger.WarnContext(r.Context(), "readiness check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// openDB selects the storage adapter. PostgreSQL is migrated before use.
func openDB(ctx context.Context, c *cfg.Config, logger *slog.Logger) (DB, error) {
	var db DB
	switch c.DBAdapter {
	case "sqlite":
		s, err := NewSQLiteDB(ctx, c.SQLiteFile)
		if err != nil {
			return nil, err
		}
		db = s
		logger.Info("using sqlite database", slog.String("file", c.SQLiteFile))
	case "postgres":
		logger.Info("applying database migrations", slog.String("dir", c.MigrationsDir))
		if err := ApplyMigrations(logger, c.MigrationsDir, c.PostgresDSN); err != nil {
			return nil, err
		}
		p, err := NewPostgresDB(ctx, c.PostgresDSN)
		if err != nil {
			return nil, err
		}
		db = p
		logger.Info("connected to postgres database")
	default:
		logger.Warn("using in-memory database (not recommended for production)")
		db = NewMemoryDB()
	}
	return db, nil
}

func main() {
	c, err := cfg.New()
	if err != nil {
		slog.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := newLogger(os.Stderr, c.LogLevel, c.LogFormat)

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := openDB(initCtx, c, logger)
	cancelInit()
	if err != nil {
		logger.Error("database init failed", slog.String("adapter", c.DBAdapter), slog.String("error", err.Error()))
		os.Exit(1)
	}

	engine := report.NewChromeEngine(c.Report.ChromeURL, c.Report.ChromePath, c.Report.MaxConcurrent)
	app := NewApp(db, c, engine, logger)

	// PDF rendering needs a generous write timeout.
	srv := &http.Server{
		Handler:      app.routes(),
		Addr:         ":" + c.Port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("port", c.Port), slog.String("env", c.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
	if err := db.Close(); err != nil {
		logger.Error("close database", slog.String("error", err.Error()))
	}
	logger.Info("server exited properly")
}

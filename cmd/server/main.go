package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/waterflow/internal/config"
	"github.com/Simplici0/waterflow/internal/db"
	"github.com/Simplici0/waterflow/internal/hydraulics"
	"github.com/Simplici0/waterflow/internal/metrics"
	"github.com/Simplici0/waterflow/internal/migrations"
	"github.com/Simplici0/waterflow/internal/seed"
)

type server struct {
	auth    *authService
	db      *sql.DB
	logger  *slog.Logger
	metrics *metrics.Counters
	system  atomic.Pointer[hydraulics.System]
	now     func() time.Time
}

func newServer(database *sql.DB, sessionSecret string, sys hydraulics.System) *server {
	s := &server{
		auth:    newAuthService(database, sessionSecret),
		db:      database,
		logger:  slog.Default(),
		metrics: &metrics.Counters{},
		now:     time.Now,
	}
	s.setSystem(sys)
	return s
}

func (s *server) currentSystem() hydraulics.System {
	return *s.system.Load()
}

func (s *server) setSystem(sys hydraulics.System) {
	s.system.Store(&sys)
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Get("/system", s.handleSystem)
		r.Post("/pressure", s.handlePressure)
		r.Get("/calculations", s.handleCalculationsList)
		r.Get("/calculations/{id}", s.handleCalculationDetail)
		r.Get("/calculations/{id}/text", s.handleCalculationText)
		r.Get("/materials", s.handleMaterialsList)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.requireAdmin)
			r.Post("/materials", s.handleMaterialsCreate)
			r.Post("/materials/{id}", s.handleMaterialsUpdate)
		})
	})
	return r
}

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}

	stats, err := seed.Run(ctx, database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		return fmt.Errorf("seed database: %w", err)
	}
	slog.Info("seed complete", "inserts", stats.Inserts)

	sys, err := config.SystemOrDefault(cfg.SystemFile)
	if err != nil {
		return fmt.Errorf("load system: %w", err)
	}

	srv := newServer(database, cfg.SessionSecret, sys)

	if cfg.SystemFile != "" {
		go func() {
			if err := config.WatchSystem(ctx, cfg.SystemFile, srv.setSystem); err != nil {
				slog.Error("system watcher stopped", "err", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", httpServer.Addr, "env", cfg.Env,
			"supply", sys.Supply.Name, "household", sys.Household.Name)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := s.metrics.WriteText(w); err != nil {
		s.logger.Error("write metrics", "err", err)
	}
}

func (s *server) handleSystem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currentSystem())
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func parseNonNegativeFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%s must be numeric", field)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must be greater than or equal to 0", field)
	}
	return value, nil
}

func parsePositiveFloat(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%s must be numeric", field)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

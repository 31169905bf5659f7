// main is the entry point of the roster-api service.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file (plus .env / environment)
//  2. Initialise the logger
//  3. Connect to the selected storage backend (sqlite or postgres)
//  4. Register all HTTP routes
//  5. Start the export scheduler (when a cron spec is configured)
//  6. Start the HTTP server in a separate goroutine
//  7. Block until an OS signal (Ctrl+C / kill) arrives
//  8. Gracefully shut down: stop cron, finish in-flight requests, exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/roster-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/roster-api
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/progsite/roster-api/internal/config"
	"github.com/progsite/roster-api/internal/export"
	"github.com/progsite/roster-api/internal/http/handlers/article"
	"github.com/progsite/roster-api/internal/http/handlers/ops"
	"github.com/progsite/roster-api/internal/http/handlers/student"
	"github.com/progsite/roster-api/internal/linkcheck"
	"github.com/progsite/roster-api/internal/scheduler"
	"github.com/progsite/roster-api/internal/storage"
	"github.com/progsite/roster-api/internal/storage/postgres"
	"github.com/progsite/roster-api/internal/storage/sqlite"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	// MustLoad reads the YAML config and fatals if anything is wrong.
	// If this returns, config is guaranteed valid.
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := setupLogger(cfg.Env)
	slog.SetDefault(log) // handlers log through the package-level default

	log.Info("starting roster-api",
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Backend),
		slog.String("version", "1.0.0"),
	)

	// ── 3. Initialise Storage ─────────────────────────────────────────────
	// The result is held as the storage.Storage INTERFACE — everything
	// past this point is backend-agnostic.
	store, closeStore, err := openStorage(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	log.Info("storage initialised", slog.String("backend", cfg.Backend))

	// ── 4. Register HTTP Routes ───────────────────────────────────────────
	// Handler functions are FACTORIES — they receive dependencies once
	// and return the actual handler (the closure pattern).
	//
	// Route table:
	//   POST   /api/students          → create a roster entry
	//   GET    /api/students          → list all roster entries
	//   GET    /api/students/{id}     → get one entry by ID
	//   PUT    /api/students/{id}     → update an entry
	//   DELETE /api/students/{id}     → delete an entry
	//   POST   /api/articles          → ingest a Markdown article
	//   GET    /api/articles          → list article metadata
	//   GET    /api/articles/{slug}   → get one article with body
	//   DELETE /api/articles/{slug}   → delete an article
	//   GET    /api/lint              → content well-formedness report
	//   GET    /api/linkcheck         → verify proposal links
	//   POST   /api/export            → write site-generator data files
	router := http.NewServeMux()

	router.HandleFunc("POST /api/students", student.New(store))
	router.HandleFunc("GET /api/students", student.GetList(store))
	router.HandleFunc("GET /api/students/{id}", student.GetByID(store))
	router.HandleFunc("PUT /api/students/{id}", student.Update(store))
	router.HandleFunc("DELETE /api/students/{id}", student.Delete(store))

	router.HandleFunc("POST /api/articles", article.New(store))
	router.HandleFunc("GET /api/articles", article.GetList(store))
	router.HandleFunc("GET /api/articles/{slug}", article.GetBySlug(store))
	router.HandleFunc("DELETE /api/articles/{slug}", article.Delete(store))

	exporter := export.New(store, cfg.ExportDir)
	checker := linkcheck.New(nil, cfg.LinkCheckLimit)

	router.HandleFunc("GET /api/lint", ops.Lint(store))
	router.HandleFunc("GET /api/linkcheck", ops.LinkCheck(store, checker))
	router.HandleFunc("POST /api/export", ops.Export(exporter))

	// ── 5. Start the Export Scheduler ─────────────────────────────────────
	// Optional: no cron spec, no scheduler. Exports stay available over
	// POST /api/export either way.
	var sched *scheduler.Scheduler
	if cfg.ExportCron != "" {
		sched = scheduler.New(cfg.ExportCron, exporter)
		if err := sched.Start(); err != nil {
			log.Error("failed to start export scheduler",
				slog.String("spec", cfg.ExportCron),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("export scheduler started", slog.String("spec", cfg.ExportCron))
	}

	// ── 6. Create and Start the HTTP Server ───────────────────────────────
	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: router,

		// Timeouts guard against slow-client attacks.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second, // link checks fan out to slow hosts
		IdleTimeout:  60 * time.Second,
	}

	// ListenAndServe blocks, so it runs in its own goroutine; the main
	// goroutine stays free to wait for the shutdown signal.
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ErrServerClosed is the normal result of Shutdown — not an error.
		if err := server.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	// Buffered channel of size 1 so the signal is not missed if main is
	// briefly busy.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	// Stop the scheduler first so no export starts mid-shutdown, then
	// give in-flight requests a 5-second deadline.
	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// openStorage builds the configured backend and returns it with a
// close function for shutdown.
func openStorage(cfg *config.Config) (storage.Storage, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pg, err := postgres.New(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		lite, err := sqlite.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return lite, func() { lite.Db.Close() }, nil
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}

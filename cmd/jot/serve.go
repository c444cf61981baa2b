package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"jot/client"
	"jot/config"
	"jot/db"
	"jot/frontend"
	"jot/handlers"
	"jot/metrics"
	"jot/store"
	"jot/token"
	"jot/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the notes service and the note page",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if err := cfg.Validate(); err != nil {
			fatal("Invalid configuration", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := serve(ctx, cfg); err != nil {
			fatal("Server failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	metrics.Init()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	handler, pages, err := newRouter(cfg, st)
	if err != nil {
		return err
	}
	go pages.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("server running", "addr", cfg.HTTPAddr, "service_url", cfg.ServiceURL(), "db_driver", cfg.DBDriver)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (handlers.Store, func(), error) {
	if cfg.DBDriver == "memory" {
		slog.Warn("using in-memory store, notes are lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	conn, err := db.Connect(ctx, cfg.DBDriver, cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(conn, cfg.DBDriver); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return store.New(conn, cfg.DBDriver), func() { conn.Close() }, nil
}

// newRouter wires the notes API under /api and the note page at the root.
// Each page reaches the API through its own client, as a browser would.
func newRouter(cfg *config.Config, st handlers.Store) (http.Handler, *frontend.Registry, error) {
	tokens := token.NewIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	api := handlers.NewAPI(st, tokens, cfg.AnonKey)

	serviceURL := cfg.ServiceURL()
	pages := frontend.NewRegistry(func() frontend.Backend {
		return client.New(serviceURL, cfg.AnonKey)
	}, cfg.PageTTL, slog.Default())

	var fsys fs.FS = web.FS
	if cfg.WebDir != "" {
		fsys = os.DirFS(cfg.WebDir)
	}
	page, err := frontend.New(fsys, pages, frontend.Env{URL: cfg.URL, AnonKey: cfg.AnonKey}, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("load page templates: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Mount("/api", api.Routes())
	r.Handle("/metrics", metrics.Handler())
	r.Mount("/", page.Routes())

	return r, pages, nil
}

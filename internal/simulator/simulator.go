// Package simulator wires the stand-in task service together: store, HTTP
// API, and worker pool. It reproduces the contract of the external system
// the harness exercises, so submit and verify can run against a closed loop.
package simulator

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskprobe/taskprobe/internal/api"
	"github.com/taskprobe/taskprobe/internal/config"
	_ "github.com/taskprobe/taskprobe/internal/infra/metrics" // Register Prometheus metrics
	"github.com/taskprobe/taskprobe/internal/infra/sqlite"
	"github.com/taskprobe/taskprobe/internal/worker"
)

// Simulator is the local task service runtime.
type Simulator struct {
	Config config.Config
	DB     *sqlite.DB
	Server *api.Server
	Pool   *worker.Pool
	cancel context.CancelFunc
}

// New creates a Simulator with all services wired.
func New() (*Simulator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Simulator with the given configuration.
func NewWithConfig(cfg config.Config) (*Simulator, error) {
	db, err := sqlite.Open(config.Home())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	srv := api.NewServer(db)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	pool := worker.NewPool(worker.Config{
		Workers:      cfg.Simulator.Workers,
		PollInterval: time.Duration(cfg.Simulator.PollInterval) * time.Second,
		MaxSleep:     time.Duration(cfg.Simulator.MaxSleep) * time.Second,
		TimeURL:      cfg.Simulator.TimeURL,
		Out:          os.Stdout,
	}, db)

	return &Simulator{
		Config: cfg,
		DB:     db,
		Server: srv,
		Pool:   pool,
	}, nil
}

// Serve starts the worker pool and the HTTP server and blocks until
// shutdown.
func (s *Simulator) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() {
		if err := s.Pool.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "worker pool: %v\n", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", s.Config.Simulator.Host, s.Config.Simulator.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = s.DB.Close()
	}()

	fmt.Printf("taskprobe simulator on http://%s\n", addr)
	if s.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all simulator resources.
func (s *Simulator) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/domain/trace"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/report"
	"github.com/sophialabs/apicover/internal/infrastructure/usecases"
	"github.com/sophialabs/apicover/internal/infrastructure/wiring"
)

// ErrCoverageBelowThreshold is returned by RunOnce when the matched
// percentage is under the configured fail_under value.
var ErrCoverageBelowThreshold = errors.New("coverage below threshold")

// App is the thin lifecycle manager that delegates dependency construction to wiring.Container.
type App struct {
	cfg        Config
	out        io.Writer
	container  *wiring.Container
	httpServer *http.Server
}

// New constructs the application by creating a logger, wiring infrastructure
// components via the container, and setting up the HTTP server. Human-readable
// results go to out; logs go to stderr.
func New(cfg Config, out io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	handler, err := logging.NewHandler(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	logger := logging.New(slog.New(handler))

	container, err := wiring.New(wiring.Params{
		Contracts:         cfg.ContractSources(),
		Exchanges:         cfg.ExchangeSources(),
		Match:             cfg.MatchOptions(),
		QueryTextPath:     cfg.QueryTextPath,
		Filter:            cfg.Filter,
		RequireOperations: cfg.RequireOperations,
		Workers:           cfg.Workers,
		NearMisses:        cfg.NearMisses,
		IncludeRoot:       cfg.IncludeRoot,
		ProtoImportPaths:  cfg.ProtoImportPaths,
		TraceSize:         cfg.Server.TraceSize,
		RateLimit:         cfg.Server.RateLimit,
		RateBurst:         cfg.Server.RateBurst,
		RateLimiterTTL:    cfg.Server.RateLimiterTTL,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wire infrastructure: %w", err)
	}
	for _, format := range cfg.Output.Formats {
		if _, err := container.Reports().Get(format); err != nil {
			container.Close()
			return nil, err
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      container.Server(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		out:        out,
		container:  container,
		httpServer: httpServer,
	}, nil
}

// Close releases background resources. It is idempotent.
func (a *App) Close() {
	a.container.Close()
}

// RunOnce computes coverage a single time, writes the configured reports and
// prints a summary. It returns ErrCoverageBelowThreshold (wrapped) together
// with the run when the result is under fail_under.
func (a *App) RunOnce(ctx context.Context) (*usecases.Run, error) {
	defer a.Close()

	logger := a.container.Logger()
	run, err := a.container.ComputeCoverageUseCase().Execute(ctx)
	if err != nil {
		return nil, err
	}

	if len(a.cfg.Output.Formats) > 0 && a.cfg.Output.Dir != "" {
		doc := report.NewDocument(run.ID, run.StartedAt, run.Items)
		paths, err := a.container.Reports().WriteAll(a.cfg.Output.Dir, a.cfg.Output.Formats, doc)
		if err != nil {
			return run, fmt.Errorf("failed to write reports: %w", err)
		}
		for _, p := range paths {
			logger.Info("report written", "path", p)
		}
	}

	if err := WriteSummary(a.out, run); err != nil {
		return run, fmt.Errorf("failed to print summary: %w", err)
	}

	if a.cfg.FailUnder > 0 && run.Summary.Percentage < a.cfg.FailUnder {
		return run, fmt.Errorf("%w: %.2f%% < %.2f%%", ErrCoverageBelowThreshold, run.Summary.Percentage, a.cfg.FailUnder)
	}
	return run, nil
}

// Probe loads the inputs and evaluates ex against every declared operation.
func (a *App) Probe(ctx context.Context, ex *exchange.Exchange, sameMethod bool) ([]trace.CandidateResult, error) {
	defer a.Close()

	run, err := a.container.ComputeCoverageUseCase().Execute(ctx)
	if err != nil {
		return nil, err
	}
	results := a.container.ProbeUseCase().Execute(run.Index, ex, sameMethod)
	if err := WriteProbe(a.out, ex, results); err != nil {
		return results, fmt.Errorf("failed to print probe results: %w", err)
	}
	return results, nil
}

// Serve executes the serve-mode lifecycle: compute coverage, start watcher,
// serve HTTP, and handle graceful shutdown on SIGINT/SIGTERM or context cancellation.
func (a *App) Serve(ctx context.Context) error {
	defer a.Close()

	logger := a.container.Logger()
	server := a.container.Server()

	if _, err := server.Recompute(ctx); err != nil {
		return fmt.Errorf("initial coverage run failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.Server.Watch {
		watcher := a.setupWatcher()
		if watcher != nil {
			defer watcher.Stop()
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting apicover server", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func (a *App) setupWatcher() *filesystem.Watcher {
	logger := a.container.Logger()
	server := a.container.Server()

	paths := a.container.InputPaths()
	watcher, err := filesystem.NewWatcher(paths, a.cfg.Server.WatchDebounce, logger, func() {
		if _, err := server.Recompute(context.Background()); err != nil {
			logger.Error("coverage re-run failed", "error", err)
			return
		}
		logger.Info("coverage re-run complete")
	})
	if err != nil {
		logger.Warn("file watcher not available", "error", err)
		return nil
	}

	watcher.Start()
	logger.Info("file watcher started", "dirs", len(watcher.Dirs()))
	return watcher
}

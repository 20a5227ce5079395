package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
	"github.com/syncsoftco/tickr/internal/archive"
	"github.com/syncsoftco/tickr/internal/config"
	"github.com/syncsoftco/tickr/internal/market"
	"github.com/syncsoftco/tickr/internal/ops"
	"github.com/syncsoftco/tickr/internal/recorder"
	"github.com/syncsoftco/tickr/internal/shard"
	"github.com/syncsoftco/tickr/internal/store"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// set global logger with custom options
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.DateTime,
		}),
	))

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	jobs, err := config.LoadJobs(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load jobs", "error", err)
		os.Exit(1)
	}

	st, err := newStore(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create store", "error", err)
		os.Exit(1)
	}

	rec := newRecorder(ctx, cfg)
	defer rec.Close()

	reg := prometheus.NewRegistry()

	r := &runner{
		cfg:     cfg,
		source:  market.NewBinance(cfg.BinanceURL, nil),
		store:   st,
		rec:     rec,
		metrics: ops.NewMetrics(reg),
		jobs:    jobs,
	}

	if cfg.Schedule == "" {
		if err := r.runAll(ctx); err != nil {
			slog.ErrorContext(ctx, "ingest failed", "error", err)
			os.Exit(1)
		}
		return
	}

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Schedule, func() {
		// Scheduled runs log and journal failures, then wait for the next tick.
		if err := r.runAll(ctx); err != nil {
			slog.ErrorContext(ctx, "scheduled ingest failed", "error", err)
		}
	}); err != nil {
		slog.ErrorContext(ctx, "failed to register schedule", "error", err, "schedule", cfg.Schedule)
		os.Exit(1)
	}

	opsServer := ops.New(ctx, cfg.ListenAddress, reg)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.InfoContext(ctx, "starting ops server", "listen_address", cfg.ListenAddress)
		if err := runHttpServer(ctx, cfg.ListenAddress, opsServer); err != nil {
			slog.ErrorContext(ctx, "failed to start ops server", "error", err)
			cancel()
			return err
		}
		return nil
	})

	g.Go(func() error {
		slog.InfoContext(ctx, "scheduler started", "schedule", cfg.Schedule, "jobs", len(r.jobs))
		sched.Start()
		<-gCtx.Done()
		// Let an in-flight run finish before exiting.
		<-sched.Stop().Done()
		return nil
	})

	// Handle graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("shutting down ops server gracefully")

		return opsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("fetcher terminated", "err", err)
	}
}

type runner struct {
	cfg     config.Config
	source  market.Source
	store   store.ContentStore
	rec     recorder.Recorder
	metrics *ops.Metrics
	jobs    []config.Job
}

// runAll executes every configured job and joins their failures, so one bad
// series does not starve the rest.
func (r *runner) runAll(ctx context.Context) error {
	var errs []error
	for _, job := range r.jobs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := r.runJob(ctx, job); err != nil {
			slog.ErrorContext(ctx, "job failed", "symbol", job.Symbol, "timeframe", job.Timeframe, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *runner) runJob(ctx context.Context, job config.Job) error {
	start := time.Now()

	w, err := archive.NewWriter(archive.WriterConfig{
		Source:    r.source,
		Store:     r.store,
		Layout:    shard.MonthLayout{DataDir: r.cfg.DataDir, SourceID: r.source.ID()},
		Symbol:    job.Symbol,
		Timeframe: job.Timeframe,
		PageLimit: r.cfg.PageLimit,
		SinceMs:   r.cfg.SinceMs,
	})
	if err != nil {
		return err
	}

	writes, ingestErr := w.Ingest(ctx)
	elapsed := time.Since(start)

	r.metrics.ObserveRun(job.Symbol, job.Timeframe, writes, elapsed, ingestErr)

	run := &recorder.Run{
		Source:    r.source.ID(),
		Symbol:    job.Symbol,
		Timeframe: job.Timeframe.String(),
		StartedAt: start,
		Duration:  elapsed,
	}
	for _, sw := range writes {
		run.Candles += sw.Candles
		run.Shards = append(run.Shards, recorder.ShardOutcome{
			Period:   sw.Ref.Period,
			Path:     sw.Ref.Path,
			Status:   string(sw.Status),
			Candles:  sw.Candles,
			Gaps:     sw.Gaps,
			Attempts: sw.Attempts,
		})
	}
	if ingestErr != nil {
		run.Error = ingestErr.Error()
	}
	if err := r.rec.RecordRun(run); err != nil {
		slog.WarnContext(ctx, "failed to journal run", "error", err)
	}

	if ingestErr != nil {
		return fmt.Errorf("failed to ingest %s %s: %w", job.Symbol, job.Timeframe, ingestErr)
	}

	slog.InfoContext(ctx, "job finished",
		"symbol", job.Symbol,
		"timeframe", job.Timeframe,
		"shards", len(writes),
		"candles", run.Candles,
		"duration", elapsed,
	)
	return nil
}

func newStore(ctx context.Context, cfg config.Config) (store.ContentStore, error) {
	if cfg.GitHubRepo != "" {
		owner, name, ok := strings.Cut(cfg.GitHubRepo, "/")
		if !ok || owner == "" || name == "" {
			return nil, fmt.Errorf("invalid repo %q, expected owner/name", cfg.GitHubRepo)
		}
		slog.InfoContext(ctx, "using github store", "repo", cfg.GitHubRepo, "branch", cfg.GitHubBranch)
		return store.NewGitHub(ctx, cfg.GitHubToken, owner, name, cfg.GitHubBranch), nil
	}

	slog.InfoContext(ctx, "using local store", "dir", cfg.LocalDir)
	return store.NewLocal(afero.NewBasePathFs(afero.NewOsFs(), cfg.LocalDir)), nil
}

func newRecorder(ctx context.Context, cfg config.Config) recorder.Recorder {
	if cfg.SQLitePath == "" {
		return recorder.NewNoop()
	}
	rec, err := recorder.NewSQLite(cfg.SQLitePath)
	if err != nil {
		slog.WarnContext(ctx, "failed to open run journal, continuing without", "error", err, "path", cfg.SQLitePath)
		return recorder.NewNoop()
	}
	return rec
}

func runHttpServer(ctx context.Context, listenAddress string, srv *ops.Server) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return err
	}

	err = srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

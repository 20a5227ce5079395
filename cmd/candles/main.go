package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/afero"
	"github.com/syncsoftco/tickr/internal/archive"
	"github.com/syncsoftco/tickr/internal/domain"
	"github.com/syncsoftco/tickr/internal/shard"
	"github.com/syncsoftco/tickr/internal/store"
)

func main() {
	symbol := flag.String("symbol", "BTC/USDT", "Trading symbol, e.g. BTC/USDT")
	timeframe := flag.String("timeframe", "1m", "Timeframe: 1m, 5m, 15m, 1h, 6h, 12h, 1d, 1w")
	fromFlag := flag.String("from", "", "Range start, RFC3339 or unix milliseconds (default: last -limit candles)")
	toFlag := flag.String("to", "", "Range end, RFC3339 or unix milliseconds (default: now)")
	limit := flag.Int("limit", 100, "Candle count for the default window")
	dataDir := flag.String("data-dir", "data", "Shard root inside the content store")
	localDir := flag.String("local-dir", ".", "Local content store root")
	repo := flag.String("repo", "", "GitHub repository as owner/name; overrides -local-dir")
	branch := flag.String("branch", "", "GitHub branch (default: repository default)")
	source := flag.String("source", "binance", "Source id in shard paths")
	baseFlag := flag.String("base", "1m", "Stored base timeframe")
	dayLayout := flag.Bool("day-layout", false, "Read legacy per-day JSONL shards")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelWarn,
			TimeFormat: time.DateTime,
		}),
	))

	tf, err := domain.ParseTimeframe(*timeframe)
	if err != nil {
		fatal(ctx, "invalid timeframe", err)
	}
	base, err := domain.ParseTimeframe(*baseFlag)
	if err != nil {
		fatal(ctx, "invalid base timeframe", err)
	}

	fromMs, err := parseTimeFlag(*fromFlag)
	if err != nil {
		fatal(ctx, "invalid -from", err)
	}
	toMs, err := parseTimeFlag(*toFlag)
	if err != nil {
		fatal(ctx, "invalid -to", err)
	}

	// An open range defaults to the most recent closed candles.
	switch {
	case fromMs == 0 && toMs == 0:
		fromMs, toMs = archive.LatestWindow(tf, time.Now().UnixMilli(), *limit)
	case toMs == 0:
		_, toMs = archive.LatestWindow(tf, time.Now().UnixMilli(), *limit)
	case fromMs == 0:
		fromMs, _ = archive.LatestWindow(tf, toMs, *limit)
	}

	var st store.ContentStore
	if *repo != "" {
		owner, name, ok := strings.Cut(*repo, "/")
		if !ok || owner == "" || name == "" {
			slog.ErrorContext(ctx, "invalid -repo, expected owner/name", "repo", *repo)
			os.Exit(1)
		}
		st = store.NewGitHub(ctx, os.Getenv("TICKR_GITHUB_TOKEN"), owner, name, *branch)
	} else {
		st = store.NewLocal(afero.NewBasePathFs(afero.NewOsFs(), *localDir))
	}

	var layout shard.Layout = shard.MonthLayout{DataDir: *dataDir, SourceID: *source}
	if *dayLayout {
		layout = shard.DayLayout{DataDir: *dataDir, SourceID: *source}
	}

	reader, err := archive.NewReader(archive.ReaderConfig{Store: st, Layout: layout, Base: base})
	if err != nil {
		fatal(ctx, "failed to create reader", err)
	}

	candles, err := reader.Candles(ctx, *symbol, tf, fromMs, toMs)
	if err != nil {
		fatal(ctx, "failed to read candles", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(candles); err != nil {
		fatal(ctx, "failed to encode candles", err)
	}
}

// parseTimeFlag accepts RFC3339 or unix milliseconds; empty means unset.
func parseTimeFlag(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

func fatal(ctx context.Context, msg string, err error) {
	slog.ErrorContext(ctx, msg, "error", err)
	os.Exit(1)
}

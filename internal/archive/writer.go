package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/syncsoftco/tickr/internal/domain"
	"github.com/syncsoftco/tickr/internal/market"
	"github.com/syncsoftco/tickr/internal/shard"
	"github.com/syncsoftco/tickr/internal/store"
)

// DefaultSinceMs is the fetch cursor for an empty archive:
// 2021-01-01T00:00:00Z.
const DefaultSinceMs = 1609459200000

type WriteStatus string

const (
	WriteCreated   WriteStatus = "created"
	WriteUpdated   WriteStatus = "updated"
	WriteUnchanged WriteStatus = "unchanged"
)

// ShardWrite is the outcome of one shard's merge and write.
type ShardWrite struct {
	Ref      shard.Ref
	Status   WriteStatus
	Candles  int // fetched candles belonging to this shard's period
	Gaps     int
	Attempts int
}

// WriterConfig carries the writer's collaborators and tuning. Source, Store,
// Layout and Symbol are required; the rest default sensibly.
type WriterConfig struct {
	Source    market.Source
	Store     store.ContentStore
	Layout    shard.Layout
	Symbol    string
	Timeframe domain.Timeframe
	PageLimit int   // candles per fetch page; default market.MaxPageLimit
	SinceMs   int64 // first-fetch cursor for an empty archive; default DefaultSinceMs
	Retry     RetryPolicy
}

// Writer ingests candles from a market source into the shard archive:
// resume from the newest stored candle, paginate forward, merge per period,
// and write through under optimistic concurrency.
type Writer struct {
	source      market.Source
	store       store.ContentStore
	layout      shard.Layout
	symbol      string
	tf          domain.Timeframe
	pageLimit   int
	sinceMs     int64
	retry       RetryPolicy
	intervalSec int64
}

func NewWriter(cfg WriterConfig) (*Writer, error) {
	if cfg.Source == nil {
		return nil, errors.New("source is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Layout == nil {
		return nil, errors.New("layout is required")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrValidation)
	}

	supported := cfg.Source.SupportedTimeframes()
	ok := false
	for _, tf := range supported {
		if tf == cfg.Timeframe {
			ok = true
			break
		}
	}
	if !ok {
		return nil, domain.UnsupportedTimeframe(cfg.Timeframe.String(), supported)
	}

	intervalSec, err := cfg.Source.IntervalSeconds(cfg.Timeframe)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		source:      cfg.Source,
		store:       cfg.Store,
		layout:      cfg.Layout,
		symbol:      cfg.Symbol,
		tf:          cfg.Timeframe,
		pageLimit:   cfg.PageLimit,
		sinceMs:     cfg.SinceMs,
		retry:       cfg.Retry,
		intervalSec: intervalSec,
	}
	if w.pageLimit <= 0 {
		w.pageLimit = market.MaxPageLimit
	}
	if w.sinceMs <= 0 {
		w.sinceMs = DefaultSinceMs
	}
	if w.retry.MaxAttempts == 0 {
		w.retry = DefaultRetryPolicy()
	}
	return w, nil
}

// Ingest fetches everything newer than the archive's resume point and writes
// it through, one shard per period, in chronological order. On a shard
// failure the outcomes of the shards already written are returned alongside
// the error.
func (w *Writer) Ingest(ctx context.Context) ([]ShardWrite, error) {
	cursor, err := w.resumeCursor(ctx)
	if err != nil {
		return nil, err
	}

	fetched, err := w.fetchFrom(ctx, cursor)
	if err != nil {
		return nil, err
	}

	fresh := w.dropInFlight(ctx, fetched)
	if len(fresh) == 0 {
		slog.InfoContext(ctx, "no new candles", "symbol", w.symbol, "timeframe", w.tf)
		return nil, nil
	}

	buckets, order := w.partition(fresh)
	outcomes := make([]ShardWrite, 0, len(order))
	for _, ref := range order {
		outcome, err := w.writeShard(ctx, ref, buckets[ref])
		if err != nil {
			return outcomes, fmt.Errorf("failed to write shard %s: %w", ref.Period, err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// resumeCursor is the maximum stored timestamp of the series, re-fetched
// inclusively so a candle updated at the boundary is never lost, or the
// configured default for an empty archive.
func (w *Writer) resumeCursor(ctx context.Context) (int64, error) {
	ref, ok, err := w.layout.LatestShard(ctx, w.store, w.symbol, w.tf)
	if err != nil {
		return 0, fmt.Errorf("failed to locate latest shard: %w", err)
	}
	if !ok {
		slog.InfoContext(ctx, "no existing shards", "symbol", w.symbol, "timeframe", w.tf, "since", w.sinceMs)
		return w.sinceMs, nil
	}

	content, _, err := w.store.Read(ctx, ref.Path)
	if errors.Is(err, domain.ErrNotFound) {
		return w.sinceMs, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read shard %s: %w", ref.Period, err)
	}

	candles, err := w.layout.Decode(content)
	if err != nil {
		return 0, fmt.Errorf("failed to decode shard %s: %w", ref.Period, err)
	}
	if len(candles) == 0 {
		return w.sinceMs, nil
	}

	cursor := candles[0].Timestamp
	for _, c := range candles[1:] {
		if c.Timestamp > cursor {
			cursor = c.Timestamp
		}
	}
	slog.DebugContext(ctx, "resuming", "symbol", w.symbol, "timeframe", w.tf, "period", ref.Period, "cursor", cursor)
	return cursor, nil
}

func (w *Writer) fetchFrom(ctx context.Context, cursor int64) ([]domain.Candle, error) {
	var all []domain.Candle
	for {
		page, err := w.source.FetchCandles(ctx, w.symbol, w.tf, cursor, w.pageLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch candles: %w", err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		slog.DebugContext(ctx, "fetched page", "symbol", w.symbol, "timeframe", w.tf, "cursor", cursor, "count", len(page))
		if len(page) < w.pageLimit {
			break
		}
		cursor = page[len(page)-1].Timestamp + w.intervalSec*1000
	}
	return all, nil
}

// dropInFlight removes candles at or after the bucket "now" sits in: the
// source may report that bucket before it has closed.
func (w *Writer) dropInFlight(ctx context.Context, candles []domain.Candle) []domain.Candle {
	now := w.source.NowMs()
	cutoff := now - now%(w.intervalSec*1000)

	kept := make([]domain.Candle, 0, len(candles))
	for _, c := range candles {
		if c.Timestamp >= cutoff {
			continue
		}
		kept = append(kept, c)
	}
	if dropped := len(candles) - len(kept); dropped > 0 {
		slog.DebugContext(ctx, "dropped in-flight candles", "symbol", w.symbol, "timeframe", w.tf, "count", dropped, "cutoff", cutoff)
	}
	return kept
}

func (w *Writer) partition(candles []domain.Candle) (map[shard.Ref][]domain.Candle, []shard.Ref) {
	buckets := make(map[shard.Ref][]domain.Candle)
	var order []shard.Ref
	for _, c := range candles {
		ref := w.layout.Ref(w.symbol, w.tf, c.Timestamp)
		if _, ok := buckets[ref]; !ok {
			order = append(order, ref)
		}
		buckets[ref] = append(buckets[ref], c)
	}
	return buckets, order
}

// writeShard merges incoming candles into one shard and writes it through.
// Every attempt re-reads the shard so a conflicting writer's candles are
// merged rather than overwritten.
func (w *Writer) writeShard(ctx context.Context, ref shard.Ref, incoming []domain.Candle) (ShardWrite, error) {
	outcome := ShardWrite{Ref: ref, Candles: len(incoming)}

	op := func() error {
		outcome.Attempts++

		raw, version, err := w.store.Read(ctx, ref.Path)
		exists := true
		if errors.Is(err, domain.ErrNotFound) {
			raw, version, exists = nil, "", false
		} else if err != nil {
			return fmt.Errorf("failed to read shard %s: %w", ref.Period, err)
		}

		var existing []domain.Candle
		if exists {
			if existing, err = w.layout.Decode(raw); err != nil {
				return fmt.Errorf("failed to decode shard %s: %w", ref.Period, err)
			}
		}

		merged := mergeCandles(existing, incoming)

		gaps := FindGaps(merged, w.intervalSec)
		outcome.Gaps = len(gaps)
		if len(gaps) > 0 {
			slog.WarnContext(ctx, "shard has gaps",
				"symbol", w.symbol, "timeframe", w.tf, "period", ref.Period,
				"gaps", len(gaps), "first_after", gaps[0].Prev, "first_before", gaps[0].Next)
		}

		content, err := w.layout.Encode(merged)
		if err != nil {
			return err
		}

		if exists && bytes.Equal(content, raw) {
			outcome.Status = WriteUnchanged
			return nil
		}

		if !exists {
			message := fmt.Sprintf("Add %s %s candles", w.symbol, w.tf)
			if err := w.store.Create(ctx, ref.Path, message, content); err != nil {
				return err
			}
			outcome.Status = WriteCreated
			return nil
		}

		message := fmt.Sprintf("Update %s %s candles", w.symbol, w.tf)
		if err := w.store.Update(ctx, ref.Path, message, content, version); err != nil {
			return err
		}
		outcome.Status = WriteUpdated
		return nil
	}

	notify := func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "shard write conflicted, retrying",
			"symbol", w.symbol, "timeframe", w.tf, "period", ref.Period,
			"attempt", outcome.Attempts, "wait", wait, "error", err)
	}

	if err := retryConflicts(ctx, w.retry, notify, op); err != nil {
		return outcome, err
	}

	slog.InfoContext(ctx, "shard written",
		"symbol", w.symbol, "timeframe", w.tf, "period", ref.Period,
		"status", outcome.Status, "candles", outcome.Candles, "gaps", outcome.Gaps, "attempts", outcome.Attempts)
	return outcome, nil
}

// mergeCandles combines stored and newly fetched candles, deduplicating by
// timestamp with the new value winning, sorted ascending.
func mergeCandles(existing, incoming []domain.Candle) []domain.Candle {
	byTs := make(map[int64]domain.Candle, len(existing)+len(incoming))
	for _, c := range existing {
		byTs[c.Timestamp] = c
	}
	for _, c := range incoming {
		byTs[c.Timestamp] = c
	}

	merged := make([]domain.Candle, 0, len(byTs))
	for _, c := range byTs {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/syncsoftco/tickr/internal/domain"
	"github.com/syncsoftco/tickr/internal/resample"
	"github.com/syncsoftco/tickr/internal/shard"
	"github.com/syncsoftco/tickr/internal/store"
)

// ReaderConfig carries the reader's collaborators. Store and Layout are
// required; Base is the granularity shards are stored at, one minute when
// unset.
type ReaderConfig struct {
	Store  store.ContentStore
	Layout shard.Layout
	Base   domain.Timeframe
}

// Reader reconstructs contiguous candle ranges from the shard archive. A
// read is all-or-nothing: every shard the range touches must exist, and the
// base-granularity grid across the range must be fully populated, or the
// read fails without returning a partial answer.
type Reader struct {
	store  store.ContentStore
	layout shard.Layout
	base   domain.Timeframe
}

func NewReader(cfg ReaderConfig) (*Reader, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Layout == nil {
		return nil, errors.New("layout is required")
	}
	base := cfg.Base
	if base == 0 {
		base = domain.Timeframe1m
	}
	if !base.Valid() {
		return nil, domain.UnsupportedTimeframe(base.String(), domain.Timeframes())
	}
	return &Reader{store: cfg.Store, layout: cfg.Layout, base: base}, nil
}

// Candles returns the candles of [fromMs, toMs], both ends inclusive,
// resampled to tf when tf is coarser than the stored granularity.
func (r *Reader) Candles(ctx context.Context, symbol string, tf domain.Timeframe, fromMs, toMs int64) ([]domain.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrValidation)
	}
	if fromMs <= 0 || toMs <= 0 {
		return nil, fmt.Errorf("%w: start and end timestamps are required", domain.ErrValidation)
	}
	if toMs <= fromMs {
		return nil, fmt.Errorf("%w: end %d is not after start %d", domain.ErrValidation, toMs, fromMs)
	}
	if !tf.Valid() {
		return nil, domain.UnsupportedTimeframe(tf.String(), domain.Timeframes())
	}
	if tf.Millis() < r.base.Millis() {
		return nil, fmt.Errorf("%w: timeframe %s is finer than the stored granularity %s", domain.ErrValidation, tf, r.base)
	}

	slog.DebugContext(ctx, "reading candles", "symbol", symbol, "timeframe", tf, "from", fromMs, "to", toMs)

	var candles []domain.Candle
	for _, ref := range r.layout.Refs(symbol, r.base, fromMs, toMs) {
		raw, _, err := r.store.Read(ctx, ref.Path)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no data for %s %s %s", domain.ErrNotFound, symbol, r.base, ref.Period)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read shard %s: %w", ref.Period, err)
		}

		decoded, err := r.layout.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode shard %s: %w", ref.Period, err)
		}
		candles = append(candles, decoded...)
	}

	kept := candles[:0]
	for _, c := range candles {
		if c.Timestamp < fromMs || c.Timestamp > toMs {
			continue
		}
		kept = append(kept, c)
	}
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Timestamp < kept[j].Timestamp
	})

	if err := r.checkComplete(kept, fromMs, toMs); err != nil {
		return nil, err
	}

	if tf == r.base {
		return kept, nil
	}
	return resample.Resample(kept, tf.Seconds()), nil
}

// checkComplete compares the candles against the full expected grid: every
// multiple of the base interval inside [fromMs, toMs] must be present.
func (r *Reader) checkComplete(candles []domain.Candle, fromMs, toMs int64) error {
	interval := r.base.Millis()

	present := make(map[int64]struct{}, len(candles))
	for _, c := range candles {
		present[c.Timestamp] = struct{}{}
	}

	var missing []int64
	first := fromMs + (interval-fromMs%interval)%interval
	for ts := first; ts <= toMs; ts += interval {
		if _, ok := present[ts]; !ok {
			missing = append(missing, ts)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d %s candles missing between %s and %s",
		domain.ErrIncomplete, len(missing), r.base,
		time.UnixMilli(missing[0]).UTC().Format(time.RFC3339),
		time.UnixMilli(missing[len(missing)-1]).UTC().Format(time.RFC3339))
}

// LatestWindow is the default query range: the n most recent complete
// buckets of tf, ending just before the bucket now sits in.
func LatestWindow(tf domain.Timeframe, nowMs int64, n int) (fromMs, toMs int64) {
	edge := tf.TruncateMillis(nowMs)
	return edge - int64(n)*tf.Millis(), edge - 1
}

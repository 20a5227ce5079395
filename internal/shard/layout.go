package shard

import (
	"context"
	"strings"

	"github.com/syncsoftco/tickr/internal/domain"
	"github.com/syncsoftco/tickr/internal/store"
)

// Ref addresses one shard inside the content store. Period is the human
// label carried into logs and error messages: "2021-01" for month shards,
// "2021-01-01" for legacy day files.
type Ref struct {
	Path   string
	Period string
}

// Layout maps a (symbol, timeframe, time) tuple to shard refs and runs the
// shard body codec. MonthLayout is the canonical scheme; DayLayout reads
// archives produced by earlier fetchers.
type Layout interface {
	// Ref returns the shard holding a candle with the given timestamp.
	Ref(symbol string, tf domain.Timeframe, tsMs int64) Ref

	// Refs returns the shards spanning [fromMs, toMs], inclusive on both
	// ends, in chronological order. A reversed range yields nil.
	Refs(symbol string, tf domain.Timeframe, fromMs, toMs int64) []Ref

	// Encode renders a shard body; Decode parses one.
	Encode(candles []domain.Candle) ([]byte, error)
	Decode(content []byte) ([]domain.Candle, error)

	// LatestShard locates the most recent existing shard of the series, for
	// resume-point computation. ok is false when the series has no shards.
	LatestShard(ctx context.Context, st store.ContentStore, symbol string, tf domain.Timeframe) (ref Ref, ok bool, err error)
}

// NormalizeSymbol converts a trading pair to its path-safe form, e.g.
// "BTC/USDT" becomes "BTC-USDT".
func NormalizeSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "-")
}

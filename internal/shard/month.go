package shard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/syncsoftco/tickr/internal/domain"
	"github.com/syncsoftco/tickr/internal/store"
)

// MonthLayout is the canonical addressing scheme: one pretty-printed JSON
// array of candle objects per (source, symbol, timeframe, calendar month).
type MonthLayout struct {
	DataDir  string
	SourceID string
}

var _ Layout = MonthLayout{}

func (l MonthLayout) Ref(symbol string, tf domain.Timeframe, tsMs int64) Ref {
	t := time.UnixMilli(tsMs).UTC()
	return l.monthRef(symbol, tf, t.Year(), t.Month())
}

func (l MonthLayout) Refs(symbol string, tf domain.Timeframe, fromMs, toMs int64) []Ref {
	if fromMs > toMs {
		return nil
	}
	from := time.UnixMilli(fromMs).UTC()
	to := time.UnixMilli(toMs).UTC()

	var refs []Ref
	year, month := from.Year(), from.Month()
	for {
		refs = append(refs, l.monthRef(symbol, tf, year, month))
		if year == to.Year() && month == to.Month() {
			return refs
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
}

func (l MonthLayout) monthRef(symbol string, tf domain.Timeframe, year int, month time.Month) Ref {
	sym := NormalizeSymbol(symbol)
	name := fmt.Sprintf("%s_%s_%s_%d-%02d.json", l.SourceID, sym, tf, year, month)
	return Ref{
		Path:   path.Join(l.DataDir, l.SourceID, sym, tf.String(), strconv.Itoa(year), fmt.Sprintf("%02d", month), name),
		Period: fmt.Sprintf("%d-%02d", year, month),
	}
}

// Encode renders the shard as a pretty-printed JSON array. The empty shard
// encodes as [] rather than null.
func (l MonthLayout) Encode(candles []domain.Candle) ([]byte, error) {
	if candles == nil {
		candles = []domain.Candle{}
	}
	buf, err := json.MarshalIndent(candles, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode shard: %w", err)
	}
	return append(buf, '\n'), nil
}

func (l MonthLayout) Decode(content []byte) ([]domain.Candle, error) {
	var candles []domain.Candle
	if err := json.Unmarshal(content, &candles); err != nil {
		return nil, fmt.Errorf("failed to decode shard: %w", err)
	}
	return candles, nil
}

// LatestShard descends to the highest year directory, then the highest month
// directory inside it.
func (l MonthLayout) LatestShard(ctx context.Context, st store.ContentStore, symbol string, tf domain.Timeframe) (Ref, bool, error) {
	seriesDir := path.Join(l.DataDir, l.SourceID, NormalizeSymbol(symbol), tf.String())

	year, ok, err := maxNumericEntry(ctx, st, seriesDir)
	if !ok || err != nil {
		return Ref{}, false, err
	}
	month, ok, err := maxNumericEntry(ctx, st, path.Join(seriesDir, strconv.Itoa(year)))
	if !ok || err != nil {
		return Ref{}, false, err
	}
	return l.monthRef(symbol, tf, year, time.Month(month)), true, nil
}

func maxNumericEntry(ctx context.Context, st store.ContentStore, dir string) (int, bool, error) {
	entries, err := st.List(ctx, dir)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	latest, found := 0, false
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		n, err := strconv.Atoi(e.Name)
		if err != nil {
			continue
		}
		if !found || n > latest {
			latest, found = n, true
		}
	}
	return latest, found, nil
}

package shard

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/syncsoftco/tickr/internal/domain"
	"github.com/syncsoftco/tickr/internal/store"
)

// DayLayout is the legacy addressing scheme: one JSON-lines file per UTC day,
// flat under the data dir, each line a [ts, open, high, low, close, volume]
// array. Day files carry no timeframe dimension; earlier fetchers stored
// one-minute candles only, so the timeframe argument is ignored.
type DayLayout struct {
	DataDir  string
	SourceID string
}

var _ Layout = DayLayout{}

func (l DayLayout) Ref(symbol string, _ domain.Timeframe, tsMs int64) Ref {
	return l.dayRef(symbol, time.UnixMilli(tsMs).UTC())
}

func (l DayLayout) Refs(symbol string, _ domain.Timeframe, fromMs, toMs int64) []Ref {
	if fromMs > toMs {
		return nil
	}
	from := time.UnixMilli(fromMs).UTC()
	to := time.UnixMilli(toMs).UTC()

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)

	var refs []Ref
	for !day.After(last) {
		refs = append(refs, l.dayRef(symbol, day))
		day = day.AddDate(0, 0, 1)
	}
	return refs
}

func (l DayLayout) dayRef(symbol string, t time.Time) Ref {
	day := t.Format("2006-01-02")
	return Ref{
		Path:   path.Join(l.DataDir, fmt.Sprintf("%s_%s_%s.jsonl", l.SourceID, NormalizeSymbol(symbol), day)),
		Period: day,
	}
}

func (l DayLayout) Encode(candles []domain.Candle) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range candles {
		row, err := json.Marshal([]any{c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume})
		if err != nil {
			return nil, fmt.Errorf("failed to encode day line: %w", err)
		}
		buf.Write(row)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (l DayLayout) Decode(content []byte) ([]domain.Candle, error) {
	var candles []domain.Candle
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var row []json.Number
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("failed to decode day line: %w", err)
		}
		if len(row) != 6 {
			return nil, fmt.Errorf("failed to decode day line: expected 6 fields, got %d", len(row))
		}

		ts, err := row[0].Int64()
		if err != nil {
			return nil, fmt.Errorf("failed to decode day line timestamp: %w", err)
		}
		fields := make([]float64, 5)
		for i, n := range row[1:] {
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("failed to decode day line: %w", err)
			}
			fields[i] = f
		}
		candles = append(candles, domain.Candle{
			Timestamp: ts,
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan day file: %w", err)
	}
	return candles, nil
}

// LatestShard scans the flat data dir for the series' newest date-named file.
func (l DayLayout) LatestShard(ctx context.Context, st store.ContentStore, symbol string, _ domain.Timeframe) (Ref, bool, error) {
	entries, err := st.List(ctx, l.DataDir)
	if errors.Is(err, domain.ErrNotFound) {
		return Ref{}, false, nil
	}
	if err != nil {
		return Ref{}, false, fmt.Errorf("failed to list %s: %w", l.DataDir, err)
	}

	prefix := fmt.Sprintf("%s_%s_", l.SourceID, NormalizeSymbol(symbol))
	var latest time.Time
	found := false
	for _, e := range entries {
		if e.IsDir || !strings.HasPrefix(e.Name, prefix) || !strings.HasSuffix(e.Name, ".jsonl") {
			continue
		}
		day, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(e.Name, prefix), ".jsonl"))
		if err != nil {
			continue
		}
		if !found || day.After(latest) {
			latest, found = day, true
		}
	}
	if !found {
		return Ref{}, false, nil
	}
	return l.dayRef(symbol, latest), true, nil
}

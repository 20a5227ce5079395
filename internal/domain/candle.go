package domain

import "time"

// Candle is one OHLCV bucket. Timestamp is the bucket's start in
// milliseconds since the Unix epoch, UTC. Candles are never mutated after
// ingestion; a shard rewrite replaces the whole merged set.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

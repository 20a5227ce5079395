// Package recorder journals ingest runs for later inspection.
package recorder

import "time"

// Run is one completed ingest attempt for a symbol/timeframe pair.
type Run struct {
	Source    string
	Symbol    string
	Timeframe string
	StartedAt time.Time
	Duration  time.Duration
	Candles   int
	Error     string
	Shards    []ShardOutcome
}

// ShardOutcome is the per-shard result of a run.
type ShardOutcome struct {
	Period   string
	Path     string
	Status   string
	Candles  int
	Gaps     int
	Attempts int
}

type Recorder interface {
	RecordRun(run *Run) error
	Close() error
}

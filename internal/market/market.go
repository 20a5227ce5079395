package market

import (
	"context"

	"github.com/syncsoftco/tickr/internal/domain"
)

// Source delivers candles from one exchange. FetchCandles returns up to
// limit candles at the requested timeframe starting at sinceMs, oldest
// first; a page shorter than limit means the series is exhausted. NowMs is
// the source's notion of current time, used to exclude the still-forming
// bucket from ingestion.
type Source interface {
	ID() string
	FetchCandles(ctx context.Context, symbol string, tf domain.Timeframe, sinceMs int64, limit int) ([]domain.Candle, error)
	SupportedTimeframes() []domain.Timeframe
	IntervalSeconds(tf domain.Timeframe) (int64, error)
	NowMs() int64
}

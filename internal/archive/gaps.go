package archive

import "github.com/syncsoftco/tickr/internal/domain"

// Gap is a hole between consecutive stored candles: the spacing between
// Prev and Next is not the expected interval.
type Gap struct {
	Prev int64
	Next int64
}

// FindGaps reports every adjacent pair of sorted candles whose spacing is
// not exactly intervalSeconds. Upstream outages produce legitimate gaps, so
// the writer treats these as advisory; the reader's grid check is the strict
// counterpart and also catches holes at the edges of a requested range.
func FindGaps(candles []domain.Candle, intervalSeconds int64) []Gap {
	intervalMs := intervalSeconds * 1000

	var gaps []Gap
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp-candles[i-1].Timestamp != intervalMs {
			gaps = append(gaps, Gap{Prev: candles[i-1].Timestamp, Next: candles[i].Timestamp})
		}
	}
	return gaps
}

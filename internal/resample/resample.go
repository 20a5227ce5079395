package resample

import "github.com/syncsoftco/tickr/internal/domain"

// Resample aggregates sorted base-granularity candles into fixed buckets of
// intervalSeconds: open is the first candle's open, high the maximum high,
// low the minimum low, close the last candle's close, volume the sum.
//
// A bucket's reported timestamp is the timestamp of its first contributing
// candle, not the nominal bucket start. Buckets with no input rows do not
// appear in the output; callers needing a dense time axis must post-process.
// A trailing bucket is emitted even when the input only partially covers it.
func Resample(candles []domain.Candle, intervalSeconds int64) []domain.Candle {
	if len(candles) == 0 || intervalSeconds <= 0 {
		return nil
	}
	intervalMs := intervalSeconds * 1000

	var out []domain.Candle
	var bucketStart int64
	for i, c := range candles {
		start := c.Timestamp - c.Timestamp%intervalMs
		if i == 0 || start != bucketStart {
			out = append(out, c)
			bucketStart = start
			continue
		}

		agg := &out[len(out)-1]
		if c.High > agg.High {
			agg.High = c.High
		}
		if c.Low < agg.Low {
			agg.Low = c.Low
		}
		agg.Close = c.Close
		agg.Volume += c.Volume
	}
	return out
}

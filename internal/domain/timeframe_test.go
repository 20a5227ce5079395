package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	for _, name := range []string{"1m", "5m", "15m", "1h", "6h", "12h", "1d", "1w"} {
		tf, err := ParseTimeframe(name)
		require.NoError(t, err)
		assert.Equal(t, name, tf.String())
	}
}

func TestParseTimeframeUnknown(t *testing.T) {
	_, err := ParseTimeframe("3m")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Unsupported timeframe")
	assert.Contains(t, err.Error(), "3m")
	assert.Contains(t, err.Error(), "1m, 5m, 15m, 1h, 6h, 12h, 1d, 1w")
}

func TestParseTimeframeMonth(t *testing.T) {
	_, err := ParseTimeframe("1M")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "1 month time frame is not supported. Maximum is 1 week.")
}

func TestUnsupportedTimeframeNarrowSet(t *testing.T) {
	err := UnsupportedTimeframe("6h", []Timeframe{Timeframe1m, Timeframe1h})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Unsupported timeframe")
	assert.Contains(t, err.Error(), "6h")
	assert.Contains(t, err.Error(), "1m, 1h")
}

func TestTimeframeIntervals(t *testing.T) {
	assert.Equal(t, int64(60), Timeframe1m.Seconds())
	assert.Equal(t, int64(60_000), Timeframe1m.Millis())
	assert.Equal(t, int64(604_800), Timeframe1w.Seconds())
}

func TestTruncateMillis(t *testing.T) {
	base := int64(1609459200000) // 2021-01-01T00:00:00Z
	ts := base + 90_500
	assert.Equal(t, base+60_000, Timeframe1m.TruncateMillis(ts))
	assert.Equal(t, base, Timeframe1h.TruncateMillis(ts))
	assert.Equal(t, base, Timeframe1m.TruncateMillis(base))
}

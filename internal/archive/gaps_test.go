package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncsoftco/tickr/internal/domain"
)

func TestFindGapsContiguous(t *testing.T) {
	candles := []domain.Candle{
		{Timestamp: t0},
		{Timestamp: t0 + 60_000},
		{Timestamp: t0 + 120_000},
	}
	assert.Empty(t, FindGaps(candles, 60))
}

func TestFindGapsHole(t *testing.T) {
	candles := []domain.Candle{
		{Timestamp: t0},
		{Timestamp: t0 + 60_000},
		{Timestamp: t0 + 240_000},
		{Timestamp: t0 + 300_000},
	}

	gaps := FindGaps(candles, 60)
	require.Len(t, gaps, 1)
	assert.Equal(t, Gap{Prev: t0 + 60_000, Next: t0 + 240_000}, gaps[0])
}

func TestFindGapsIrregularSpacing(t *testing.T) {
	// spacing below the interval is just as wrong as spacing above it
	candles := []domain.Candle{
		{Timestamp: t0},
		{Timestamp: t0 + 30_000},
	}

	gaps := FindGaps(candles, 60)
	require.Len(t, gaps, 1)
	assert.Equal(t, Gap{Prev: t0, Next: t0 + 30_000}, gaps[0])
}

func TestFindGapsShortInput(t *testing.T) {
	assert.Empty(t, FindGaps(nil, 60))
	assert.Empty(t, FindGaps([]domain.Candle{{Timestamp: t0}}, 60))
}

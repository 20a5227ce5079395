package archive

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncsoftco/tickr/internal/domain"
	"github.com/syncsoftco/tickr/internal/shard"
	"github.com/syncsoftco/tickr/internal/store"
)

const dayMs = int64(24 * 60 * 60 * 1000)

func dayCandles(start int64, n int) []domain.Candle {
	candles := make([]domain.Candle, 0, n)
	for i := 0; i < n; i++ {
		candles = append(candles, candleAt(start+int64(i)*60_000, 29000+float64(i)))
	}
	return candles
}

func newTestReader(t *testing.T, st store.ContentStore) *Reader {
	t.Helper()
	r, err := NewReader(ReaderConfig{Store: st, Layout: monthLayout()})
	require.NoError(t, err)
	return r
}

func TestReaderFullDay(t *testing.T) {
	st := store.NewLocal(afero.NewMemMapFs())
	seedShard(t, st, monthLayout(), dayCandles(t0, 1440))
	r := newTestReader(t, st)

	candles, err := r.Candles(context.Background(), "BTC/USDT", domain.Timeframe1m, t0, t0+dayMs-1)
	require.NoError(t, err)
	require.Len(t, candles, 1440)
	assert.Equal(t, t0, candles[0].Timestamp)
	assert.Equal(t, t0+dayMs-60_000, candles[len(candles)-1].Timestamp)
}

func TestReaderMissingMinuteIsIncomplete(t *testing.T) {
	full := dayCandles(t0, 1440)
	holed := append(append([]domain.Candle{}, full[:750]...), full[751:]...)

	st := store.NewLocal(afero.NewMemMapFs())
	seedShard(t, st, monthLayout(), holed)
	r := newTestReader(t, st)

	_, err := r.Candles(context.Background(), "BTC/USDT", domain.Timeframe1m, t0, t0+dayMs-1)
	require.ErrorIs(t, err, domain.ErrIncomplete)
	assert.Contains(t, err.Error(), "1 1m candles missing")
	assert.Contains(t, err.Error(), "2021-01-01T12:30:00Z")
}

func TestReaderMissingMonthShard(t *testing.T) {
	st := store.NewLocal(afero.NewMemMapFs())
	seedShard(t, st, monthLayout(), dayCandles(t0, 10))
	r := newTestReader(t, st)

	feb1 := int64(1612137600000)
	_, err := r.Candles(context.Background(), "BTC/USDT", domain.Timeframe1m, t0, feb1+60_000)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "2021-02")
}

func TestReaderMissingDayShard(t *testing.T) {
	layout := shard.DayLayout{DataDir: "data", SourceID: "binance"}
	st := store.NewLocal(afero.NewMemMapFs())

	ref := layout.Ref("BTC/USDT", domain.Timeframe1m, t0)
	content, err := layout.Encode(dayCandles(t0, 1440))
	require.NoError(t, err)
	require.NoError(t, st.Create(context.Background(), ref.Path, "seed", content))

	r, err := NewReader(ReaderConfig{Store: st, Layout: layout})
	require.NoError(t, err)

	_, err = r.Candles(context.Background(), "BTC/USDT", domain.Timeframe1m, t0, t0+2*dayMs-1)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "2021-01-02")
}

func TestReaderResamplesHourly(t *testing.T) {
	st := store.NewLocal(afero.NewMemMapFs())
	seedShard(t, st, monthLayout(), dayCandles(t0, 1440))
	r := newTestReader(t, st)

	candles, err := r.Candles(context.Background(), "BTC/USDT", domain.Timeframe1h, t0, t0+dayMs-1)
	require.NoError(t, err)
	require.Len(t, candles, 24)

	first := candles[0]
	assert.Equal(t, t0, first.Timestamp)
	assert.Equal(t, 29000.0, first.Open)
	assert.Equal(t, 29069.0, first.High)  // max of per-minute highs
	assert.Equal(t, 28990.0, first.Low)   // min of per-minute lows
	assert.Equal(t, 29064.0, first.Close) // close of minute 59
	assert.Equal(t, 60.0, first.Volume)
}

func TestReaderFiltersToRange(t *testing.T) {
	st := store.NewLocal(afero.NewMemMapFs())
	seedShard(t, st, monthLayout(), dayCandles(t0, 1440))
	r := newTestReader(t, st)

	from := t0 + 2*60*60_000
	to := from + 60*60_000 - 1
	candles, err := r.Candles(context.Background(), "BTC/USDT", domain.Timeframe1m, from, to)
	require.NoError(t, err)
	require.Len(t, candles, 60)
	assert.Equal(t, from, candles[0].Timestamp)
	assert.Equal(t, to-59_999, candles[len(candles)-1].Timestamp)
}

func TestReaderValidation(t *testing.T) {
	st := store.NewLocal(afero.NewMemMapFs())
	r := newTestReader(t, st)
	ctx := context.Background()

	_, err := r.Candles(ctx, "BTC/USDT", domain.Timeframe1m, 0, t0)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = r.Candles(ctx, "BTC/USDT", domain.Timeframe1m, t0, t0)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = r.Candles(ctx, "BTC/USDT", domain.Timeframe1m, t0+60_000, t0)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = r.Candles(ctx, "", domain.Timeframe1m, t0, t0+60_000)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = r.Candles(ctx, "BTC/USDT", domain.Timeframe(0), t0, t0+60_000)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "Unsupported timeframe")
}

func TestReaderRejectsFinerThanBase(t *testing.T) {
	r, err := NewReader(ReaderConfig{
		Store:  store.NewLocal(afero.NewMemMapFs()),
		Layout: monthLayout(),
		Base:   domain.Timeframe1h,
	})
	require.NoError(t, err)

	_, err = r.Candles(context.Background(), "BTC/USDT", domain.Timeframe1m, t0, t0+dayMs-1)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "finer than the stored granularity")
}

func TestLatestWindow(t *testing.T) {
	now := t0 + 5*60*60_000 + 30*60_000 // 05:30
	from, to := LatestWindow(domain.Timeframe1h, now, 2)
	assert.Equal(t, t0+3*60*60_000, from)
	assert.Equal(t, t0+5*60*60_000-1, to)
}

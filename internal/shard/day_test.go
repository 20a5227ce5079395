package shard

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncsoftco/tickr/internal/domain"
	"github.com/syncsoftco/tickr/internal/store"
)

func TestDayRefPath(t *testing.T) {
	l := DayLayout{DataDir: "data", SourceID: "binance"}

	ref := l.Ref("BTC/USDT", domain.Timeframe1m, 1609545600000) // 2021-01-02T00:00:00Z
	assert.Equal(t, "data/binance_BTC-USDT_2021-01-02.jsonl", ref.Path)
	assert.Equal(t, "2021-01-02", ref.Period)
}

func TestDayRefs(t *testing.T) {
	l := DayLayout{DataDir: "data", SourceID: "binance"}

	refs := l.Refs("BTC/USDT", domain.Timeframe1m, 1609459200000, 1609632000000) // Jan 1 through Jan 3
	require.Len(t, refs, 3)
	assert.Equal(t, "2021-01-01", refs[0].Period)
	assert.Equal(t, "2021-01-02", refs[1].Period)
	assert.Equal(t, "2021-01-03", refs[2].Period)

	assert.Nil(t, l.Refs("BTC/USDT", domain.Timeframe1m, 2, 1))
}

func TestDayEncodeDecode(t *testing.T) {
	l := DayLayout{}

	candles := []domain.Candle{
		{Timestamp: 1609459200000, Open: 29000, High: 29500, Low: 28900, Close: 29400, Volume: 100},
		{Timestamp: 1609459260000, Open: 29400, High: 29600, Low: 29300, Close: 29500, Volume: 110},
	}
	content, err := l.Encode(candles)
	require.NoError(t, err)
	assert.Equal(t,
		"[1609459200000,29000,29500,28900,29400,100]\n[1609459260000,29400,29600,29300,29500,110]\n",
		string(content))

	decoded, err := l.Decode(content)
	require.NoError(t, err)
	assert.Equal(t, candles, decoded)
}

func TestDayDecodeBlankLines(t *testing.T) {
	l := DayLayout{}

	decoded, err := l.Decode([]byte("\n[1609459200000,29000,29500,28900,29400,100]\n\n"))
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, int64(1609459200000), decoded[0].Timestamp)
}

func TestDayDecodeShortRow(t *testing.T) {
	l := DayLayout{}

	_, err := l.Decode([]byte("[1609459200000,29000]\n"))
	require.Error(t, err)
}

func TestDayLatestShard(t *testing.T) {
	l := DayLayout{DataDir: "data", SourceID: "binance"}
	st := store.NewLocal(afero.NewMemMapFs())
	ctx := context.Background()

	_, ok, err := l.LatestShard(ctx, st, "BTC/USDT", domain.Timeframe1m)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, name := range []string{
		"binance_BTC-USDT_2021-01-01.jsonl",
		"binance_BTC-USDT_2021-01-03.jsonl",
		"binance_ETH-USDT_2021-02-01.jsonl",
		"notes.txt",
	} {
		require.NoError(t, st.Create(ctx, "data/"+name, "add", nil))
	}

	ref, ok, err := l.LatestShard(ctx, st, "BTC/USDT", domain.Timeframe1m)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2021-01-03", ref.Period)
	assert.Equal(t, "data/binance_BTC-USDT_2021-01-03.jsonl", ref.Path)
}

package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/syncsoftco/tickr/internal/domain"
)

const (
	DefaultBinanceURL = "https://api.binance.com"

	// MaxPageLimit is the largest page the klines endpoint serves.
	MaxPageLimit = 1000
)

// Binance fetches spot-market klines over the public REST API.
type Binance struct {
	baseURL string
	client  *http.Client
}

var _ Source = (*Binance)(nil)

// NewBinance builds a client against baseURL, or the public endpoint when
// empty. client may be nil for a default with a request timeout.
func NewBinance(baseURL string, client *http.Client) *Binance {
	if baseURL == "" {
		baseURL = DefaultBinanceURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Binance{baseURL: baseURL, client: client}
}

func (b *Binance) ID() string {
	return "binance"
}

func (b *Binance) SupportedTimeframes() []domain.Timeframe {
	return domain.Timeframes()
}

func (b *Binance) IntervalSeconds(tf domain.Timeframe) (int64, error) {
	for _, s := range b.SupportedTimeframes() {
		if s == tf {
			return tf.Seconds(), nil
		}
	}
	return 0, domain.UnsupportedTimeframe(tf.String(), b.SupportedTimeframes())
}

func (b *Binance) NowMs() int64 {
	return time.Now().UnixMilli()
}

func (b *Binance) FetchCandles(ctx context.Context, symbol string, tf domain.Timeframe, sinceMs int64, limit int) ([]domain.Candle, error) {
	if _, err := b.IntervalSeconds(tf); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	q := url.Values{}
	q.Set("symbol", strings.ReplaceAll(symbol, "/", ""))
	q.Set("interval", tf.String())
	q.Set("startTime", strconv.FormatInt(sinceMs, 10))
	q.Set("limit", strconv.Itoa(limit))

	u := fmt.Sprintf("%s/api/v3/klines?%s", b.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		var apiErr struct {
			Code int64  `json:"code"`
			Msg  string `json:"msg"`
		}
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("binance http %d: %s", res.StatusCode, apiErr.Msg)
		}
		return nil, fmt.Errorf("binance http %d", res.StatusCode)
	}

	var rows [][]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode klines: %w", err)
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := parseKline(row)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// parseKline reads the leading six fields of a kline row: open time, then
// open, high, low, close and volume as decimal strings. Trailing fields
// (close time, quote volume, trade count, ...) are ignored.
func parseKline(row []json.RawMessage) (domain.Candle, error) {
	if len(row) < 6 {
		return domain.Candle{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}

	var ts int64
	if err := json.Unmarshal(row[0], &ts); err != nil {
		return domain.Candle{}, fmt.Errorf("failed to parse kline open time: %w", err)
	}

	fields := make([]float64, 5)
	for i, raw := range row[1:6] {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.Candle{}, fmt.Errorf("failed to parse kline field %d: %w", i+1, err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("failed to parse kline field %d %q: %w", i+1, s, err)
		}
		fields[i] = f
	}

	return domain.Candle{
		Timestamp: ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

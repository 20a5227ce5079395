package domain

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe is the duration covered by a single candle.
type Timeframe time.Duration

const (
	Timeframe1m  = Timeframe(time.Minute)
	Timeframe5m  = Timeframe(time.Minute * 5)
	Timeframe15m = Timeframe(time.Minute * 15)
	Timeframe1h  = Timeframe(time.Hour)
	Timeframe6h  = Timeframe(time.Hour * 6)
	Timeframe12h = Timeframe(time.Hour * 12)
	Timeframe1d  = Timeframe(time.Hour * 24)
	Timeframe1w  = Timeframe(time.Hour * 24 * 7)
)

func (tf Timeframe) String() string {
	return timeframeToString[tf]
}

// Valid reports whether tf is one of the enumerated timeframes.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeToString[tf]
	return ok
}

func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf)
}

// Seconds returns the candle interval in whole seconds.
func (tf Timeframe) Seconds() int64 {
	return int64(time.Duration(tf) / time.Second)
}

// Millis returns the candle interval in milliseconds, the unit candle
// timestamps are expressed in.
func (tf Timeframe) Millis() int64 {
	return int64(time.Duration(tf) / time.Millisecond)
}

// TruncateMillis rounds ts down to the start of the bucket containing it.
func (tf Timeframe) TruncateMillis(ts int64) int64 {
	return ts - ts%tf.Millis()
}

func ParseTimeframe(s string) (Timeframe, error) {
	if s == "1M" {
		return 0, fmt.Errorf("%w: 1 month time frame is not supported. Maximum is 1 week.", ErrValidation)
	}
	tf, ok := stringToTimeframe[s]
	if !ok {
		return 0, UnsupportedTimeframe(s, timeframes)
	}
	return tf, nil
}

// UnsupportedTimeframe reports that tf is not accepted, naming the set that
// is. The writer uses it with a source's supported set, which may be narrower
// than the full enumeration.
func UnsupportedTimeframe(tf string, supported []Timeframe) error {
	names := make([]string, len(supported))
	for i, s := range supported {
		names[i] = s.String()
	}
	return fmt.Errorf("%w: Unsupported timeframe %q, must be one of: %s", ErrValidation, tf, strings.Join(names, ", "))
}

// Timeframes lists the supported timeframes in ascending interval order.
func Timeframes() []Timeframe {
	out := make([]Timeframe, len(timeframes))
	copy(out, timeframes)
	return out
}

var timeframes = []Timeframe{
	Timeframe1m,
	Timeframe5m,
	Timeframe15m,
	Timeframe1h,
	Timeframe6h,
	Timeframe12h,
	Timeframe1d,
	Timeframe1w,
}

var timeframeToString = map[Timeframe]string{
	Timeframe1m:  "1m",
	Timeframe5m:  "5m",
	Timeframe15m: "15m",
	Timeframe1h:  "1h",
	Timeframe6h:  "6h",
	Timeframe12h: "12h",
	Timeframe1d:  "1d",
	Timeframe1w:  "1w",
}

var stringToTimeframe = map[string]Timeframe{
	"1m":  Timeframe1m,
	"5m":  Timeframe5m,
	"15m": Timeframe15m,
	"1h":  Timeframe1h,
	"6h":  Timeframe6h,
	"12h": Timeframe12h,
	"1d":  Timeframe1d,
	"1w":  Timeframe1w,
}

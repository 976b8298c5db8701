package domain

import "fmt"

// Interval is a fixed OHLCV bucket width. Bucket boundaries are aligned to
// UTC epoch multiples of the interval width.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval6h  Interval = "6h"
	Interval1d  Interval = "1d"
)

var intervalSeconds = map[Interval]int64{
	Interval1m:  60,
	Interval5m:  300,
	Interval15m: 900,
	Interval1h:  3600,
	Interval6h:  21600,
	Interval1d:  86400,
}

// ParseInterval converts a string like "5m" or "1d" into an Interval. It
// returns ErrInvalidInterval for anything outside the fixed enumeration.
func ParseInterval(s string) (Interval, error) {
	iv := Interval(s)
	if _, ok := intervalSeconds[iv]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	return iv, nil
}

// Seconds returns the bucket width in seconds, or 0 for an unknown interval.
func (i Interval) Seconds() int64 {
	return intervalSeconds[i]
}

// PricePoint is a single raw price observation for an outcome token.
// Timestamps are Unix seconds (UTC); prices live in [0,1] since an outcome
// token settles at 0 or 1.
type PricePoint struct {
	Timestamp int64
	Price     float64
}

// PriceBar is one OHLCV summary bar. Timestamp is the bucket start (Unix
// seconds). Volume is an activity proxy derived from the observations in the
// bucket, not traded notional: the CLOB price history carries no sizes.
type PriceBar struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

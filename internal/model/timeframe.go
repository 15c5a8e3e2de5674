package model

import (
	"fmt"
	"time"
)

// Timeframe identifies a fixed candle bucket duration.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// Timeframes lists every supported timeframe in ascending bucket size.
var Timeframes = []Timeframe{
	Timeframe1m,
	Timeframe5m,
	Timeframe15m,
	Timeframe1h,
	Timeframe4h,
	Timeframe1d,
}

var timeframeSeconds = map[Timeframe]int64{
	Timeframe1m:  60,
	Timeframe5m:  300,
	Timeframe15m: 900,
	Timeframe1h:  3600,
	Timeframe4h:  14400,
	Timeframe1d:  86400,
}

// Seconds returns the bucket duration in seconds.
func (tf Timeframe) Seconds() int64 {
	return timeframeSeconds[tf]
}

// Duration returns the bucket duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Seconds()) * time.Second
}

// BucketStart truncates ts down to the open time of the bucket containing it.
func (tf Timeframe) BucketStart(ts time.Time) time.Time {
	secs := tf.Seconds()
	return time.Unix(ts.Unix()/secs*secs, 0).UTC()
}

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeSeconds[tf]; !ok {
		return "", fmt.Errorf("unsupported timeframe: %s", s)
	}
	return tf, nil
}

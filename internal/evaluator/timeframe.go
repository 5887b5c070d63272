package evaluator

import "time"

// timeframeDurations maps the catalog's canonical timeframe strings (shared
// with planner.timeframeOrder) to wall-clock bucket widths, used by Aggregate
// to bin a record collection into bar-aligned buckets. time.ParseDuration
// cannot parse "1d"/"1w", so this table exists purely to bridge that gap.
var timeframeDurations = map[string]time.Duration{
	"1s":  time.Second,
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// bucketStart floors a nanosecond timestamp to the start of its bucket for
// the given timeframe, anchored at the Unix epoch.
func bucketStart(ts int64, tf string) int64 {
	d, ok := timeframeDurations[tf]
	if !ok || d <= 0 {
		return ts
	}
	width := d.Nanoseconds()
	return (ts / width) * width
}

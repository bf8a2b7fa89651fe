package session

import (
	"context"
	"sort"
	"time"

	"github.com/ksuda/kiroku/internal/record"
)

// DefaultTrendLength is how many recent attempts the trend views show.
const DefaultTrendLength = 10

// The aggregation queries rescan the dataset on every call. The
// dataset is one learner's practice history, so a scan is cheap and
// the store's own read cache bounds the I/O.

// BestTime returns the minimum recorded time for (subject, level).
// ok is false when no matching records exist.
func (c *Controller) BestTime(ctx context.Context, subject, level string) (secs float64, ok bool) {
	for _, r := range c.matching(ctx, subject, level) {
		if !ok || r.Seconds < secs {
			secs = r.Seconds
			ok = true
		}
	}
	return secs, ok
}

// LastAttemptDate returns the date of the most recent attempt for
// (subject, level). ok is false when no matching records exist.
func (c *Controller) LastAttemptDate(ctx context.Context, subject, level string) (last time.Time, ok bool) {
	for _, r := range c.matching(ctx, subject, level) {
		if !ok || r.Date.After(last) {
			last = r.Date
			ok = true
		}
	}
	return last, ok
}

// AttemptCount returns how many attempts exist for (subject, level).
func (c *Controller) AttemptCount(ctx context.Context, subject, level string) int {
	return len(c.matching(ctx, subject, level))
}

// RecentTrend returns the matching records sorted by date ascending,
// trimmed to the most recent n. n <= 0 selects DefaultTrendLength.
// The result is recomputed on every call.
func (c *Controller) RecentTrend(ctx context.Context, subject, level string, n int) []record.Record {
	if n <= 0 {
		n = DefaultTrendLength
	}
	matched := c.matching(ctx, subject, level)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date.Before(matched[j].Date)
	})
	if len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	return matched
}

func (c *Controller) matching(ctx context.Context, subject, level string) []record.Record {
	var out []record.Record
	for _, r := range c.Records(ctx) {
		if r.Subject == subject && r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// Package clock resolves the run's notion of "today" in the target
// timezone, with a config override for tests and backfills.
package clock

import (
	"fmt"
	"time"
)

// Today returns the calendar date the run operates against, truncated
// to midnight in the given timezone. A non-empty override in
// YYYY-MM-DD form wins over the wall clock.
func Today(override, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	if override != "" {
		d, err := time.ParseInLocation("2006-01-02", override, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse today override %q: %w", override, err)
		}
		return d, nil
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
}

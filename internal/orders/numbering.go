package orders

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Counter counts orders created within [from, to)
type Counter interface {
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

// Numberer hands out day-scoped order numbers: "1" for the first order of a
// restaurant day, then "2", "3" and so on.
//
// Next is a read followed by a later write and is not synchronized. Two
// submissions that read the count before either one persists get the same
// number and both orders are stored with it. Lookups by number resolve to
// the most recent order.
type Numberer struct {
	counter  Counter
	location *time.Location
}

// NewNumberer creates a numberer whose days start at midnight in loc.
// A nil loc means UTC.
func NewNumberer(counter Counter, loc *time.Location) *Numberer {
	if loc == nil {
		loc = time.UTC
	}
	return &Numberer{counter: counter, location: loc}
}

// Location returns the time zone that defines a day
func (n *Numberer) Location() *time.Location {
	return n.location
}

// Next returns the number the next order created at now should carry
func (n *Numberer) Next(ctx context.Context, now time.Time) (string, error) {
	from, to := DayBounds(now, n.location)
	count, err := n.counter.CountCreatedBetween(ctx, from, to)
	if err != nil {
		return "", fmt.Errorf("failed to count today's orders: %w", err)
	}
	return strconv.Itoa(count + 1), nil
}

// DayBounds returns midnight of now's calendar day in loc and the following
// midnight, both in UTC so they compare against stored timestamps directly.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start.UTC(), end.UTC()
}

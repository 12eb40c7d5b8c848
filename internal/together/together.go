// Package together computes how long a couple has been together and keeps
// that value ticking for live displays.
package together

import (
	"context"
	"time"
)

// Elapsed is one snapshot of the counter. Every component is derived from
// the total elapsed amount in its own unit and reduced by its modulus.
type Elapsed struct {
	Years   int `json:"years"`
	Months  int `json:"months"`
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// DaysModulus keeps the counter's day component in [0,29] regardless of the
// length of the current month.
const DaysModulus = 30

// Between returns the elapsed time from start to now. A start in the future
// yields the zero value.
func Between(start, now time.Time) Elapsed {
	if !start.Before(now) {
		return Elapsed{}
	}

	months := calendarMonths(start, now)
	d := now.Sub(start)

	return Elapsed{
		Years:   months / 12,
		Months:  months % 12,
		Days:    int(d/(24*time.Hour)) % DaysModulus,
		Hours:   int(d/time.Hour) % 24,
		Minutes: int(d/time.Minute) % 60,
		Seconds: int(d/time.Second) % 60,
	}
}

// calendarMonths counts whole calendar months in [start, now].
func calendarMonths(start, now time.Time) int {
	now = now.In(start.Location())
	months := (now.Year()-start.Year())*12 + int(now.Month()-start.Month())
	for months > 0 && AddMonths(start, months).After(now) {
		months--
	}
	return months
}

// AddMonths adds n calendar months, clamping the day to the end of the
// target month (Jan 31 + 1 month = Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Run emits Between(start, clock()) right away and then on every interval
// until ctx is done or emit fails. The ticker never outlives the call.
func Run(ctx context.Context, start time.Time, interval time.Duration, clock func() time.Time, emit func(Elapsed) error) error {
	if clock == nil {
		clock = time.Now
	}
	if err := emit(Between(start, clock())); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := emit(Between(start, clock())); err != nil {
				return err
			}
		}
	}
}

// ParseStartDate accepts YYYY-MM-DD or RFC3339. Plain dates are midnight in loc.
func ParseStartDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

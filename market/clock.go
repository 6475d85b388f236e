package market

import (
	"context"
	"time"
	_ "time/tzdata"
)

// Eastern is the exchange time zone for US equities.
var Eastern = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Clock reports the state of the trading session.
type Clock interface {
	IsOpen(ctx context.Context) (bool, error)
	IsEndOfDay(ctx context.Context) (bool, error)
}

// Calendar is a Clock for regular NYSE/NASDAQ hours. Exchange holidays are
// not modeled; use the broker clock when they matter.
type Calendar struct {
	Open      time.Duration // offset from midnight Eastern, 9h30m
	Close     time.Duration // 16h
	EODBuffer time.Duration // stop this long before the close
	Now       func() time.Time
}

// NewCalendar returns a regular-hours Calendar with the given end-of-day buffer.
func NewCalendar(eodBuffer time.Duration) *Calendar {
	return &Calendar{
		Open:      9*time.Hour + 30*time.Minute,
		Close:     16 * time.Hour,
		EODBuffer: eodBuffer,
		Now:       time.Now,
	}
}

func (c *Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now().In(Eastern)
	}
	return c.Now().In(Eastern)
}

func (c *Calendar) sessionBounds(t time.Time) (open, closeAt time.Time) {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Eastern)
	return midnight.Add(c.Open), midnight.Add(c.Close)
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsOpen reports whether the regular session is in progress.
func (c *Calendar) IsOpen(_ context.Context) (bool, error) {
	t := c.now()
	if !isWeekday(t) {
		return false, nil
	}
	open, closeAt := c.sessionBounds(t)
	return !t.Before(open) && t.Before(closeAt), nil
}

// IsEndOfDay reports whether the session is within EODBuffer of the close
// or already past it.
func (c *Calendar) IsEndOfDay(_ context.Context) (bool, error) {
	t := c.now()
	if !isWeekday(t) {
		return true, nil
	}
	_, closeAt := c.sessionBounds(t)
	return !t.Before(closeAt.Add(-c.EODBuffer)), nil
}

// SessionDate is the Eastern calendar date of t, formatted YYYY-MM-DD.
func SessionDate(t time.Time) string {
	return t.In(Eastern).Format(time.DateOnly)
}

// NextMinute returns the top of the minute following t.
func NextMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute).Add(time.Minute)
}

// WaitForMinute blocks until the top of the next minute or until ctx is done.
func WaitForMinute(ctx context.Context, now time.Time) error {
	timer := time.NewTimer(NextMinute(now).Sub(now))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

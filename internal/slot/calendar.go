package slot

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // hall zones resolve on hosts without a zoneinfo database
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// MaxBulkDays caps how many calendar days a single weekly expansion may cover.
const MaxBulkDays = 366

var (
	ErrBadDate  = errors.New("date must be YYYY-MM-DD")
	ErrBadClock = errors.New("time must be HH:MM")
	ErrBadRange = errors.New("end must be after start")
)

// ParseDate parses a YYYY-MM-DD date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrBadDate
	}
	return d, nil
}

// Day returns the calendar day [00:00, next 00:00) in loc for a
// YYYY-MM-DD string.  The interval is 23 or 25 hours long on DST changes.
func Day(s string, loc *time.Location) (Interval, error) {
	d, err := ParseDate(s, loc)
	if err != nil {
		return Interval{}, err
	}
	y, m, dd := d.Date()
	return Interval{Start: d, End: time.Date(y, m, dd+1, 0, 0, 0, 0, loc)}, nil
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour, Minute int
}

// ParseClock accepts "HH:MM" and "HH:MM:SS" (seconds are ignored).
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if len(s) > 5 {
		s = s[:5]
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, ErrBadClock
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

// On places the clock on the calendar day of d in loc.
func (c Clock) On(d time.Time, loc *time.Location) time.Time {
	y, m, dd := d.In(loc).Date()
	return time.Date(y, m, dd, c.Hour, c.Minute, 0, 0, loc)
}

// Weekday numbers days Monday=0 … Sunday=6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WeeklyRule describes a recurring daily window over a date range.
type WeeklyRule struct {
	From, To   time.Time // calendar days in loc, inclusive
	Start, End Clock
	Days       []int // Monday=0 … Sunday=6
}

// Expand returns one window per matching day between From and To.
func (r WeeklyRule) Expand(loc *time.Location) ([]Interval, error) {
	if r.End.minutes() <= r.Start.minutes() {
		return nil, fmt.Errorf("%w: end_time %02d:%02d is not after start_time %02d:%02d",
			ErrBadRange, r.End.Hour, r.End.Minute, r.Start.Hour, r.Start.Minute)
	}
	if r.To.Before(r.From) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrBadRange)
	}
	days := map[int]bool{}
	for _, d := range r.Days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid day of week %d (want 0..6, Monday=0)", d)
		}
		days[d] = true
	}
	if len(days) == 0 {
		return nil, errors.New("days_of_week must not be empty")
	}

	var out []Interval
	fy, fm, fd := r.From.In(loc).Date()
	for i := 0; ; i++ {
		day := time.Date(fy, fm, fd+i, 0, 0, 0, 0, loc)
		if day.After(r.To) {
			break
		}
		if i >= MaxBulkDays {
			return nil, fmt.Errorf("date range exceeds %d days", MaxBulkDays)
		}
		if !days[Weekday(day)] {
			continue
		}
		out = append(out, Interval{Start: r.Start.On(day, loc), End: r.End.On(day, loc)})
	}
	return out, nil
}

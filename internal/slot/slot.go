// Package slot computes bookable time slots from availability windows and
// existing appointments.  Everything here is pure: callers load the data,
// this package only does interval arithmetic.
//
// All intervals are half-open, [Start, End).  Two intervals that merely
// touch (a.End == b.Start) do not overlap.
package slot

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New builds an interval.  It does not validate ordering; see Valid.
func New(start, end time.Time) Interval { return Interval{Start: start, End: end} }

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool { return i.Start.Before(i.End) }

// Duration returns End - Start.
func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

// Contains reports whether o lies entirely inside i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// In converts both bounds to loc.
func (i Interval) In(loc *time.Location) Interval {
	return Interval{Start: i.Start.In(loc), End: i.End.In(loc)}
}

// Overlaps is the single overlap rule used by slot generation, booking
// validation and bulk availability creation.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// OverlapsAny reports whether iv overlaps any interval in set.
func OverlapsAny(iv Interval, set []Interval) bool {
	for _, s := range set {
		if Overlaps(iv, s) {
			return true
		}
	}
	return false
}

// Split chunks w into consecutive intervals of the given length.  A
// trailing remainder shorter than length is dropped.
func Split(w Interval, length time.Duration) []Interval {
	if length <= 0 || !w.Valid() {
		return nil
	}
	var out []Interval
	for s := w.Start; !s.Add(length).After(w.End); s = s.Add(length) {
		out = append(out, Interval{Start: s, End: s.Add(length)})
	}
	return out
}

// FreeSlots returns the ordered, de-duplicated list of fixed-length slots
// that fit inside the windows and do not overlap any busy interval.
// Slots that ended at or before now are dropped unless includePast is set.
// The result is never nil.
func FreeSlots(windows, busy []Interval, length time.Duration, now time.Time, includePast bool) []Interval {
	out := make([]Interval, 0)
	for _, w := range windows {
		for _, c := range Split(w, length) {
			if OverlapsAny(c, busy) {
				continue
			}
			if !includePast && !c.End.After(now) {
				continue
			}
			out = append(out, c)
		}
	}
	sortByStart(out)
	return dedupeStarts(out)
}

// FreeIntervals subtracts busy from every window and returns the remaining
// maximal pieces, ordered by start.  It does not chunk or filter by time.
func FreeIntervals(windows, busy []Interval) []Interval {
	out := make([]Interval, 0)
	for _, w := range windows {
		parts := []Interval{w}
		for _, b := range busy {
			var next []Interval
			for _, p := range parts {
				if !Overlaps(p, b) {
					next = append(next, p)
					continue
				}
				if p.Start.Before(b.Start) {
					next = append(next, Interval{Start: p.Start, End: b.Start})
				}
				if b.End.Before(p.End) {
					next = append(next, Interval{Start: b.End, End: p.End})
				}
			}
			parts = next
		}
		for _, p := range parts {
			if p.Valid() {
				out = append(out, p)
			}
		}
	}
	sortByStart(out)
	return out
}

// Span returns the smallest interval covering every element of set and
// false when set is empty.
func Span(set []Interval) (Interval, bool) {
	if len(set) == 0 {
		return Interval{}, false
	}
	span := set[0]
	for _, s := range set[1:] {
		if s.Start.Before(span.Start) {
			span.Start = s.Start
		}
		if s.End.After(span.End) {
			span.End = s.End
		}
	}
	return span, true
}

func sortByStart(s []Interval) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Start.Equal(s[j].Start) {
			return s[i].End.Before(s[j].End)
		}
		return s[i].Start.Before(s[j].Start)
	})
}

// dedupeStarts keeps the first interval for each start instant.  Input
// must already be sorted.
func dedupeStarts(s []Interval) []Interval {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, iv := range s[1:] {
		if iv.Start.Equal(out[len(out)-1].Start) {
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Package scheduling turns a doctor's schedule windows into bookable time slots.
package scheduling

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidClock is returned for times that are not "HH:MM" within a day.
var ErrInvalidClock = errors.New("invalid time, expected HH:MM")

// Clock is a time of day in minutes since midnight.
type Clock int

// ParseClock parses "HH:MM" (00:00 to 23:59).
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(h*60 + m), nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// String formats the clock as HH:MM. Values past midnight wrap.
func (c Clock) String() string {
	m := int(c) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// MarshalJSON encodes the clock as "HH:MM".
func (c Clock) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// Window is a continuous span of availability cut into slots of Duration minutes.
type Window struct {
	Start    Clock
	End      Clock
	Duration int
}

// Slot is a single bookable interval [Start, End).
type Slot struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

func (s Slot) overlaps(o Slot) bool {
	return s.Start < o.End && o.Start < s.End
}

// GenerateSlots enumerates Start, Start+d, ... keeping only slots that end
// within the window.
func GenerateSlots(w Window) []Slot {
	if w.Duration <= 0 || w.End <= w.Start {
		return nil
	}
	var slots []Slot
	for t := w.Start; t+Clock(w.Duration) <= w.End; t += Clock(w.Duration) {
		slots = append(slots, Slot{Start: t, End: t + Clock(w.Duration)})
	}
	return slots
}

// Rule is an availability window that applies either every week on Weekday
// or on one specific Date.
type Rule struct {
	Weekday *time.Weekday
	Date    *time.Time
	Window  Window
}

// SlotsForDate returns the sorted, de-duplicated slots offered on date.
// Rules for that specific date replace the weekly rules for its weekday.
func SlotsForDate(rules []Rule, date time.Time) []Slot {
	var specific, weekly []Window
	for _, r := range rules {
		switch {
		case r.Date != nil:
			if SameDay(*r.Date, date) {
				specific = append(specific, r.Window)
			}
		case r.Weekday != nil:
			if *r.Weekday == date.Weekday() {
				weekly = append(weekly, r.Window)
			}
		}
	}

	windows := weekly
	if len(specific) > 0 {
		windows = specific
	}

	seen := make(map[Clock]bool)
	var slots []Slot
	for _, w := range windows {
		for _, s := range GenerateSlots(w) {
			if seen[s.Start] {
				continue
			}
			seen[s.Start] = true
			slots = append(slots, s)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots
}

// FilterOccupied drops every slot that overlaps an occupied interval.
func FilterOccupied(slots, occupied []Slot) []Slot {
	if len(occupied) == 0 {
		return slots
	}
	free := make([]Slot, 0, len(slots))
	for _, s := range slots {
		taken := false
		for _, o := range occupied {
			if s.overlaps(o) {
				taken = true
				break
			}
		}
		if !taken {
			free = append(free, s)
		}
	}
	return free
}

// FilterPast removes slots that can no longer be booked at now. A slot must
// start at or after now+lead, so past dates yield nothing.
func FilterPast(slots []Slot, date, now time.Time, lead time.Duration) []Slot {
	limit := now.Add(lead)
	limitDay := time.Date(limit.Year(), limit.Month(), limit.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case day.Before(limitDay):
		return nil
	case day.After(limitDay):
		return slots
	}

	cutoff := Clock(limit.Hour()*60 + limit.Minute())
	if limit.Second() > 0 || limit.Nanosecond() > 0 {
		cutoff++
	}
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.Start >= cutoff {
			out = append(out, s)
		}
	}
	return out
}

// Find returns the slot starting at start.
func Find(slots []Slot, start Clock) (Slot, bool) {
	for _, s := range slots {
		if s.Start == start {
			return s, true
		}
	}
	return Slot{}, false
}

// SameDay compares calendar dates, ignoring clock and location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package analytics

import (
	"fmt"
	"time"
)

// Window is an inclusive [From, To] time range used to filter settled
// records. The zero Window means all time: it contains everything.
type Window struct {
	From time.Time
	To   time.Time
}

// Named window presets.
const (
	WindowToday     = "today"
	WindowThisWeek  = "this_week"
	WindowLastWeek  = "last_week"
	WindowThisMonth = "this_month"
	WindowLastMonth = "last_month"
	WindowAllTime   = "all_time"
)

// ParseWindow resolves a named preset relative to now. Weeks start on
// Monday. Day boundaries are inclusive on both ends: a record at
// 23:59:59.999 of the final day is in, the next day's midnight is out.
func ParseWindow(name string, now time.Time) (Window, error) {
	switch name {
	case WindowToday:
		from := startOfDay(now)
		return Window{From: from, To: endOfDay(now)}, nil
	case WindowThisWeek:
		from := startOfWeek(now)
		return Window{From: from, To: endOfDay(from.AddDate(0, 0, 6))}, nil
	case WindowLastWeek:
		from := startOfWeek(now).AddDate(0, 0, -7)
		return Window{From: from, To: endOfDay(from.AddDate(0, 0, 6))}, nil
	case WindowThisMonth:
		from := startOfMonth(now)
		return Window{From: from, To: endOfDay(from.AddDate(0, 1, -1))}, nil
	case WindowLastMonth:
		from := startOfMonth(now).AddDate(0, -1, 0)
		return Window{From: from, To: endOfDay(from.AddDate(0, 1, -1))}, nil
	case WindowAllTime, "":
		return Window{}, nil
	default:
		return Window{}, fmt.Errorf("analytics: unknown window %q", name)
	}
}

// WindowRange builds a custom window covering whole calendar days from the
// day of from through the day of to.
func WindowRange(from, to time.Time) Window {
	return Window{From: startOfDay(from), To: endOfDay(to)}
}

// Contains reports whether t falls inside the window, inclusive of both
// boundary instants.
func (w Window) Contains(t time.Time) bool {
	if w.From.IsZero() && w.To.IsZero() {
		return true
	}
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// endOfDay is the last representable instant of t's calendar day, so the
// next day's midnight falls outside the window.
func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func startOfWeek(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 { // Sunday belongs to the week that started the previous Monday
		wd = 7
	}
	return startOfDay(t).AddDate(0, 0, -(wd - 1))
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

package entity

import (
	"time"
)

// View selects the due-date window a dashboard looks at
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
	ViewAll   View = "all"
)

// DateLayout is the wire format for filter dates
const DateLayout = "2006-01-02"

// JobFilter narrows the jobs fed into aggregation
type JobFilter struct {
	View View
	Date time.Time // anchor day, zero means today
}

// ParseJobFilter builds a filter from query values; empty view means all
func ParseJobFilter(view, date string) (JobFilter, error) {
	f := JobFilter{View: ViewAll}
	if view != "" {
		switch View(view) {
		case ViewDay, ViewWeek, ViewMonth, ViewAll:
			f.View = View(view)
		default:
			return JobFilter{}, ErrInvalidView
		}
	}
	if date != "" {
		d, err := time.Parse(DateLayout, date)
		if err != nil {
			return JobFilter{}, ErrInvalidDate
		}
		f.Date = d
	}
	return f, nil
}

// IsDefault reports whether the filter is the unfiltered dashboard view
func (f JobFilter) IsDefault() bool {
	return (f.View == ViewAll || f.View == "") && f.Date.IsZero()
}

// Key identifies the filter for caching and request coalescing
func (f JobFilter) Key() string {
	v := f.View
	if v == "" {
		v = ViewAll
	}
	if f.Date.IsZero() {
		return string(v)
	}
	return string(v) + ":" + f.Date.Format(DateLayout)
}

// Range returns the half-open due-date window [from, to).
// ok is false for the all view, which is unbounded.
func (f JobFilter) Range(now time.Time) (from, to time.Time, ok bool) {
	anchor := f.Date
	if anchor.IsZero() {
		anchor = now
	}
	day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, anchor.Location())

	switch f.View {
	case ViewDay:
		return day, day.AddDate(0, 0, 1), true
	case ViewWeek:
		// weeks start on Monday
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, DaysPerWeek), true
	case ViewMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(0, 1, 0), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

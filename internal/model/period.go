package model

import "time"

// Window tags a period with the comparable window it represents.
type Window string

const (
	WindowCurrent     Window = "current"
	WindowPriorYear   Window = "prior_year"
	WindowTrailing12M Window = "trailing_12m"
	WindowMonth       Window = "month"
	WindowUnknown     Window = ""
)

// CanonicalWindows lists the windows fact rows are bucketed into, in
// tie-break order.
var CanonicalWindows = []Window{WindowCurrent, WindowPriorYear, WindowTrailing12M}

// Period is a closed date range with a window tag.
type Period struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Window Window    `json:"window,omitempty"`
}

// Days returns the number of calendar days covered, inclusive.
func (p Period) Days() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// IsZero reports whether no dates are set.
func (p Period) IsZero() bool { return p.Start.IsZero() && p.End.IsZero() }

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart truncates t to the first day of its month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

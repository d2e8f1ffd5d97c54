package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Fraztahir/adsellix-audit/internal/model"
)

var currencyReplacer = strings.NewReplacer("$", "", "£", "", "€", "", ",", "", " ", "", "\u00a0", "")

// ParseNumber converts a report cell to a value. Blank cells and dash
// placeholders are missing, not zero. Currency symbols and thousands
// separators are stripped and parentheses denote a negative amount. When
// percent is set the result is a fraction (15.5 or 15.5% becomes 0.155).
func ParseNumber(s string, percent bool) (model.Value, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "-", "--", "n/a", "na", "null":
		return model.Missing(), nil
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = currencyReplacer.Replace(s)
	s = strings.TrimSuffix(s, "%")
	if strings.HasPrefix(s, "-") && neg {
		return model.Missing(), eris.Errorf("ambiguous sign in %q", s)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return model.Missing(), eris.Errorf("not a number: %q", s)
	}
	if neg {
		f = -f
	}
	if percent {
		f /= 100
	}
	return model.Of(f), nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
}

var monthLayouts = []string{
	"2006-01",
	"2006/01",
	"Jan 2006",
	"January 2006",
	"01/2006",
	"1/2006",
}

// ParseDate parses a report date cell into a UTC day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, eris.Errorf("not a date: %q", s)
}

// ParseMonth parses a month cell ("2025-03", "Mar 2025", or any full date)
// into the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.MonthStart(t), nil
		}
	}
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, eris.Errorf("not a month: %q", s)
	}
	return model.MonthStart(t), nil
}

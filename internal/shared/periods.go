package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period selects a reporting window relative to "now".
type Period string

// Supported periods.
const (
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
	PeriodAll     Period = "all"
)

// ErrInvalidPeriod indicates an unknown period selector.
var ErrInvalidPeriod = errors.New("invalid period")

// ParsePeriod parses a selector; empty input defaults to month.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PeriodMonth, nil
	case PeriodMonth, PeriodQuarter, PeriodYear, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
}

// Window returns the half-open interval [from, to) for the period containing now.
// PeriodAll yields two zero times, meaning unbounded.
func (p Period) Window(now time.Time) (from, to time.Time) {
	loc := now.Location()
	switch p {
	case PeriodMonth:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 1, 0)
	case PeriodQuarter:
		startMonth := time.Month((int(now.Month())-1)/3*3 + 1)
		from = time.Date(now.Year(), startMonth, 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 3, 0)
	case PeriodYear:
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		to = from.AddDate(1, 0, 0)
	}
	return from, to
}

// InWindow reports whether t falls within [from, to). Zero bounds are open.
func InWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// FilterByPeriod keeps the records whose date falls inside the period window.
func FilterByPeriod[T any](records []T, p Period, now time.Time, dateOf func(T) time.Time) []T {
	from, to := p.Window(now)
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if InWindow(dateOf(rec), from, to) {
			out = append(out, rec)
		}
	}
	return out
}

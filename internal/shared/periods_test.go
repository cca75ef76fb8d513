package shared

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, p)

	p, err = ParsePeriod(" Quarter ")
	require.NoError(t, err)
	assert.Equal(t, PeriodQuarter, p)

	_, err = ParsePeriod("week")
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPeriodWindow(t *testing.T) {
	now := time.Date(2024, time.May, 15, 13, 30, 0, 0, time.UTC)
	cases := []struct {
		period   Period
		from, to time.Time
	}{
		{PeriodMonth, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodQuarter, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodYear, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodAll, time.Time{}, time.Time{}},
	}
	for _, tc := range cases {
		t.Run(string(tc.period), func(t *testing.T) {
			from, to := tc.period.Window(now)
			assert.True(t, tc.from.Equal(from), "from %s", from)
			assert.True(t, tc.to.Equal(to), "to %s", to)
		})
	}
}

func TestQuarterWindowAtYearEnd(t *testing.T) {
	from, to := PeriodQuarter.Window(time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.October, from.Month())
	assert.Equal(t, 2024, to.Year())
	assert.Equal(t, time.January, to.Month())
}

func TestInWindowIsHalfOpen(t *testing.T) {
	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	assert.True(t, InWindow(from, from, to))
	assert.True(t, InWindow(to.Add(-time.Nanosecond), from, to))
	assert.False(t, InWindow(to, from, to))
	assert.False(t, InWindow(from.Add(-time.Second), from, to))
	assert.True(t, InWindow(from.AddDate(-10, 0, 0), time.Time{}, time.Time{}))
}

func TestFilterByPeriod(t *testing.T) {
	now := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{
		time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.April, 30, 23, 0, 0, 0, time.UTC),
		time.Date(2023, time.May, 2, 0, 0, 0, 0, time.UTC),
	}
	ident := func(t time.Time) time.Time { return t }

	assert.Len(t, FilterByPeriod(dates, PeriodMonth, now, ident), 1)
	assert.Len(t, FilterByPeriod(dates, PeriodQuarter, now, ident), 2)
	assert.Len(t, FilterByPeriod(dates, PeriodAll, now, ident), 3)
	assert.Empty(t, FilterByPeriod([]time.Time{}, PeriodYear, now, ident))
}

func TestRequirePrincipal(t *testing.T) {
	_, err := RequirePrincipal(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = RequirePrincipal(ContextWithPrincipal(context.Background(), Principal{Email: "a@b.c"}))
	require.ErrorIs(t, err, ErrUnauthenticated)

	p, err := RequirePrincipal(ContextWithPrincipal(context.Background(), Principal{ID: "owner-1"}))
	require.NoError(t, err)
	assert.Equal(t, "owner-1", p.ID)
}

package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPeriodBoundariesRelativeKinds(t *testing.T) {
	// Wednesday 2026-01-07.
	now := time.Date(2026, time.January, 7, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		kind  PeriodKind
		start time.Time
		end   time.Time
		label string
	}{
		{PeriodThisWeek, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), "This Week"},
		{PeriodLastWeek, time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), "Last Week"},
		{PeriodThisMonth, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "January 2026"},
		{PeriodLastMonth, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "December 2025"},
		{PeriodThisYear, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "2026"},
		{PeriodLastYear, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "2025"},
	}

	for _, tc := range cases {
		period, err := PeriodBoundaries(tc.kind, now, nil, nil)
		require.NoError(t, err, "kind %s", tc.kind)
		require.Equal(t, tc.start, period.Start, "kind %s start", tc.kind)
		require.Equal(t, tc.end, period.End, "kind %s end", tc.kind)
		require.Equal(t, tc.label, period.Label, "kind %s label", tc.kind)
	}
}

func TestPeriodBoundariesCustom(t *testing.T) {
	now := time.Now()
	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	period, err := PeriodBoundaries(PeriodCustom, now, &start, &end)
	require.NoError(t, err)
	require.Equal(t, start, period.Start)
	require.Equal(t, end, period.End)

	_, err = PeriodBoundaries(PeriodCustom, now, &start, nil)
	require.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = PeriodBoundaries(PeriodCustom, now, nil, &end)
	require.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = PeriodBoundaries(PeriodCustom, now, &end, &start)
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPeriodBoundariesUnknownKind(t *testing.T) {
	_, err := PeriodBoundaries(PeriodKind("fortnight"), time.Now(), nil, nil)
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

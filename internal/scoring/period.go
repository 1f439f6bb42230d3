package scoring

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod flags an unknown period kind or missing custom bounds.
// It is a caller error, never silently defaulted.
var ErrInvalidPeriod = errors.New("invalid period")

// PeriodKind selects a scoring window relative to "now".
type PeriodKind string

const (
	PeriodThisWeek  PeriodKind = "this_week"
	PeriodLastWeek  PeriodKind = "last_week"
	PeriodThisMonth PeriodKind = "this_month"
	PeriodLastMonth PeriodKind = "last_month"
	PeriodThisYear  PeriodKind = "this_year"
	PeriodLastYear  PeriodKind = "last_year"
	PeriodCustom    PeriodKind = "custom"
)

// Period is a resolved half-open scoring window with a display label.
type Period struct {
	Start time.Time
	End   time.Time
	Label string
}

// PeriodBoundaries resolves a kind against the reference time (custom
// kinds require both bounds). Start is inclusive, End exclusive, both in
// the reference's naive local time.
func PeriodBoundaries(kind PeriodKind, now time.Time, customStart, customEnd *time.Time) (Period, error) {
	loc := now.Location()

	switch kind {
	case PeriodThisWeek:
		start, end := WeekBoundaries(now)
		return Period{Start: start, End: end, Label: "This Week"}, nil
	case PeriodLastWeek:
		start, end := WeekBoundaries(now.AddDate(0, 0, -7))
		return Period{Start: start, End: end, Label: "Last Week"}, nil
	case PeriodThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return Period{Start: start, End: start.AddDate(0, 1, 0), Label: now.Format("January 2006")}, nil
	case PeriodLastMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -1, 0)
		return Period{Start: start, End: start.AddDate(0, 1, 0), Label: start.Format("January 2006")}, nil
	case PeriodThisYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return Period{Start: start, End: start.AddDate(1, 0, 0), Label: start.Format("2006")}, nil
	case PeriodLastYear:
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, loc)
		return Period{Start: start, End: start.AddDate(1, 0, 0), Label: start.Format("2006")}, nil
	case PeriodCustom:
		if customStart == nil || customEnd == nil {
			return Period{}, fmt.Errorf("%w: custom period requires both bounds", ErrInvalidPeriod)
		}
		if !customEnd.After(*customStart) {
			return Period{}, fmt.Errorf("%w: custom end must be after start", ErrInvalidPeriod)
		}
		label := fmt.Sprintf("%s – %s", customStart.Format("2006-01-02"), customEnd.Format("2006-01-02"))
		return Period{Start: *customStart, End: *customEnd, Label: label}, nil
	default:
		return Period{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidPeriod, kind)
	}
}

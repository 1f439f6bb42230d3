// Package scoring computes the weekly leaderboard. The calculator
// functions are pure so live dashboards and historical recomputation
// agree exactly.
package scoring

import (
	"math"
	"time"
)

// consistencyBonuses rewards distinct active days per week. The 3-day
// tier is 150 points, matching the production scoring table.
var consistencyBonuses = map[int]int{3: 150, 4: 350, 5: 400, 6: 400}

// pointsPerRace is the flat bonus for each race-tagged activity.
const pointsPerRace = 250

// BasePoints awards one point per minute of moving time, rounded
// half-away-from-zero.
func BasePoints(movingTimeSeconds int64) int {
	return int(math.Round(float64(movingTimeSeconds) / 60))
}

// ConsistencyBonus maps distinct active days to bonus points. Input is
// capped at 6; fewer than 3 days earns nothing.
func ConsistencyBonus(daysActive int) int {
	if daysActive > 6 {
		daysActive = 6
	}
	return consistencyBonuses[daysActive]
}

// RaceBonus awards a flat bonus per race.
func RaceBonus(raceCount int) int {
	return raceCount * pointsPerRace
}

// WeekBoundaries returns Monday 00:00:00 of the date's week and the
// following Monday 00:00:00, a half-open interval in the same naive local
// time as the input.
func WeekBoundaries(date time.Time) (start, end time.Time) {
	daysSinceMonday := (int(date.Weekday()) + 6) % 7
	day := date.AddDate(0, 0, -daysSinceMonday)
	start = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 7)
}

package scoring

import (
	"sort"
	"time"

	"example.com/runclub/internal/domain"
)

// LeaderboardEntry is one athlete's aggregate score for a period.
type LeaderboardEntry struct {
	AthleteID        int64    `json:"athlete_id"`
	AthleteName      string   `json:"athlete_name"`
	BasePoints       int      `json:"base_points"`
	ConsistencyBonus int      `json:"consistency_bonus"`
	RaceBonus        int      `json:"race_bonus"`
	TotalPoints      int      `json:"total_points"`
	DaysActive       int      `json:"days_active"`
	RaceCount        int      `json:"race_count"`
	TotalTimeHours   float64  `json:"total_time"`
	TotalDistanceKm  float64  `json:"total_distance"`
	AvgPaceMinPerKm  *float64 `json:"avg_pace,omitempty"`
}

// Leaderboard scores the given activities (already filtered to the coarse
// type and period by the store read) against the known users. Athletes
// without a directory entry or with a total of zero are dropped. The sort
// is stable and descending by total; grouping order is first-seen, with
// no further tie-break defined.
func Leaderboard(activities []domain.Activity, users map[int64]domain.User) []LeaderboardEntry {
	grouped := make(map[int64][]domain.Activity)
	var order []int64
	for _, act := range activities {
		if _, seen := grouped[act.AthleteID]; !seen {
			order = append(order, act.AthleteID)
		}
		grouped[act.AthleteID] = append(grouped[act.AthleteID], act)
	}

	entries := make([]LeaderboardEntry, 0, len(order))
	for _, athleteID := range order {
		user, ok := users[athleteID]
		if !ok {
			continue
		}

		entry := scoreAthlete(grouped[athleteID])
		if entry.TotalPoints <= 0 {
			continue
		}
		entry.AthleteID = athleteID
		entry.AthleteName = user.FullName()
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalPoints > entries[j].TotalPoints
	})
	return entries
}

func scoreAthlete(activities []domain.Activity) LeaderboardEntry {
	var (
		entry        LeaderboardEntry
		totalSeconds int64
		totalMeters  float64
		days         = make(map[string]struct{})
	)

	for _, act := range activities {
		entry.BasePoints += BasePoints(act.MovingTime)
		totalSeconds += act.MovingTime
		totalMeters += act.Distance
		days[act.StartDateLocal.Format("2006-01-02")] = struct{}{}
		if isRace(act) {
			entry.RaceCount++
		}
	}

	entry.DaysActive = len(days)
	entry.ConsistencyBonus = ConsistencyBonus(entry.DaysActive)
	entry.RaceBonus = RaceBonus(entry.RaceCount)
	entry.TotalPoints = entry.BasePoints + entry.ConsistencyBonus + entry.RaceBonus

	entry.TotalTimeHours = float64(totalSeconds) / 3600
	entry.TotalDistanceKm = totalMeters / 1000
	if entry.TotalDistanceKm > 0 {
		pace := (float64(totalSeconds) / 60) / entry.TotalDistanceKm
		entry.AvgPaceMinPerKm = &pace
	}
	return entry
}

func isRace(act domain.Activity) bool {
	return act.WorkoutType != nil && *act.WorkoutType == domain.WorkoutRace
}

// DailyActivity is one activity line in an athlete's breakdown.
type DailyActivity struct {
	Date              string   `json:"date"`
	ActivityID        int64    `json:"activity_id"`
	Name              string   `json:"name"`
	MovingTimeMinutes float64  `json:"moving_time_minutes"`
	DistanceKm        float64  `json:"distance_km"`
	PaceMinPerKm      *float64 `json:"pace,omitempty"`
	Points            int      `json:"points"`
	IsRace            bool     `json:"is_race"`
}

// Breakdown is one athlete's detailed week.
type Breakdown struct {
	AthleteID        int64           `json:"athlete_id"`
	AthleteName      string          `json:"athlete_name"`
	WeekStart        string          `json:"week_start"`
	WeekEnd          string          `json:"week_end"`
	DailyActivities  []DailyActivity `json:"daily_activities"`
	BasePoints       int             `json:"base_points"`
	ConsistencyBonus int             `json:"consistency_bonus"`
	RaceBonus        int             `json:"race_bonus"`
	TotalPoints      int             `json:"total_points"`
	DaysActive       int             `json:"days_active"`
}

// BuildBreakdown computes the per-activity list and totals for one
// athlete's week. Pure: the caller supplies the filtered activities and
// the resolved user.
func BuildBreakdown(user domain.User, activities []domain.Activity, weekStart, weekEnd time.Time) Breakdown {
	breakdown := Breakdown{
		AthleteID:       user.ID,
		AthleteName:     user.FullName(),
		WeekStart:       weekStart.Format("2006-01-02"),
		WeekEnd:         weekEnd.AddDate(0, 0, -1).Format("2006-01-02"),
		DailyActivities: make([]DailyActivity, 0, len(activities)),
	}

	days := make(map[string]struct{})
	for _, act := range activities {
		minutes := float64(act.MovingTime) / 60
		km := act.Distance / 1000

		daily := DailyActivity{
			Date:              act.StartDateLocal.Format("2006-01-02"),
			ActivityID:        act.ID,
			Name:              act.Name,
			MovingTimeMinutes: minutes,
			DistanceKm:        km,
			Points:            BasePoints(act.MovingTime),
			IsRace:            isRace(act),
		}
		if km > 0 {
			pace := minutes / km
			daily.PaceMinPerKm = &pace
		}

		breakdown.DailyActivities = append(breakdown.DailyActivities, daily)
		breakdown.BasePoints += daily.Points
		days[daily.Date] = struct{}{}
		if daily.IsRace {
			breakdown.RaceBonus += pointsPerRace
		}
	}

	breakdown.DaysActive = len(days)
	breakdown.ConsistencyBonus = ConsistencyBonus(breakdown.DaysActive)
	breakdown.TotalPoints = breakdown.BasePoints + breakdown.ConsistencyBonus + breakdown.RaceBonus
	return breakdown
}

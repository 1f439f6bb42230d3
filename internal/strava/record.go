package strava

import (
	"encoding/json"

	"example.com/runclub/internal/domain"
)

// Record maps the remote payload onto the local store record. The full
// payload is serialized into the raw snapshot so later schema additions
// can be backfilled without re-fetching.
func (a Activity) Record() domain.Activity {
	rec := domain.Activity{
		ID:                 a.ID,
		AthleteID:          a.Athlete.ID,
		Name:               a.Name,
		Type:               a.Type,
		SportType:          a.SportType,
		Distance:           a.Distance,
		MovingTime:         a.MovingTime,
		ElapsedTime:        a.ElapsedTime,
		TotalElevationGain: a.TotalElevationGain,
		AverageSpeed:       a.AverageSpeed,
		MaxSpeed:           a.MaxSpeed,
		StartDate:          a.StartDate,
		StartDateLocal:     a.StartDateLocal,
		Timezone:           a.Timezone,
		KudosCount:         a.KudosCount,
		CommentCount:       a.CommentCount,
		AthleteCount:       a.AthleteCount,
		Manual:             a.Manual,
		Private:            a.Private,
		Flagged:            a.Flagged,
	}
	if rec.AthleteCount == 0 {
		rec.AthleteCount = 1
	}
	if a.WorkoutType != nil {
		wt := domain.WorkoutType(*a.WorkoutType)
		rec.WorkoutType = &wt
	}
	if raw, err := json.Marshal(a); err == nil {
		rec.RawData = raw
	}
	return rec
}

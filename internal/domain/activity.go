// Package domain defines the core types shared by the ingestion and
// scoring components.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrActivityNotFound is returned when an activity cannot be located locally.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAthleteNotFound is returned when an athlete is unknown to the user directory.
	ErrAthleteNotFound = errors.New("athlete not found")
)

// WorkoutType is Strava's small classification enum. Zero means default;
// the pointer form distinguishes "absent" from "default".
type WorkoutType int

const (
	WorkoutDefault WorkoutType = 0
	WorkoutRace    WorkoutType = 1
	WorkoutLongRun WorkoutType = 2
	WorkoutWorkout WorkoutType = 3
)

// Activity is the canonical local record of a remote activity. Identity is
// Strava's 64-bit activity ID; exactly one row exists per remote ID.
type Activity struct {
	ID        int64
	AthleteID int64

	Name        string
	Type        string
	SportType   string
	WorkoutType *WorkoutType

	Distance           float64
	MovingTime         int64
	ElapsedTime        int64
	TotalElevationGain float64
	AverageSpeed       *float64
	MaxSpeed           *float64

	// StartDate is the UTC instant; StartDateLocal is the athlete's naive
	// wall-clock time and is authoritative for period boundaries.
	StartDate      time.Time
	StartDateLocal time.Time
	Timezone       string

	KudosCount   int
	CommentCount int
	AthleteCount int

	Manual  bool
	Private bool
	Flagged bool

	// RawData is the full remote payload, overwritten wholesale on update.
	RawData json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is the read-only view of the auth collaborator's athlete record.
type User struct {
	ID           int64
	Firstname    string
	Lastname     string
	Authorized   bool
	AccessToken  string
	TokenExpires time.Time
}

// FullName joins first and last name the way the leaderboard displays it.
func (u User) FullName() string {
	return u.Firstname + " " + u.Lastname
}

// ActivityRepository is the store adapter contract. Upsert reports whether
// the write created a new row; applying the same record twice must leave
// identical stored state.
type ActivityRepository interface {
	Upsert(ctx context.Context, rec Activity) (created bool, err error)
	Delete(ctx context.Context, activityID int64) (bool, error)
	DeleteAllForAthlete(ctx context.Context, athleteID int64) (int64, error)
	Get(ctx context.Context, activityID int64) (*Activity, error)
	ListByAthlete(ctx context.Context, athleteID int64, limit, offset int) ([]Activity, error)
	ListRecent(ctx context.Context, limit int) ([]Activity, error)
	// ListTypeWithin returns activities of the given coarse type whose local
	// start time falls in [start, end), ordered by athlete then local start.
	ListTypeWithin(ctx context.Context, activityType string, start, end time.Time) ([]Activity, error)
}

// UserDirectory looks up athletes owned by the auth collaborator.
// Lookup returns ErrAthleteNotFound for unknown IDs.
type UserDirectory interface {
	Lookup(ctx context.Context, athleteID int64) (*User, error)
	LookupMany(ctx context.Context, athleteIDs []int64) (map[int64]User, error)
}

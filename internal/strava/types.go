package strava

import (
	"fmt"
	"time"
)

// Athlete is the authenticated athlete's profile.
type Athlete struct {
	ID        int64      `json:"id"`
	Firstname string     `json:"firstname"`
	Lastname  string     `json:"lastname"`
	Profile   string     `json:"profile,omitempty"`
	City      string     `json:"city,omitempty"`
	Country   string     `json:"country,omitempty"`
	Premium   bool       `json:"premium,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (a Athlete) Validate() error {
	if a.ID <= 0 {
		return fmt.Errorf("%w: athlete missing id", ErrValidation)
	}
	return nil
}

// Club is a club membership entry.
type Club struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	SportType   string `json:"sport_type"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	MemberCount int    `json:"member_count,omitempty"`
}

func (c Club) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("%w: club missing id", ErrValidation)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: club %d missing name", ErrValidation, c.ID)
	}
	return nil
}

// ActivityRef is the embedded athlete reference on an activity payload.
type ActivityRef struct {
	ID int64 `json:"id"`
}

// Activity is the remote activity payload, summary or detailed. Optional
// metrics use pointers so absent and zero stay distinct.
type Activity struct {
	ID                 int64       `json:"id"`
	Athlete            ActivityRef `json:"athlete"`
	Name               string      `json:"name"`
	Type               string      `json:"type"`
	SportType          string      `json:"sport_type"`
	WorkoutType        *int        `json:"workout_type"`
	Distance           float64     `json:"distance"`
	MovingTime         int64       `json:"moving_time"`
	ElapsedTime        int64       `json:"elapsed_time"`
	TotalElevationGain float64     `json:"total_elevation_gain"`
	AverageSpeed       *float64    `json:"average_speed,omitempty"`
	MaxSpeed           *float64    `json:"max_speed,omitempty"`
	StartDate          time.Time   `json:"start_date"`
	StartDateLocal     time.Time   `json:"start_date_local"`
	Timezone           string      `json:"timezone,omitempty"`
	KudosCount         int         `json:"kudos_count,omitempty"`
	CommentCount       int         `json:"comment_count,omitempty"`
	AthleteCount       int         `json:"athlete_count,omitempty"`
	Manual             bool        `json:"manual,omitempty"`
	Private            bool        `json:"private,omitempty"`
	Flagged            bool        `json:"flagged,omitempty"`
}

func (a Activity) Validate() error {
	if a.ID <= 0 {
		return fmt.Errorf("%w: activity missing id", ErrValidation)
	}
	if a.Athlete.ID <= 0 {
		return fmt.Errorf("%w: activity %d missing athlete id", ErrValidation, a.ID)
	}
	if a.Type == "" {
		return fmt.Errorf("%w: activity %d missing type", ErrValidation, a.ID)
	}
	if a.StartDate.IsZero() || a.StartDateLocal.IsZero() {
		return fmt.Errorf("%w: activity %d missing start dates", ErrValidation, a.ID)
	}
	if a.Distance < 0 || a.MovingTime < 0 || a.ElapsedTime < 0 {
		return fmt.Errorf("%w: activity %d has negative metrics", ErrValidation, a.ID)
	}
	return nil
}

// Subscription is a webhook push subscription registration.
type Subscription struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	CallbackURL   string    `json:"callback_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s Subscription) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("%w: subscription missing id", ErrValidation)
	}
	return nil
}

// ListOptions filters an activity listing. Before/After are epoch seconds;
// zero means unset. PerPage is capped at 200 by the client.
type ListOptions struct {
	Before  int64
	After   int64
	Page    int
	PerPage int
}

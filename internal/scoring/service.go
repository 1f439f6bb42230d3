package scoring

import (
	"context"
	"time"

	"example.com/runclub/internal/domain"
)

// runType is the coarse activity type the leaderboard scores.
const runType = "Run"

// Service reads stored activities and produces leaderboards and
// breakdowns. It performs no writes and no remote calls.
type Service struct {
	store domain.ActivityRepository
	users domain.UserDirectory
}

// NewService constructs a Service.
func NewService(store domain.ActivityRepository, users domain.UserDirectory) *Service {
	return &Service{store: store, users: users}
}

// Leaderboard scores all Run activities with a local start in
// [start, end).
func (s *Service) Leaderboard(ctx context.Context, start, end time.Time) ([]LeaderboardEntry, error) {
	activities, err := s.store.ListTypeWithin(ctx, runType, start, end)
	if err != nil {
		return nil, err
	}

	athleteIDs := make([]int64, 0, 8)
	seen := make(map[int64]struct{})
	for _, act := range activities {
		if _, ok := seen[act.AthleteID]; !ok {
			seen[act.AthleteID] = struct{}{}
			athleteIDs = append(athleteIDs, act.AthleteID)
		}
	}

	users, err := s.users.LookupMany(ctx, athleteIDs)
	if err != nil {
		return nil, err
	}

	return Leaderboard(activities, users), nil
}

// AthleteBreakdown computes one athlete's detailed week containing the
// given date. Unknown athletes surface domain.ErrAthleteNotFound.
func (s *Service) AthleteBreakdown(ctx context.Context, athleteID int64, date time.Time) (*Breakdown, error) {
	user, err := s.users.Lookup(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	weekStart, weekEnd := WeekBoundaries(date)

	activities, err := s.store.ListTypeWithin(ctx, runType, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	own := activities[:0:0]
	for _, act := range activities {
		if act.AthleteID == athleteID {
			own = append(own, act)
		}
	}

	breakdown := BuildBreakdown(*user, own, weekStart, weekEnd)
	return &breakdown, nil
}

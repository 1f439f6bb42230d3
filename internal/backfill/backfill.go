// Package backfill drives the paginated historical pull of activities.
package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"example.com/runclub/internal/domain"
	"example.com/runclub/internal/observability"
	"example.com/runclub/internal/strava"
)

// pageSize is the remote API's maximum listing page.
const pageSize = 200

// Result summarizes one backfill run. It always reflects the work done so
// far; page-level failures end the run but are reported here, not raised.
type Result struct {
	AthleteID      int64    `json:"athlete_id"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	TotalProcessed int      `json:"total_processed"`
	Errors         []string `json:"errors"`
	PagesProcessed int      `json:"pages_processed"`
}

// Orchestrator walks the remote listing and reconciles through the store.
type Orchestrator struct {
	clients strava.ClientFactory
	store   domain.ActivityRepository
	logger  zerolog.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(clients strava.ClientFactory, store domain.ActivityRepository, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{clients: clients, store: store, logger: logger}
}

// Run backfills one athlete's activities in [after, before]. A nil before
// means "up to now". Pages are fetched in increasing order with a
// low-priority client; an empty page is the sole termination condition.
// Item failures are recorded and skipped; a page-fetch failure stops the
// run with partial results. Only client construction fails hard.
func (o *Orchestrator) Run(ctx context.Context, athleteID int64, after time.Time, before *time.Time) (*Result, error) {
	client, err := o.clients.ClientFor(ctx, athleteID, strava.PriorityLow)
	if err != nil {
		return nil, err
	}

	opts := strava.ListOptions{After: after.Unix(), PerPage: pageSize}
	if before != nil {
		opts.Before = before.Unix()
	}

	logger := o.logger.With().Int64("athlete_id", athleteID).Logger()
	logger.Info().Time("after", after).Msg("backfill started")

	result := &Result{AthleteID: athleteID, Errors: []string{}}

	for page := 1; ; page++ {
		opts.Page = page

		activities, err := client.Activities(ctx, opts)
		if err != nil {
			msg := fmt.Sprintf("fetching page %d: %v", page, err)
			logger.Error().Err(err).Int("page", page).Msg("backfill page fetch failed")
			result.Errors = append(result.Errors, msg)
			break
		}
		if len(activities) == 0 {
			break
		}

		observability.RecordBackfillPage()
		result.PagesProcessed++

		for _, activity := range activities {
			created, err := o.store.Upsert(ctx, activity.Record())
			if err != nil {
				msg := fmt.Sprintf("storing activity %d: %v", activity.ID, err)
				logger.Error().Err(err).Int64("activity_id", activity.ID).Msg("backfill upsert failed")
				result.Errors = append(result.Errors, msg)
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}

		logger.Debug().Int("page", page).Int("items", len(activities)).Msg("backfill page applied")
	}

	result.TotalProcessed = result.Created + result.Updated
	logger.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("pages", result.PagesProcessed).
		Int("errors", len(result.Errors)).
		Msg("backfill finished")

	return result, nil
}

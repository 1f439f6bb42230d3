package webhook

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"example.com/runclub/internal/domain"
	"example.com/runclub/internal/observability"
	"example.com/runclub/internal/strava"
)

// Processor resolves webhook events to store operations. It runs in the
// worker, decoupled from the HTTP acknowledgment; errors are logged and
// counted, never surfaced to the (long-gone) sender.
type Processor struct {
	clients strava.ClientFactory
	store   domain.ActivityRepository
	logger  zerolog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(clients strava.ClientFactory, store domain.ActivityRepository, logger zerolog.Logger) *Processor {
	return &Processor{clients: clients, store: store, logger: logger}
}

// Process dispatches one event by (object_type, aspect_type).
//
//	(activity, create|update): fetch the full activity with a high-priority
//	client and upsert; a missed create is healed because upsert inserts
//	when the row is absent.
//	(activity, delete): remove the local row; absence is fine.
//	(athlete, update): logged only; profile sync is a separate concern.
//
// Anything else Strava does not emit and is skipped.
func (p *Processor) Process(ctx context.Context, event Event) error {
	logger := p.logger.With().
		Str("object_type", event.ObjectType).
		Str("aspect_type", event.AspectType).
		Int64("object_id", event.ObjectID).
		Int64("owner_id", event.OwnerID).
		Logger()

	if err := event.Validate(); err != nil {
		observability.RecordWebhookEvent(event.ObjectType, event.AspectType, "invalid")
		return err
	}

	var err error
	switch event.ObjectType {
	case ObjectActivity:
		err = p.processActivity(ctx, event, logger)
	case ObjectAthlete:
		p.processAthlete(event, logger)
	}

	if err != nil {
		observability.RecordWebhookEvent(event.ObjectType, event.AspectType, "error")
		return err
	}
	observability.RecordWebhookEvent(event.ObjectType, event.AspectType, "ok")
	return nil
}

func (p *Processor) processActivity(ctx context.Context, event Event, logger zerolog.Logger) error {
	switch event.AspectType {
	case AspectCreate, AspectUpdate:
		// Near-real-time path: high priority, no pacing.
		client, err := p.clients.ClientFor(ctx, event.OwnerID, strava.PriorityHigh)
		if err != nil {
			return err
		}

		activity, err := client.Activity(ctx, event.ObjectID)
		if err != nil {
			return fmt.Errorf("fetch activity %d: %w", event.ObjectID, err)
		}

		created, err := p.store.Upsert(ctx, activity.Record())
		if err != nil {
			return fmt.Errorf("store activity %d: %w", event.ObjectID, err)
		}
		logger.Info().Bool("created", created).Msg("activity upserted from webhook")
		return nil

	case AspectDelete:
		removed, err := p.store.Delete(ctx, event.ObjectID)
		if err != nil {
			return fmt.Errorf("delete activity %d: %w", event.ObjectID, err)
		}
		if removed {
			logger.Info().Msg("activity deleted from webhook")
		} else {
			logger.Debug().Msg("delete event for unknown activity")
		}
		return nil
	}
	return nil
}

func (p *Processor) processAthlete(event Event, logger zerolog.Logger) {
	if event.AspectType == AspectUpdate {
		logger.Info().Interface("updates", event.Updates).Msg("athlete update acknowledged")
		return
	}
	// Strava does not emit athlete create/delete.
	logger.Warn().Msg("unexpected athlete event skipped")
}

package strava

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"example.com/runclub/internal/domain"
)

// ClientFactory builds an API client for one athlete's credential. Client
// construction fails hard when no valid credential is available.
type ClientFactory interface {
	ClientFor(ctx context.Context, athleteID int64, priority Priority) (*Client, error)
}

// DirectoryFactory resolves credentials through the auth collaborator's
// user directory. Expired tokens surface as ErrUnauthorized; refreshing
// them is the directory owner's concern.
type DirectoryFactory struct {
	Directory domain.UserDirectory
	Logger    zerolog.Logger
	Options   []Option
}

// ClientFor looks up the athlete's credential and builds a client with the
// requested priority.
func (f *DirectoryFactory) ClientFor(ctx context.Context, athleteID int64, priority Priority) (*Client, error) {
	user, err := f.Directory.Lookup(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("resolve credential for athlete %d: %w", athleteID, err)
	}
	if !user.Authorized || user.AccessToken == "" {
		return nil, fmt.Errorf("%w: athlete %d is not authorized", ErrUnauthorized, athleteID)
	}
	if !user.TokenExpires.IsZero() && time.Now().After(user.TokenExpires) {
		return nil, fmt.Errorf("%w: credential for athlete %d expired at %s", ErrUnauthorized, athleteID, user.TokenExpires.Format(time.RFC3339))
	}

	opts := append([]Option{WithLogger(f.Logger.With().Int64("athlete_id", athleteID).Logger())}, f.Options...)
	return NewClient(user.AccessToken, priority, opts...), nil
}

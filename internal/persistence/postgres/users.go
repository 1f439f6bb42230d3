package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/runclub/internal/domain"
)

// UserDirectory reads the auth collaborator's users table. This service
// never writes to it; token refresh and deauthorization bookkeeping stay
// with the auth owner.
type UserDirectory struct {
	pool *pgxpool.Pool
}

// NewUserDirectory constructs a directory on the shared pool.
func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

const userColumns = `id, firstname, lastname, authorized, access_token, token_expires_at`

// Lookup returns one athlete, or domain.ErrAthleteNotFound.
func (d *UserDirectory) Lookup(ctx context.Context, athleteID int64) (*domain.User, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, athleteID)

	var user domain.User
	err := row.Scan(&user.ID, &user.Firstname, &user.Lastname, &user.Authorized, &user.AccessToken, &user.TokenExpires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrAthleteNotFound, athleteID)
		}
		return nil, err
	}
	return &user, nil
}

// LookupMany returns the known subset of the requested athletes. Unknown
// IDs are simply absent from the result.
func (d *UserDirectory) LookupMany(ctx context.Context, athleteIDs []int64) (map[int64]domain.User, error) {
	out := make(map[int64]domain.User, len(athleteIDs))
	if len(athleteIDs) == 0 {
		return out, nil
	}

	rows, err := d.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, athleteIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Firstname, &user.Lastname, &user.Authorized, &user.AccessToken, &user.TokenExpires); err != nil {
			return nil, err
		}
		out[user.ID] = user
	}
	return out, rows.Err()
}

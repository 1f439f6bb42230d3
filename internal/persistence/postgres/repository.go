// Package postgres provides pgx-backed persistence for activities and the
// read-only athlete directory.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/runclub/internal/domain"
	"example.com/runclub/internal/observability"
)

const activityColumns = `id, athlete_id, name, type, sport_type, workout_type,
        distance, moving_time, elapsed_time, total_elevation_gain, average_speed, max_speed,
        start_date, start_date_local, timezone, kudos_count, comment_count, athlete_count,
        manual, private, flagged, raw_data, created_at, updated_at`

// Repository is the activity store adapter.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository on the shared pool. Each call
// acquires its own connection, so concurrent orchestration units never
// share a session.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes the record keyed by remote ID: insert when absent, full
// overwrite of all mutable fields (raw snapshot included) when present.
// created_at survives updates; updated_at is refreshed on every write.
// The returned flag reports whether a new row was created.
func (r *Repository) Upsert(ctx context.Context, rec domain.Activity) (bool, error) {
	const stmt = `INSERT INTO activities (id, athlete_id, name, type, sport_type, workout_type,
            distance, moving_time, elapsed_time, total_elevation_gain, average_speed, max_speed,
            start_date, start_date_local, timezone, kudos_count, comment_count, athlete_count,
            manual, private, flagged, raw_data, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$23)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            type = EXCLUDED.type,
            sport_type = EXCLUDED.sport_type,
            workout_type = EXCLUDED.workout_type,
            distance = EXCLUDED.distance,
            moving_time = EXCLUDED.moving_time,
            elapsed_time = EXCLUDED.elapsed_time,
            total_elevation_gain = EXCLUDED.total_elevation_gain,
            average_speed = EXCLUDED.average_speed,
            max_speed = EXCLUDED.max_speed,
            start_date = EXCLUDED.start_date,
            start_date_local = EXCLUDED.start_date_local,
            timezone = EXCLUDED.timezone,
            kudos_count = EXCLUDED.kudos_count,
            comment_count = EXCLUDED.comment_count,
            athlete_count = EXCLUDED.athlete_count,
            manual = EXCLUDED.manual,
            private = EXCLUDED.private,
            flagged = EXCLUDED.flagged,
            raw_data = EXCLUDED.raw_data,
            updated_at = EXCLUDED.updated_at
        RETURNING (xmax = 0) AS inserted`

	now := time.Now().UTC()

	var created bool
	err := r.pool.QueryRow(ctx, stmt,
		rec.ID,
		rec.AthleteID,
		rec.Name,
		rec.Type,
		rec.SportType,
		workoutToDB(rec.WorkoutType),
		rec.Distance,
		rec.MovingTime,
		rec.ElapsedTime,
		rec.TotalElevationGain,
		rec.AverageSpeed,
		rec.MaxSpeed,
		rec.StartDate,
		rec.StartDateLocal,
		rec.Timezone,
		rec.KudosCount,
		rec.CommentCount,
		rec.AthleteCount,
		rec.Manual,
		rec.Private,
		rec.Flagged,
		rec.RawData,
		now,
	).Scan(&created)
	if err != nil {
		return false, err
	}

	observability.RecordActivityPersisted(now)
	return created, nil
}

// Delete removes the row if present and reports whether one was removed.
// Absence is not an error.
func (r *Repository) Delete(ctx context.Context, activityID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, activityID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAllForAthlete removes every activity owned by the athlete, used
// during deauthorization cascade.
func (r *Repository) DeleteAllForAthlete(ctx context.Context, athleteID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE athlete_id = $1`, athleteID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Get returns the activity or nil when absent.
func (r *Repository) Get(ctx context.Context, activityID int64) (*domain.Activity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, activityID)
	rec, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// ListByAthlete returns the athlete's activities ordered by start time
// descending.
func (r *Repository) ListByAthlete(ctx context.Context, athleteID int64, limit, offset int) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM activities
         WHERE athlete_id = $1 ORDER BY start_date DESC LIMIT $2 OFFSET $3`,
		athleteID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

// ListRecent returns the newest activities across all athletes.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM activities ORDER BY start_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

// ListTypeWithin returns activities of one coarse type whose local start
// time falls in [start, end), ordered by athlete then local start. The
// ordering gives the scoring engine its stable grouping order.
func (r *Repository) ListTypeWithin(ctx context.Context, activityType string, start, end time.Time) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM activities
         WHERE type = $1 AND start_date_local >= $2 AND start_date_local < $3
         ORDER BY athlete_id, start_date_local`,
		activityType, start, end)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func collectActivities(rows pgx.Rows) ([]domain.Activity, error) {
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var (
		rec     domain.Activity
		workout *int
	)
	err := row.Scan(
		&rec.ID,
		&rec.AthleteID,
		&rec.Name,
		&rec.Type,
		&rec.SportType,
		&workout,
		&rec.Distance,
		&rec.MovingTime,
		&rec.ElapsedTime,
		&rec.TotalElevationGain,
		&rec.AverageSpeed,
		&rec.MaxSpeed,
		&rec.StartDate,
		&rec.StartDateLocal,
		&rec.Timezone,
		&rec.KudosCount,
		&rec.CommentCount,
		&rec.AthleteCount,
		&rec.Manual,
		&rec.Private,
		&rec.Flagged,
		&rec.RawData,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if workout != nil {
		wt := domain.WorkoutType(*workout)
		rec.WorkoutType = &wt
	}
	return &rec, nil
}

func workoutToDB(wt *domain.WorkoutType) *int {
	if wt == nil {
		return nil
	}
	v := int(*wt)
	return &v
}

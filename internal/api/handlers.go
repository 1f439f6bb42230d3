// Package api exposes the HTTP surface: webhook callbacks, leaderboard
// reads, and backfill triggers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/runclub/internal/auth"
	"example.com/runclub/internal/backfill"
	"example.com/runclub/internal/domain"
	"example.com/runclub/internal/queue"
	"example.com/runclub/internal/scoring"
	"example.com/runclub/internal/strava"
	"example.com/runclub/internal/webhook"
)

// Handler coordinates HTTP requests with the ingestion and scoring
// components.
type Handler struct {
	scoring     *scoring.Service
	backfill    *backfill.Orchestrator
	store       domain.ActivityRepository
	publisher   queue.Publisher
	verifyToken string
	logger      zerolog.Logger

	// now is replaceable in tests; defaults to time.Now.
	now func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(scoringSvc *scoring.Service, orch *backfill.Orchestrator, store domain.ActivityRepository, publisher queue.Publisher, verifyToken string, logger zerolog.Logger) *Handler {
	return &Handler{
		scoring:     scoringSvc,
		backfill:    orch,
		store:       store,
		publisher:   publisher,
		verifyToken: verifyToken,
		logger:      logger,
		now:         time.Now,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /webhooks/strava", h.webhookValidation)
	mux.HandleFunc("POST /webhooks/strava", h.webhookEvent)
	mux.HandleFunc("GET /v1/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /v1/athletes/{id}/breakdown", h.athleteBreakdown)
	mux.HandleFunc("GET /v1/athletes/{id}/activities", h.athleteActivities)
	mux.HandleFunc("GET /v1/activities/recent", h.recentActivities)
	mux.HandleFunc("GET /v1/activities/{id}", h.activity)
	mux.HandleFunc("POST /v1/sync/athletes/{id}", h.syncAthlete)
	mux.HandleFunc("GET /healthz", healthz)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// webhookValidation answers Strava's subscription callback: the verify
// token must match before the challenge is echoed back verbatim.
func (h *Handler) webhookValidation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	challenge := query.Get("hub.challenge")
	token := query.Get("hub.verify_token")

	if token != h.verifyToken {
		h.logger.Warn().Msg("webhook validation with wrong verify token")
		writeError(w, http.StatusForbidden, "forbidden", "invalid verify token")
		return
	}
	if mode != "subscribe" {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid hub mode")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"hub.challenge": challenge})
}

// webhookEvent validates the event shape, enqueues it, and acknowledges
// immediately: Strava's delivery deadline must never wait on the actual
// fetch/upsert work.
func (h *Handler) webhookEvent(w http.ResponseWriter, r *http.Request) {
	var event webhook.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse event body")
		return
	}
	if err := event.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	correlationID := uuid.NewString()
	headers := map[string]string{
		"correlation_id": correlationID,
		"object_type":    event.ObjectType,
		"aspect_type":    event.AspectType,
	}

	key := strconv.FormatInt(event.OwnerID, 10)
	if err := h.publisher.Publish(r.Context(), key, event, headers); err != nil {
		h.logger.Error().Err(err).Str("correlation_id", correlationID).Msg("webhook enqueue failed")
		writeError(w, http.StatusInternalServerError, "server_error", "failed to enqueue event")
		return
	}

	h.logger.Info().
		Str("correlation_id", correlationID).
		Str("object_type", event.ObjectType).
		Str("aspect_type", event.AspectType).
		Int64("object_id", event.ObjectID).
		Msg("webhook event enqueued")

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// leaderboardResponse wraps the entries with the resolved window.
type leaderboardResponse struct {
	Period  string                     `json:"period"`
	Label   string                     `json:"label"`
	Start   time.Time                  `json:"start"`
	End     time.Time                  `json:"end"`
	Entries []scoring.LeaderboardEntry `json:"entries"`
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeLeaderboardRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope leaderboard:read required")
		return
	}

	query := r.URL.Query()
	kind := scoring.PeriodKind(query.Get("period"))
	if kind == "" {
		kind = scoring.PeriodThisWeek
	}

	customStart, err := optionalTime(query.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid start: "+err.Error())
		return
	}
	customEnd, err := optionalTime(query.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid end: "+err.Error())
		return
	}

	period, err := scoring.PeriodBoundaries(kind, h.now(), customStart, customEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	entries, err := h.scoring.Leaderboard(r.Context(), period.Start, period.End)
	if err != nil {
		h.logger.Error().Err(err).Msg("leaderboard query failed")
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, leaderboardResponse{
		Period:  string(kind),
		Label:   period.Label,
		Start:   period.Start,
		End:     period.End,
		Entries: entries,
	})
}

func (h *Handler) athleteBreakdown(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeLeaderboardRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope leaderboard:read required")
		return
	}

	athleteID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || athleteID <= 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid athlete id")
		return
	}

	date := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid date, want YYYY-MM-DD")
			return
		}
		date = parsed
	}

	breakdown, err := h.scoring.AthleteBreakdown(r.Context(), athleteID, date)
	if err != nil {
		if errors.Is(err, domain.ErrAthleteNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "athlete not found")
			return
		}
		h.logger.Error().Err(err).Int64("athlete_id", athleteID).Msg("breakdown query failed")
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, breakdown)
}

// activityResponse is the stored activity as the read API presents it.
type activityResponse struct {
	ID             int64     `json:"id"`
	AthleteID      int64     `json:"athlete_id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	SportType      string    `json:"sport_type"`
	WorkoutType    *int      `json:"workout_type,omitempty"`
	Distance       float64   `json:"distance"`
	MovingTime     int64     `json:"moving_time"`
	ElapsedTime    int64     `json:"elapsed_time"`
	StartDate      time.Time `json:"start_date"`
	StartDateLocal string    `json:"start_date_local"`
	Timezone       string    `json:"timezone,omitempty"`
	KudosCount     int       `json:"kudos_count"`
	Manual         bool      `json:"manual"`
	Private        bool      `json:"private"`
}

func presentActivity(rec domain.Activity) activityResponse {
	resp := activityResponse{
		ID:             rec.ID,
		AthleteID:      rec.AthleteID,
		Name:           rec.Name,
		Type:           rec.Type,
		SportType:      rec.SportType,
		Distance:       rec.Distance,
		MovingTime:     rec.MovingTime,
		ElapsedTime:    rec.ElapsedTime,
		StartDate:      rec.StartDate,
		StartDateLocal: rec.StartDateLocal.Format("2006-01-02T15:04:05"),
		Timezone:       rec.Timezone,
		KudosCount:     rec.KudosCount,
		Manual:         rec.Manual,
		Private:        rec.Private,
	}
	if rec.WorkoutType != nil {
		wt := int(*rec.WorkoutType)
		resp.WorkoutType = &wt
	}
	return resp
}

func presentActivities(recs []domain.Activity) []activityResponse {
	out := make([]activityResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, presentActivity(rec))
	}
	return out
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeLeaderboardRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope leaderboard:read required")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid activity id")
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Int64("activity_id", id).Msg("activity lookup failed")
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "not_found", domain.ErrActivityNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, presentActivity(*rec))
}

func (h *Handler) athleteActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeLeaderboardRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope leaderboard:read required")
		return
	}

	athleteID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || athleteID <= 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid athlete id")
		return
	}

	limit := boundedIntParam(r, "limit", 30, 100)
	offset := boundedIntParam(r, "offset", 0, 10000)

	recs, err := h.store.ListByAthlete(r.Context(), athleteID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Int64("athlete_id", athleteID).Msg("activity listing failed")
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, presentActivities(recs))
}

func (h *Handler) recentActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeLeaderboardRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope leaderboard:read required")
		return
	}

	recs, err := h.store.ListRecent(r.Context(), boundedIntParam(r, "limit", 30, 100))
	if err != nil {
		h.logger.Error().Err(err).Msg("recent activity listing failed")
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, presentActivities(recs))
}

// boundedIntParam parses a non-negative integer query parameter with a
// default and an upper bound.
func boundedIntParam(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// syncAthlete triggers a backfill run. The response is always the
// structured summary; partial failure shows up in its error list, never
// as a bare 5xx.
func (h *Handler) syncAthlete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSyncRun) {
		writeError(w, http.StatusForbidden, "forbidden", "scope sync:run required")
		return
	}

	athleteID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || athleteID <= 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid athlete id")
		return
	}

	query := r.URL.Query()
	after, err := optionalTime(query.Get("after"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid after: "+err.Error())
		return
	}
	if after == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "after is required")
		return
	}
	before, err := optionalTime(query.Get("before"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid before: "+err.Error())
		return
	}

	result, err := h.backfill.Run(r.Context(), athleteID, *after, before)
	if err != nil {
		if errors.Is(err, domain.ErrAthleteNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "athlete not found")
			return
		}
		if errors.Is(err, strava.ErrUnauthorized) {
			writeError(w, http.StatusConflict, "unauthorized_athlete", err.Error())
			return
		}
		h.logger.Error().Err(err).Int64("athlete_id", athleteID).Msg("backfill failed to start")
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// optionalTime parses RFC3339 or date-only values; empty means nil.
func optionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"type": code, "detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/runclub/internal/auth"
	"example.com/runclub/internal/backfill"
	"example.com/runclub/internal/domain"
	"example.com/runclub/internal/scoring"
	"example.com/runclub/internal/strava"
)

const verifyToken = "shared-verify-token"

type stubRepo struct {
	activities []domain.Activity

	gotLimit  int
	gotOffset int
}

func (r *stubRepo) Upsert(context.Context, domain.Activity) (bool, error)     { return false, nil }
func (r *stubRepo) Delete(context.Context, int64) (bool, error)               { return false, nil }
func (r *stubRepo) DeleteAllForAthlete(context.Context, int64) (int64, error) { return 0, nil }

func (r *stubRepo) Get(_ context.Context, id int64) (*domain.Activity, error) {
	for _, act := range r.activities {
		if act.ID == id {
			return &act, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) ListByAthlete(_ context.Context, athleteID int64, limit, offset int) ([]domain.Activity, error) {
	r.gotLimit, r.gotOffset = limit, offset
	var out []domain.Activity
	for _, act := range r.activities {
		if act.AthleteID == athleteID {
			out = append(out, act)
		}
	}
	return out, nil
}

func (r *stubRepo) ListRecent(_ context.Context, limit int) ([]domain.Activity, error) {
	r.gotLimit = limit
	return r.activities, nil
}

func (r *stubRepo) ListTypeWithin(context.Context, string, time.Time, time.Time) ([]domain.Activity, error) {
	return r.activities, nil
}

type stubDirectory struct {
	users map[int64]domain.User
}

func (d *stubDirectory) Lookup(_ context.Context, athleteID int64) (*domain.User, error) {
	user, ok := d.users[athleteID]
	if !ok {
		return nil, fmt.Errorf("athlete %d: %w", athleteID, domain.ErrAthleteNotFound)
	}
	return &user, nil
}

func (d *stubDirectory) LookupMany(_ context.Context, athleteIDs []int64) (map[int64]domain.User, error) {
	out := make(map[int64]domain.User)
	for _, id := range athleteIDs {
		if user, ok := d.users[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

type stubPublisher struct {
	err     error
	key     string
	payload []byte
	headers map[string]string
	calls   int
}

func (p *stubPublisher) Publish(_ context.Context, key string, payload any, headers map[string]string) error {
	p.calls++
	p.key = key
	p.headers = headers
	p.payload, _ = json.Marshal(payload)
	return p.err
}

func (p *stubPublisher) Close() error { return nil }

type stubFactory struct {
	baseURL string
	err     error
}

func (f *stubFactory) ClientFor(_ context.Context, _ int64, priority strava.Priority) (*strava.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return strava.NewClient("tok", priority, strava.WithBaseURL(f.baseURL)), nil
}

type fixture struct {
	mux       *http.ServeMux
	handler   *Handler
	publisher *stubPublisher
}

func newFixture(t *testing.T, repo *stubRepo, dir *stubDirectory, factory strava.ClientFactory) *fixture {
	t.Helper()
	if repo == nil {
		repo = &stubRepo{}
	}
	if dir == nil {
		dir = &stubDirectory{users: map[int64]domain.User{}}
	}
	if factory == nil {
		factory = &stubFactory{}
	}

	publisher := &stubPublisher{}
	handler := NewHandler(
		scoring.NewService(repo, dir),
		backfill.NewOrchestrator(factory, repo, zerolog.Nop()),
		repo,
		publisher,
		verifyToken,
		zerolog.Nop(),
	)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return &fixture{mux: mux, handler: handler, publisher: publisher}
}

func withScopes(req *http.Request, scopes ...string) *http.Request {
	claims := &auth.Claims{
		Subject:   "tester",
		AthleteID: 100,
		Scopes:    map[string]struct{}{},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	for _, s := range scopes {
		claims.Scopes[s] = struct{}{}
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func TestWebhookValidationEchoesChallenge(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/strava?hub.mode=subscribe&hub.challenge=abc123&hub.verify_token="+verifyToken, nil)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "abc123", body["hub.challenge"])
}

func TestWebhookValidationRejectsWrongToken(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/strava?hub.mode=subscribe&hub.challenge=abc123&hub.verify_token=wrong", nil)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	require.NotContains(t, rr.Body.String(), "abc123")
}

func TestWebhookValidationRejectsBadMode(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/strava?hub.mode=unsubscribe&hub.challenge=abc123&hub.verify_token="+verifyToken, nil)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookEventEnqueuedAndAcked(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	body := `{"object_type":"activity","object_id":1001,"aspect_type":"create","owner_id":100,"subscription_id":7,"event_time":1767770000}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/strava", strings.NewReader(body))
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"success"}`, rr.Body.String())

	require.Equal(t, 1, f.publisher.calls)
	require.Equal(t, "100", f.publisher.key)
	require.NotEmpty(t, f.publisher.headers["correlation_id"])
	require.Equal(t, "activity", f.publisher.headers["object_type"])
	require.Equal(t, "create", f.publisher.headers["aspect_type"])
	require.JSONEq(t, body, string(f.publisher.payload))
}

func TestWebhookEventRejectsMalformedBody(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/strava", strings.NewReader("not json"))
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Zero(t, f.publisher.calls)
}

func TestWebhookEventRejectsInvalidShape(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	body := `{"object_type":"segment","object_id":1,"aspect_type":"create","owner_id":100}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/strava", strings.NewReader(body))
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Zero(t, f.publisher.calls)
}

func weekActivity(id, athleteID int64, movingTime int64) domain.Activity {
	start := time.Date(2026, time.January, 7, 7, 0, 0, 0, time.UTC)
	return domain.Activity{
		ID:             id,
		AthleteID:      athleteID,
		Name:           "Run",
		Type:           "Run",
		MovingTime:     movingTime,
		Distance:       5000,
		StartDate:      start,
		StartDateLocal: start,
	}
}

func TestLeaderboardDefaultsToThisWeek(t *testing.T) {
	repo := &stubRepo{activities: []domain.Activity{weekActivity(1, 100, 1800)}}
	dir := &stubDirectory{users: map[int64]domain.User{100: {ID: 100, Firstname: "Ada", Lastname: "Kovacs"}}}
	f := newFixture(t, repo, dir, nil)
	f.handler.now = func() time.Time { return time.Date(2026, time.January, 7, 12, 0, 0, 0, time.UTC) }

	req := withScopes(httptest.NewRequest(http.MethodGet, "/v1/leaderboard", nil), auth.ScopeLeaderboardRead)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp leaderboardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "this_week", resp.Period)
	require.Equal(t, "This Week", resp.Label)
	require.Len(t, resp.Entries, 1)
	require.Equal(t, "Ada Kovacs", resp.Entries[0].AthleteName)
	require.Equal(t, 30, resp.Entries[0].TotalPoints)
}

func TestLeaderboardRequiresScope(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	req := withScopes(httptest.NewRequest(http.MethodGet, "/v1/leaderboard", nil), auth.ScopeSyncRun)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	f.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/leaderboard", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLeaderboardRejectsBadPeriod(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	req := withScopes(httptest.NewRequest(http.MethodGet, "/v1/leaderboard?period=fortnight", nil), auth.ScopeLeaderboardRead)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	req = withScopes(httptest.NewRequest(http.MethodGet, "/v1/leaderboard?period=custom&start=2026-01-01", nil), auth.ScopeLeaderboardRead)
	rr = httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLeaderboardCustomPeriod(t *testing.T) {
	repo := &stubRepo{activities: []domain.Activity{}}
	f := newFixture(t, repo, nil, nil)

	req := withScopes(httptest.NewRequest(http.MethodGet,
		"/v1/leaderboard?period=custom&start=2026-01-01&end=2026-02-01", nil), auth.ScopeLeaderboardRead)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp leaderboardResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "custom", resp.Period)
	require.Empty(t, resp.Entries)
}

func TestAthleteBreakdown(t *testing.T) {
	repo := &stubRepo{activities: []domain.Activity{weekActivity(1, 100, 1800)}}
	dir := &stubDirectory{users: map[int64]domain.User{100: {ID: 100, Firstname: "Ada", Lastname: "Kovacs"}}}
	f := newFixture(t, repo, dir, nil)

	req := withScopes(httptest.NewRequest(http.MethodGet,
		"/v1/athletes/100/breakdown?date=2026-01-07", nil), auth.ScopeLeaderboardRead)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var breakdown scoring.Breakdown
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &breakdown))
	require.Equal(t, int64(100), breakdown.AthleteID)
	require.Equal(t, "2026-01-05", breakdown.WeekStart)
	require.Equal(t, 30, breakdown.BasePoints)
}

func TestAthleteBreakdownUnknownAthlete(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	req := withScopes(httptest.NewRequest(http.MethodGet,
		"/v1/athletes/404/breakdown", nil), auth.ScopeLeaderboardRead)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAthleteBreakdownRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	req := withScopes(httptest.NewRequest(http.MethodGet,
		"/v1/athletes/abc/breakdown", nil), auth.ScopeLeaderboardRead)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	req = withScopes(httptest.NewRequest(http.MethodGet,
		"/v1/athletes/100/breakdown?date=January", nil), auth.ScopeLeaderboardRead)
	rr = httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestActivityByID(t *testing.T) {
	repo := &stubRepo{activities: []domain.Activity{weekActivity(1001, 100, 1800)}}
	f := newFixture(t, repo, nil, nil)

	req := withScopes(httptest.NewRequest(http.MethodGet, "/v1/activities/1001", nil), auth.ScopeLeaderboardRead)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.EqualValues(t, 1001, resp["id"])
	require.EqualValues(t, 100, resp["athlete_id"])
}

func TestActivityByIDUnknown(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	req := withScopes(httptest.NewRequest(http.MethodGet, "/v1/activities/9999", nil), auth.ScopeLeaderboardRead)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAthleteActivitiesBoundsPaging(t *testing.T) {
	repo := &stubRepo{activities: []domain.Activity{
		weekActivity(1, 100, 1800),
		weekActivity(2, 200, 1800),
	}}
	f := newFixture(t, repo, nil, nil)

	req := withScopes(httptest.NewRequest(http.MethodGet,
		"/v1/athletes/100/activities?limit=500&offset=5", nil), auth.ScopeLeaderboardRead)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 100, repo.gotLimit)
	require.Equal(t, 5, repo.gotOffset)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
}

func TestRecentActivitiesDefaultLimit(t *testing.T) {
	repo := &stubRepo{activities: []domain.Activity{weekActivity(1, 100, 1800)}}
	f := newFixture(t, repo, nil, nil)

	req := withScopes(httptest.NewRequest(http.MethodGet, "/v1/activities/recent", nil), auth.ScopeLeaderboardRead)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 30, repo.gotLimit)
}

func TestSyncAthleteRunsBackfill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("[]"))
	}))
	t.Cleanup(server.Close)

	f := newFixture(t, nil, nil, &stubFactory{baseURL: server.URL})

	req := withScopes(httptest.NewRequest(http.MethodPost,
		"/v1/sync/athletes/100?after=2026-01-01", nil), auth.ScopeSyncRun)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var result backfill.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Equal(t, int64(100), result.AthleteID)
	require.Zero(t, result.TotalProcessed)
}

func TestSyncAthleteRequiresAfter(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	req := withScopes(httptest.NewRequest(http.MethodPost,
		"/v1/sync/athletes/100", nil), auth.ScopeSyncRun)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSyncAthleteUnauthorizedCredential(t *testing.T) {
	factory := &stubFactory{err: fmt.Errorf("athlete 100: %w", strava.ErrUnauthorized)}
	f := newFixture(t, nil, nil, factory)

	req := withScopes(httptest.NewRequest(http.MethodPost,
		"/v1/sync/athletes/100?after=2026-01-01", nil), auth.ScopeSyncRun)
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil, nil, nil)

	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

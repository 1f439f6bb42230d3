package strava

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const activityJSON = `{
	"id": 1001,
	"athlete": {"id": 100},
	"name": "Morning Run",
	"type": "Run",
	"sport_type": "Run",
	"workout_type": 1,
	"distance": 10000,
	"moving_time": 3600,
	"elapsed_time": 3700,
	"start_date": "2026-01-07T07:00:00Z",
	"start_date_local": "2026-01-07T08:00:00Z",
	"timezone": "(GMT+01:00) Europe/Berlin"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-token", PriorityHigh, WithBaseURL(server.URL))
}

func TestClientSendsTokenAsQueryParam(t *testing.T) {
	var gotToken string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("access_token")
		w.Write([]byte(activityJSON))
	})

	activity, err := client.Activity(context.Background(), 1001)
	require.NoError(t, err)
	require.Equal(t, "test-token", gotToken)
	require.Equal(t, int64(1001), activity.ID)
	require.Equal(t, int64(100), activity.Athlete.ID)
	require.NotNil(t, activity.WorkoutType)
	require.Equal(t, 1, *activity.WorkoutType)
}

func TestClientErrorTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   error
		msg    string
	}{
		{http.StatusNotFound, `{"message":"Record Not Found"}`, ErrNotFound, "Record Not Found"},
		{http.StatusUnauthorized, `{"message":"Authorization Error"}`, ErrUnauthorized, "Authorization Error"},
		{http.StatusTooManyRequests, `{"message":"Rate Limit Exceeded"}`, ErrRateLimited, "Rate Limit Exceeded"},
	}

	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		})

		_, err := client.Activity(context.Background(), 1001)
		require.ErrorIs(t, err, tc.kind, "status %d", tc.status)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, tc.status, apiErr.StatusCode)
		require.Equal(t, tc.msg, apiErr.Message)
	}
}

func TestClientGenericErrorKeepsRawBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	})

	_, err := client.Athlete(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, "upstream unavailable", apiErr.Message)
	require.False(t, errors.Is(err, ErrNotFound))
	require.False(t, errors.Is(err, ErrUnauthorized))
	require.False(t, errors.Is(err, ErrRateLimited))
}

func TestClientUpdatesLimiterFromHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Usage", "42,1200")
		w.Header().Set("X-RateLimit-Limit", "600,30000")
		w.Write([]byte(activityJSON))
	})

	_, err := client.Activity(context.Background(), 1001)
	require.NoError(t, err)

	snap := client.Limiter().Current()
	require.NotNil(t, snap)
	require.Equal(t, 42, snap.ShortUsage)
	require.Equal(t, 30000, snap.LongLimit)
}

func TestActivitiesCapsPerPage(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("per_page")
		w.Write([]byte("[]"))
	})

	_, err := client.Activities(context.Background(), ListOptions{Page: 1, PerPage: 500})
	require.NoError(t, err)
	require.Equal(t, "200", gotQuery)
}

func TestActivitiesPassesEpochFilters(t *testing.T) {
	var after, before, page string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		after, before, page = q.Get("after"), q.Get("before"), q.Get("page")
		w.Write([]byte("[]"))
	})

	_, err := client.Activities(context.Background(), ListOptions{After: 1700000000, Before: 1800000000, Page: 3, PerPage: 50})
	require.NoError(t, err)
	require.Equal(t, "1700000000", after)
	require.Equal(t, "1800000000", before)
	require.Equal(t, "3", page)
}

func TestActivitiesRejectsMalformedItem(t *testing.T) {
	// One entry with no athlete id fails the whole call.
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[` + activityJSON + `,{"id":1002,"type":"Run","start_date":"2026-01-07T07:00:00Z","start_date_local":"2026-01-07T08:00:00Z"}]`))
	})

	_, err := client.Activities(context.Background(), ListOptions{})
	require.ErrorIs(t, err, ErrValidation)
}

func TestDeauthorizeAcceptsEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Deauthorize(context.Background()))
}

func TestDeleteSubscriptionSendsCredentials(t *testing.T) {
	var clientID, secret string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/push_subscriptions/7", r.URL.Path)
		q := r.URL.Query()
		clientID, secret = q.Get("client_id"), q.Get("client_secret")
		w.WriteHeader(http.StatusNoContent)
	})

	cfg := SubscriptionConfig{ClientID: 12345, ClientSecret: "shh"}
	require.NoError(t, client.DeleteSubscription(context.Background(), cfg, 7))
	require.Equal(t, "12345", clientID)
	require.Equal(t, "shh", secret)
}

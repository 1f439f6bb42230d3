// Package strava implements the typed remote API client and its quota
// throttling.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://www.strava.com/api/v3"

// maxPerPage is the remote API's hard page-size ceiling.
const maxPerPage = 200

// Client issues authenticated calls against the Strava v3 API. Each client
// owns its rate limiter; every call updates the limiter from response
// headers and then waits before returning, pacing the next call.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
	limiter     *RateLimiter
	logger      zerolog.Logger
}

// Option configures optional client behaviour.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger; all requests log at debug level.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a client for one access credential. Each remote call is
// bounded by a 30-second timeout.
func NewClient(accessToken string, priority Priority, opts ...Option) *Client {
	c := &Client{
		accessToken: accessToken,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     NewRateLimiter(priority),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Limiter exposes the client's rate limiter, mainly for inspection.
func (c *Client) Limiter() *RateLimiter { return c.limiter }

// request performs one authenticated call. Flow: execute, update limiter
// from headers, classify status, decode into out (skipped on 204 or nil
// out), then wait. The wait happens after the response so the current
// caller pays for the next call's pacing.
func (c *Client) request(ctx context.Context, method, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("strava request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("strava: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.limiter.UpdateFromHeaders(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("strava: read response: %w", err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return err
	}

	if out != nil && resp.StatusCode != http.StatusNoContent && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	return c.limiter.Wait(ctx)
}

// Athlete fetches the authenticated athlete's profile.
func (c *Client) Athlete(ctx context.Context) (*Athlete, error) {
	var athlete Athlete
	if err := c.request(ctx, http.MethodGet, "/athlete", nil, &athlete); err != nil {
		return nil, err
	}
	if err := athlete.Validate(); err != nil {
		return nil, err
	}
	return &athlete, nil
}

// AthleteClubs lists the athlete's club memberships. A single malformed
// entry fails the whole call.
func (c *Client) AthleteClubs(ctx context.Context) ([]Club, error) {
	var clubs []Club
	if err := c.request(ctx, http.MethodGet, "/athlete/clubs", nil, &clubs); err != nil {
		return nil, err
	}
	for _, club := range clubs {
		if err := club.Validate(); err != nil {
			return nil, err
		}
	}
	return clubs, nil
}

// Deauthorize revokes the access credential.
func (c *Client) Deauthorize(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, "/oauth/deauthorize", nil, nil)
}

// Activities lists the athlete's activities with optional epoch filters
// and pagination. PerPage is capped at 200.
func (c *Client) Activities(ctx context.Context, opts ListOptions) ([]Activity, error) {
	params := url.Values{}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	perPage := opts.PerPage
	if perPage <= 0 || perPage > maxPerPage {
		perPage = maxPerPage
	}
	params.Set("per_page", strconv.Itoa(perPage))
	if opts.Before > 0 {
		params.Set("before", strconv.FormatInt(opts.Before, 10))
	}
	if opts.After > 0 {
		params.Set("after", strconv.FormatInt(opts.After, 10))
	}

	var activities []Activity
	if err := c.request(ctx, http.MethodGet, "/athlete/activities", params, &activities); err != nil {
		return nil, err
	}
	for _, activity := range activities {
		if err := activity.Validate(); err != nil {
			return nil, err
		}
	}
	return activities, nil
}

// Activity fetches one activity by remote ID.
func (c *Client) Activity(ctx context.Context, id int64) (*Activity, error) {
	var activity Activity
	if err := c.request(ctx, http.MethodGet, "/activities/"+strconv.FormatInt(id, 10), nil, &activity); err != nil {
		return nil, err
	}
	if err := activity.Validate(); err != nil {
		return nil, err
	}
	return &activity, nil
}

// SubscriptionConfig identifies the application to the push-subscription
// endpoints.
type SubscriptionConfig struct {
	ClientID     int64
	ClientSecret string
}

func (sc SubscriptionConfig) values() url.Values {
	params := url.Values{}
	params.Set("client_id", strconv.FormatInt(sc.ClientID, 10))
	params.Set("client_secret", sc.ClientSecret)
	return params
}

// CreateSubscription registers a webhook callback.
func (c *Client) CreateSubscription(ctx context.Context, cfg SubscriptionConfig, callbackURL, verifyToken string) (*Subscription, error) {
	params := cfg.values()
	params.Set("callback_url", callbackURL)
	params.Set("verify_token", verifyToken)

	var sub Subscription
	if err := c.request(ctx, http.MethodPost, "/push_subscriptions", params, &sub); err != nil {
		return nil, err
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubscriptions returns the application's webhook registrations.
func (c *Client) ListSubscriptions(ctx context.Context, cfg SubscriptionConfig) ([]Subscription, error) {
	var subs []Subscription
	if err := c.request(ctx, http.MethodGet, "/push_subscriptions", cfg.values(), &subs); err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if err := sub.Validate(); err != nil {
			return nil, err
		}
	}
	return subs, nil
}

// DeleteSubscription removes a webhook registration.
func (c *Client) DeleteSubscription(ctx context.Context, cfg SubscriptionConfig, subscriptionID int64) error {
	return c.request(ctx, http.MethodDelete, "/push_subscriptions/"+strconv.FormatInt(subscriptionID, 10), cfg.values(), nil)
}

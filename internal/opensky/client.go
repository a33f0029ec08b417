// Package opensky fetches live state vectors from the OpenSky Network REST API.
package opensky

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"flight_spotter/internal/metrics"
	"flight_spotter/internal/models"
)

const (
	DefaultBaseURL = "https://opensky-network.org/api"
	DefaultTimeout = 10 * time.Second

	breakerName = "opensky"
)

// ErrLiveStateUnavailable wraps every transport, status, decode and breaker failure
var ErrLiveStateUnavailable = errors.New("live state unavailable")

// Config holds the client settings. Username and Password are optional;
// anonymous requests get a lower rate limit.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// BoundingBox is a latitude/longitude rectangle in decimal degrees
type BoundingBox struct {
	LatMin float64
	LonMin float64
	LatMax float64
	LonMax float64
}

// NewBoundingBox orders two corner points into a box
func NewBoundingBox(lat1, lon1, lat2, lon2 float64) BoundingBox {
	return BoundingBox{
		LatMin: min(lat1, lat2),
		LonMin: min(lon1, lon2),
		LatMax: max(lat1, lat2),
		LonMax: max(lon1, lon2),
	}
}

func (b BoundingBox) values() url.Values {
	format := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	return url.Values{
		"lamin": {format(b.LatMin)},
		"lomin": {format(b.LonMin)},
		"lamax": {format(b.LatMax)},
		"lomax": {format(b.LonMax)},
	}
}

type statesResponse struct {
	Time   int64               `json:"time"`
	States [][]json.RawMessage `json:"states"`
}

// Client calls /states/all behind a circuit breaker
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[[]models.LiveState]
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]models.LiveState](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a caller giving up is not a feed failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to))
		},
	})

	return &Client{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		// nil Transport uses http.DefaultTransport
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cb:         cb,
	}
}

// FetchByCode returns the current state vectors for one aircraft.
// An aircraft that is not broadcasting yields an empty slice and no error.
func (c *Client) FetchByCode(ctx context.Context, code models.TransponderCode) ([]models.LiveState, error) {
	return c.fetch(ctx, url.Values{"icao24": {code.Lower()}})
}

// FetchByBoundingBox returns every state vector inside box
func (c *Client) FetchByBoundingBox(ctx context.Context, box BoundingBox) ([]models.LiveState, error) {
	return c.fetch(ctx, box.values())
}

func (c *Client) fetch(ctx context.Context, params url.Values) ([]models.LiveState, error) {
	states, err := c.cb.Execute(func() ([]models.LiveState, error) {
		return c.getStates(ctx, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		}
		return nil, fmt.Errorf("%w: %w", ErrLiveStateUnavailable, err)
	}

	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	return states, nil
}

func (c *Client) getStates(ctx context.Context, params url.Values) ([]models.LiveState, error) {
	reqURL := c.baseURL + "/states/all?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch states: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var payload statesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode states response: %w", err)
	}

	states := make([]models.LiveState, 0, len(payload.States))
	for i, tuple := range payload.States {
		state, err := models.DecodeLiveState(tuple)
		if err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
		states = append(states, state)
	}

	slog.Debug("Fetched live states", "query", params.Encode(), "count", len(states))
	return states, nil
}

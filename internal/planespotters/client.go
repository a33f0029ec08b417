// Package planespotters looks up aircraft photos on planespotters.net.
package planespotters

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"

	"flight_spotter/internal/metrics"
	"flight_spotter/internal/models"
)

const (
	DefaultBaseURL  = "https://api.planespotters.net/pub/photos"
	DefaultTimeout  = 5 * time.Second
	DefaultCacheTTL = 6 * time.Hour
)

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type photosResponse struct {
	Photos []struct {
		Thumbnail struct {
			Src string `json:"src"`
		} `json:"thumbnail"`
		Photographer string `json:"photographer"`
	} `json:"photos"`
}

// Client fetches the first photo for a transponder code. It never returns an error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
	}
}

// FetchPhoto returns the thumbnail and photographer of the first photo for code.
// Any failure yields a blank PhotoInfo. Only non-blank results are cached.
func (c *Client) FetchPhoto(ctx context.Context, code models.TransponderCode) models.PhotoInfo {
	key := code.Lower()
	if cached, found := c.cache.Get(key); found {
		metrics.PhotoCacheHits.Inc()
		return cached.(models.PhotoInfo)
	}

	photo, err := c.lookup(ctx, key)
	if err != nil {
		slog.Debug("Photo lookup failed", "icao24", key, "error", err)
		metrics.RecordDegraded("photo")
		return models.PhotoInfo{}
	}

	if photo != (models.PhotoInfo{}) {
		c.cache.Set(key, photo, cache.DefaultExpiration)
	}
	return photo
}

func (c *Client) lookup(ctx context.Context, code string) (models.PhotoInfo, error) {
	reqURL := c.baseURL + "/hex/" + url.PathEscape(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return models.PhotoInfo{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.PhotoInfo{}, fmt.Errorf("failed to fetch photos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.PhotoInfo{}, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var payload photosResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.PhotoInfo{}, fmt.Errorf("failed to decode photos response: %w", err)
	}

	if len(payload.Photos) == 0 {
		return models.PhotoInfo{}, nil
	}

	first := payload.Photos[0]
	return models.PhotoInfo{
		ThumbnailSrc: first.Thumbnail.Src,
		Photographer: first.Photographer,
	}, nil
}

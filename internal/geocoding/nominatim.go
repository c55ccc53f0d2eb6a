// Package geocoding resolves free-text addresses through Nominatim.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/logger"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "ConciergeDayPlanner/1.0"
	DefaultInterval  = time.Second
	DefaultTimeout   = 10 * time.Second
	DefaultBackoff   = time.Second
)

// GeocodingResult contains the result of a geocoding operation
type GeocodingResult struct {
	Coords      models.Coordinates `json:"coordinates"`
	DisplayName string             `json:"display_name"`
}

// Geocoder provides address-to-coordinates conversion
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodingResult, error)
	GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*GeocodingResult, error)
	Search(ctx context.Context, query string, limit int) ([]GeocodingResult, error)
}

// ErrGeocodingFailed is returned when an address cannot be geocoded
type ErrGeocodingFailed struct {
	Address string
	Reason  string
}

func (e *ErrGeocodingFailed) Error() string {
	return fmt.Sprintf("geocoding failed for address: %s - %s", e.Address, e.Reason)
}

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Interval is the minimum spacing between requests. Nominatim's usage
	// policy allows one per second.
	Interval time.Duration
	Backoff  time.Duration
}

// NominatimGeocoder is safe for concurrent use; requests are spaced by a ticker
type NominatimGeocoder struct {
	baseURL     string
	userAgent   string
	backoff     time.Duration
	httpClient  *http.Client
	rateLimiter *time.Ticker
	logger      *zap.Logger
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimGeocoder creates a new Nominatim geocoder with rate limiting
func NewNominatimGeocoder(cfg Config, log *zap.Logger) *NominatimGeocoder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &NominatimGeocoder{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:   cfg.UserAgent,
		backoff:     cfg.Backoff,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: time.NewTicker(cfg.Interval),
		logger:      logger.OrNop(log).Named("geocoding"),
	}
}

// Close stops the rate limiter
func (g *NominatimGeocoder) Close() {
	g.rateLimiter.Stop()
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (*GeocodingResult, error) {
	results, err := g.search(ctx, address, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		g.logger.Warn("no geocoding results", zap.String("address", address))
		return nil, &ErrGeocodingFailed{Address: address, Reason: "no results found"}
	}

	coords, err := parseResult(results[0])
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}

	g.logger.Debug("geocoded address",
		zap.String("address", address),
		zap.Float64("lat", coords.Lat),
		zap.Float64("lng", coords.Lng),
	)
	return &GeocodingResult{Coords: coords, DisplayName: results[0].DisplayName}, nil
}

func (g *NominatimGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*GeocodingResult, error) {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		result, err := g.Geocode(ctx, address)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if i < maxRetries-1 {
			backoff := g.backoff << uint(i)
			g.logger.Info("retrying geocode",
				zap.Int("attempt", i+1),
				zap.Int("max_retries", maxRetries),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	g.logger.Error("geocoding failed", zap.String("address", address), zap.Int("attempts", maxRetries), zap.Error(lastErr))
	return nil, lastErr
}

// Search returns up to limit candidates; entries with unusable coordinates are skipped
func (g *NominatimGeocoder) Search(ctx context.Context, query string, limit int) ([]GeocodingResult, error) {
	results, err := g.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]GeocodingResult, 0, len(results))
	for _, r := range results {
		coords, err := parseResult(r)
		if err != nil {
			g.logger.Debug("skipping search result", zap.String("query", query), zap.Error(err))
			continue
		}
		out = append(out, GeocodingResult{Coords: coords, DisplayName: r.DisplayName})
	}
	return out, nil
}

func (g *NominatimGeocoder) search(ctx context.Context, query string, limit int) ([]nominatimResponse, error) {
	select {
	case <-g.rateLimiter.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	queryURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=%d", g.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: query, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Warn("geocoding request failed", zap.String("query", query), zap.Error(err))
		return nil, &ErrGeocodingFailed{Address: query, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.Warn("geocoding API error", zap.String("query", query), zap.Int("status", resp.StatusCode))
		return nil, &ErrGeocodingFailed{
			Address: query,
			Reason:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &ErrGeocodingFailed{Address: query, Reason: err.Error()}
	}
	return results, nil
}

func parseResult(r nominatimResponse) (models.Coordinates, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid latitude %q", r.Lat)
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid longitude %q", r.Lon)
	}
	return models.Coordinates{Lat: lat, Lng: lng}, nil
}

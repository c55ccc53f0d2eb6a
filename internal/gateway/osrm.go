package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Az-san/intern-0818-0821/internal/models"
)

// ErrBackendFailed is returned when a single routing backend cannot answer
type ErrBackendFailed struct {
	Backend string
	Status  int
	Reason  string
}

func (e *ErrBackendFailed) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("routing backend %s failed: HTTP %d: %s", e.Backend, e.Status, e.Reason)
	}
	return fmt.Sprintf("routing backend %s failed: %s", e.Backend, e.Reason)
}

// RateLimited reports whether the backend answered HTTP 429
func (e *ErrBackendFailed) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

type osrmRouteResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Geometry osrmGeometry `json:"geometry"`
	Legs     []osrmLeg    `json:"legs"`
}

type osrmGeometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

type osrmLeg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

type osrmNearestResponse struct {
	Code      string `json:"code"`
	Waypoints []struct {
		Location []float64 `json:"location"`
		Distance float64   `json:"distance"`
		Name     string    `json:"name"`
	} `json:"waypoints"`
}

// formatCoordinates renders points in OSRM's lng,lat;lng,lat form
func formatCoordinates(points []models.Coordinates) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
	}
	return strings.Join(parts, ";")
}

func routeURL(backend, profile string, points []models.Coordinates) string {
	return fmt.Sprintf("%s/route/v1/%s/%s?overview=simplified&geometries=geojson&steps=false&alternatives=false",
		strings.TrimRight(backend, "/"), profile, formatCoordinates(points))
}

func nearestURL(backend, profile string, p models.Coordinates) string {
	return fmt.Sprintf("%s/nearest/v1/%s/%.6f,%.6f?number=1",
		strings.TrimRight(backend, "/"), profile, p.Lng, p.Lat)
}

// backendLabel is the metric/log label of a backend base URL
func backendLabel(backend string) string {
	u, err := url.Parse(backend)
	if err != nil || u.Host == "" {
		return backend
	}
	return u.Host + strings.TrimRight(u.Path, "/")
}

// fetchRoute issues one route query against one backend
func (g *Gateway) fetchRoute(ctx context.Context, backend, profile string, points []models.Coordinates) (*osrmRoute, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, routeURL(backend, profile, points), nil)
	if err != nil {
		return nil, &ErrBackendFailed{Backend: backend, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &ErrBackendFailed{Backend: backend, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ErrBackendFailed{Backend: backend, Status: resp.StatusCode, Reason: string(body)}
	}

	var result osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ErrBackendFailed{Backend: backend, Status: resp.StatusCode, Reason: "decode: " + err.Error()}
	}
	if result.Code != "Ok" {
		return nil, &ErrBackendFailed{Backend: backend, Status: resp.StatusCode, Reason: fmt.Sprintf("code=%s message=%s", result.Code, result.Message)}
	}
	if len(result.Routes) == 0 {
		return nil, &ErrBackendFailed{Backend: backend, Status: resp.StatusCode, Reason: "no routes returned"}
	}

	// Alternatives are not ranked; the first route is the answer.
	return &result.Routes[0], nil
}

// fetchNearest snaps one point to the road network
func (g *Gateway) fetchNearest(ctx context.Context, backend, profile string, p models.Coordinates) (models.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nearestURL(backend, profile, p), nil)
	if err != nil {
		return p, err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return p, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p, &ErrBackendFailed{Backend: backend, Status: resp.StatusCode, Reason: "nearest lookup failed"}
	}

	var result osrmNearestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return p, err
	}
	if result.Code != "Ok" || len(result.Waypoints) == 0 || len(result.Waypoints[0].Location) < 2 {
		return p, &ErrBackendFailed{Backend: backend, Status: resp.StatusCode, Reason: "no nearest waypoint"}
	}

	loc := result.Waypoints[0].Location
	return models.Coordinates{Lat: loc[1], Lng: loc[0]}, nil
}

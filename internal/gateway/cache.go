package gateway

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/metrics"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

func cacheKey(profile string, snap bool, stops []models.Stop) string {
	parts := make([]string, len(stops))
	for i, s := range stops {
		parts[i] = fmt.Sprintf("%.5f,%.5f", models.RoundCoordinate(s.Coords.Lat), models.RoundCoordinate(s.Coords.Lng))
	}
	return fmt.Sprintf("route:%s:snap=%t:%s", profile, snap, strings.Join(parts, ";"))
}

// cachedRoute returns a cached live route re-labelled with the caller's stop
// ids, or nil on miss. Cache failures count as misses.
func (g *Gateway) cachedRoute(ctx context.Context, key string, stops []models.Stop) *models.Route {
	if g.cache == nil {
		return nil
	}
	route, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Warn("route cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if route == nil || len(route.Stops) != len(stops) || len(route.Legs) != len(stops)-1 {
		return nil
	}

	for i := range route.Stops {
		route.Stops[i].ID = stops[i].ID
	}
	metrics.RoutingCacheHits.Inc()
	g.logger.Debug("route cache hit", zap.String("key", key))
	return route
}

func (g *Gateway) storeRoute(ctx context.Context, key string, route *models.Route) {
	if g.cache == nil || route.Degraded {
		return
	}
	if err := g.cache.Set(ctx, key, route, g.cacheTTL); err != nil {
		g.logger.Warn("route cache write failed", zap.String("key", key), zap.Error(err))
	}
}

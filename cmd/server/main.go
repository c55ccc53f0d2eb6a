package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/config"
	"github.com/Az-san/intern-0818-0821/internal/database"
	"github.com/Az-san/intern-0818-0821/internal/dataload"
	"github.com/Az-san/intern-0818-0821/internal/gateway"
	"github.com/Az-san/intern-0818-0821/internal/geocoding"
	"github.com/Az-san/intern-0818-0821/internal/handlers"
	"github.com/Az-san/intern-0818-0821/internal/itinerary"
	"github.com/Az-san/intern-0818-0821/internal/logger"
	"github.com/Az-san/intern-0818-0821/internal/models"
	"github.com/Az-san/intern-0818-0821/internal/recommendation"
	"github.com/Az-san/intern-0818-0821/internal/rerank"
	"github.com/Az-san/intern-0818-0821/internal/routing"
	"github.com/Az-san/intern-0818-0821/internal/server"
	"github.com/Az-san/intern-0818-0821/internal/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	ctx := context.Background()

	store, err := sqlite.New(cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	if err := seed(ctx, store, cfg.Database); err != nil {
		return err
	}
	if purged, err := store.PurgeExpired(ctx); err != nil {
		log.Warn("failed to purge expired routes", zap.Error(err))
	} else if purged > 0 {
		log.Info("purged expired routes", zap.Int64("count", purged))
	}

	routeCache, closeCache := selectRouteCache(ctx, cfg, store, log)
	defer closeCache()

	gw := gateway.New(gateway.Config{
		Backends:         cfg.Routing.Backends,
		Timeout:          cfg.Routing.Timeout,
		Profile:          cfg.Routing.Profile,
		FallbackSpeedKmh: cfg.Routing.FallbackSpeedKmh,
		UserAgent:        cfg.Geocoding.UserAgent,
		CacheTTL:         cfg.Routing.Cache.TTL,
	}, routeCache, log)

	loc, err := time.LoadLocation(cfg.Itinerary.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}

	var llm rerank.Reranker
	if cfg.Rerank.Enabled {
		llm = rerank.NewLLMClient(rerank.LLMConfig{
			BaseURL: cfg.Rerank.BaseURL,
			APIKey:  cfg.Rerank.APIKey,
			Model:   cfg.Rerank.Model,
			Timeout: cfg.Rerank.Timeout,
		}, log)
		log.Info("llm re-ranking enabled", zap.String("model", cfg.Rerank.Model))
	}

	geocoder := geocoding.NewNominatimGeocoder(geocoding.Config{
		BaseURL:   cfg.Geocoding.BaseURL,
		UserAgent: cfg.Geocoding.UserAgent,
	}, log)
	defer geocoder.Close()

	h := &handlers.Handler{
		Store:        store,
		Destinations: store.Destinations(),
		Guests:       store.Guests(),
		Scorer:       recommendation.NewEngine(),
		Planner:      routing.NewPlanner(gw, store.Destinations(), log),
		Itineraries: itinerary.NewBuilder(itinerary.Config{
			BufferMinutes:    cfg.Itinerary.BufferMinutes,
			DefaultStartTime: cfg.Itinerary.DefaultStartTime,
			OriginLabel:      cfg.Itinerary.OriginLabel,
			Location:         loc,
		}),
		Reranker: rerank.NewService(llm, log),
		Geocoder: geocoder,
		Origin:   resolveOrigin(ctx, cfg, geocoder, log),
		Backends: gw.Backends(),
		Logger:   log,
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}, h, log)

	if _, err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	log.Info("received signal, starting graceful shutdown", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not gracefully shutdown the server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// seed loads the configured CSV files into the store. Empty paths are skipped.
func seed(ctx context.Context, store *sqlite.Store, cfg config.DatabaseConfig) error {
	if cfg.DestinationsCSV != "" {
		dests, err := dataload.LoadDestinationsFile(cfg.DestinationsCSV)
		if err != nil {
			return fmt.Errorf("failed to load destinations: %w", err)
		}
		if _, err := store.SeedDestinations(ctx, dests); err != nil {
			return err
		}
	}

	if cfg.GuestsCSV != "" {
		guests, err := dataload.LoadGuestsFile(cfg.GuestsCSV, dataload.DetectAccessibility)
		if err != nil {
			return fmt.Errorf("failed to load guests: %w", err)
		}
		if _, err := store.SeedGuests(ctx, guests); err != nil {
			return err
		}
	}
	return nil
}

// selectRouteCache returns the configured cache, falling back to SQLite when
// Redis is unreachable.
func selectRouteCache(ctx context.Context, cfg *config.Config, store *sqlite.Store, log *zap.Logger) (database.RouteCacheRepository, func()) {
	noop := func() {}

	switch cfg.Routing.Cache.Driver {
	case config.CacheNone:
		log.Info("route cache disabled")
		return nil, noop
	case config.CacheRedis:
		cache := database.NewRedisRouteCache(database.NewRedisClient(database.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := cache.Ping(pingCtx); err != nil {
			log.Warn("redis unavailable, using sqlite route cache", zap.String("address", cfg.Redis.Address), zap.Error(err))
			cache.Close()
			return store.RouteCache(), noop
		}
		log.Info("using redis route cache", zap.String("address", cfg.Redis.Address))
		return cache, func() { cache.Close() }
	default:
		return store.RouteCache(), noop
	}
}

// resolveOrigin locates the hotel. A failure leaves the service running
// without an origin.
func resolveOrigin(ctx context.Context, cfg *config.Config, g geocoding.Geocoder, log *zap.Logger) *models.Stop {
	hotel := geocoding.Hotel{Name: cfg.Hotel.Name, Address: cfg.Hotel.Address}
	if cfg.Hotel.HasCoordinates() {
		hotel.Coords = &models.Coordinates{Lat: cfg.Hotel.Lat, Lng: cfg.Hotel.Lng}
	}
	if hotel.Coords == nil && hotel.Address == "" {
		log.Info("no hotel location configured, include_origin is unavailable")
		return nil
	}

	stop, err := geocoding.ResolveOrigin(ctx, g, hotel, cfg.Geocoding.Retries)
	if err != nil {
		var geoErr *geocoding.ErrGeocodingFailed
		if errors.As(err, &geoErr) {
			log.Warn("hotel address could not be geocoded", zap.String("address", geoErr.Address), zap.String("reason", geoErr.Reason))
		} else {
			log.Warn("hotel origin unavailable", zap.Error(err))
		}
		return nil
	}
	log.Info("hotel origin resolved",
		zap.String("name", hotel.Name),
		zap.Float64("lat", stop.Coords.Lat),
		zap.Float64("lng", stop.Coords.Lng),
	)
	return &stop
}

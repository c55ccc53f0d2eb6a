package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration. With an empty path it looks for config.yaml in
// ./configs and the working directory and carries on without one.
// Precedence, lowest first: defaults, file, CONCIERGE_* variables, then the
// OSRM_BASE_URL and OPENAI_* variables.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.path", "data/concierge.db")
	v.SetDefault("database.destinations_csv", "")
	v.SetDefault("database.guests_csv", "")

	v.SetDefault("routing.backends", []string{
		"https://router.project-osrm.org",
		"https://routing.openstreetmap.de/routed-car",
	})
	v.SetDefault("routing.profile", "driving")
	v.SetDefault("routing.timeout", 6*time.Second)
	v.SetDefault("routing.snap", false)
	v.SetDefault("routing.fallback_speed_kmh", 40.0)
	v.SetDefault("routing.cache.driver", CacheSQLite)
	v.SetDefault("routing.cache.ttl", 24*time.Hour)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("hotel.name", "Hotel")
	v.SetDefault("hotel.address", "")
	v.SetDefault("hotel.lat", 0.0)
	v.SetDefault("hotel.lng", 0.0)

	v.SetDefault("geocoding.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoding.user_agent", "ConciergeDayPlanner/1.0")
	v.SetDefault("geocoding.retries", 3)

	v.SetDefault("itinerary.buffer_minutes", 15)
	v.SetDefault("itinerary.default_start_time", "09:00")
	v.SetDefault("itinerary.origin_label", "")
	v.SetDefault("itinerary.timezone", "Asia/Tokyo")

	v.SetDefault("rerank.enabled", false)
	v.SetDefault("rerank.base_url", "https://api.openai.com/v1")
	v.SetDefault("rerank.api_key", "")
	v.SetDefault("rerank.model", "gpt-4o-mini")
	v.SetDefault("rerank.timeout", 30*time.Second)
	v.SetDefault("rerank.top_k", 10)
}

// overrideFromEnv applies the unprefixed variables shared with other tools
func overrideFromEnv(cfg *Config) {
	if val := os.Getenv("OSRM_BASE_URL"); val != "" {
		cfg.Routing.Backends = []string{val}
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" && cfg.Rerank.APIKey == "" {
		cfg.Rerank.APIKey = val
		cfg.Rerank.Enabled = true
	}
	if val := os.Getenv("OPENAI_BASE_URL"); val != "" {
		cfg.Rerank.BaseURL = val
	}
	if val := os.Getenv("OPENAI_MODEL"); val != "" {
		cfg.Rerank.Model = val
	}
	if cfg.Hotel.Name != "" && cfg.Itinerary.OriginLabel == "" {
		cfg.Itinerary.OriginLabel = cfg.Hotel.Name
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}

	if len(cfg.Routing.Backends) == 0 {
		return errors.New("routing.backends needs at least one URL")
	}
	for _, b := range cfg.Routing.Backends {
		u, err := url.Parse(b)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("routing.backends: %q is not an http(s) URL", b)
		}
	}
	if cfg.Routing.Timeout <= 0 {
		return errors.New("routing.timeout must be positive")
	}

	switch cfg.Routing.Cache.Driver {
	case CacheSQLite, CacheNone:
	case CacheRedis:
		if cfg.Redis.Address == "" {
			return errors.New("redis.address is required when routing.cache.driver is redis")
		}
	default:
		return fmt.Errorf("routing.cache.driver %q is not one of sqlite, redis, none", cfg.Routing.Cache.Driver)
	}

	if cfg.Hotel.HasCoordinates() {
		if cfg.Hotel.Lat < -90 || cfg.Hotel.Lat > 90 || cfg.Hotel.Lng < -180 || cfg.Hotel.Lng > 180 {
			return errors.New("hotel.lat/hotel.lng out of range")
		}
	}

	if cfg.Itinerary.BufferMinutes < 0 {
		return errors.New("itinerary.buffer_minutes cannot be negative")
	}
	if _, err := time.Parse("15:04", cfg.Itinerary.DefaultStartTime); err != nil {
		return fmt.Errorf("itinerary.default_start_time %q is not HH:MM", cfg.Itinerary.DefaultStartTime)
	}
	if _, err := time.LoadLocation(cfg.Itinerary.Timezone); err != nil {
		return fmt.Errorf("itinerary.timezone: %w", err)
	}

	if cfg.Rerank.Enabled && cfg.Rerank.BaseURL == "" {
		return errors.New("rerank.base_url is required when rerank is enabled")
	}
	return nil
}

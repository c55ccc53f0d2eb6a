// Package config loads service configuration from YAML, .env and the
// environment.
package config

import (
	"time"
)

const EnvPrefix = "CONCIERGE"

// Cache drivers
const (
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Hotel     HotelConfig     `mapstructure:"hotel"`
	Geocoding GeocodingConfig `mapstructure:"geocoding"`
	Itinerary ItineraryConfig `mapstructure:"itinerary"`
	Rerank    RerankConfig    `mapstructure:"rerank"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Path            string `mapstructure:"path"`
	DestinationsCSV string `mapstructure:"destinations_csv"`
	GuestsCSV       string `mapstructure:"guests_csv"`
}

type RoutingConfig struct {
	Backends         []string      `mapstructure:"backends"`
	Profile          string        `mapstructure:"profile"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Snap             bool          `mapstructure:"snap"`
	FallbackSpeedKmh float64       `mapstructure:"fallback_speed_kmh"`
	Cache            CacheConfig   `mapstructure:"cache"`
}

type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HotelConfig locates the origin. Lat/Lng of 0,0 mean "geocode the address".
type HotelConfig struct {
	Name    string  `mapstructure:"name"`
	Address string  `mapstructure:"address"`
	Lat     float64 `mapstructure:"lat"`
	Lng     float64 `mapstructure:"lng"`
}

func (h HotelConfig) HasCoordinates() bool {
	return h.Lat != 0 || h.Lng != 0
}

type GeocodingConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
	Retries   int    `mapstructure:"retries"`
}

type ItineraryConfig struct {
	BufferMinutes    int    `mapstructure:"buffer_minutes"`
	DefaultStartTime string `mapstructure:"default_start_time"`
	OriginLabel      string `mapstructure:"origin_label"`
	Timezone         string `mapstructure:"timezone"`
}

type RerankConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	TopK    int           `mapstructure:"top_k"`
}

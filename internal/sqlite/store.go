package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/database"
	"github.com/Az-san/intern-0818-0821/internal/logger"

	_ "modernc.org/sqlite"
)

const (
	DefaultDBFileName = "concierge.db"
	schemaVersion     = 1
)

// Store is a SQLite-based data store implementing database.DataStore
type Store struct {
	db     *sqlx.DB
	dbPath string
	mu     sync.RWMutex
	logger *zap.Logger

	destinationRepo database.DestinationRepository
	guestRepo       database.GuestRepository
	routeCacheRepo  *routeCacheRepository
}

// New creates a new SQLite store at the specified path
func New(dbPath string, log *zap.Logger) (*Store, error) {
	log = logger.OrNop(log).Named("sqlite")

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	log.Info("opening SQLite database", zap.String("path", dbPath))

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := NewWithDB(db, log)
	store.dbPath = dbPath

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewWithDB wraps an already opened handle without touching its schema
func NewWithDB(db *sqlx.DB, log *zap.Logger) *Store {
	store := &Store{
		db:     db,
		logger: logger.OrNop(log),
	}
	store.destinationRepo = &destinationRepository{store: store}
	store.guestRepo = &guestRepository{store: store}
	store.routeCacheRepo = &routeCacheRepository{store: store}
	return store
}

// GetDBPath returns the current database file path
func (s *Store) GetDBPath() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	var version int
	err := s.db.Get(&version, "SELECT version FROM schema_version LIMIT 1")
	if err != nil {
		// Table doesn't exist, create everything
		return s.createSchema()
	}

	if version < schemaVersion {
		return s.runMigrations(version)
	}
	return nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	INSERT INTO schema_version (version) VALUES (1);

	CREATE TABLE IF NOT EXISTS destinations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		estimated_duration_minutes INTEGER NOT NULL DEFAULT 0,
		price_min INTEGER,
		price_max INTEGER,
		crowd_level INTEGER,
		indoor INTEGER NOT NULL DEFAULT 0,
		barrier_free INTEGER NOT NULL DEFAULT 0,
		stroller_friendly INTEGER NOT NULL DEFAULT 0,
		adult_only INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS guests (
		id TEXT PRIMARY KEY,
		age INTEGER NOT NULL DEFAULT 0,
		interests TEXT NOT NULL DEFAULT '[]',
		adults INTEGER NOT NULL DEFAULT 1,
		children INTEGER NOT NULL DEFAULT 0,
		seniors INTEGER NOT NULL DEFAULT 0,
		stroller INTEGER NOT NULL DEFAULT 0,
		wheelchair INTEGER NOT NULL DEFAULT 0,
		budget INTEGER,
		crowd_aversion TEXT NOT NULL DEFAULT 'none',
		notes TEXT NOT NULL DEFAULT ''
	);

	-- Live routing answers keyed by profile and rounded coordinates
	CREATE TABLE IF NOT EXISTS route_cache (
		cache_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_destinations_category ON destinations(category);
	CREATE INDEX IF NOT EXISTS idx_route_cache_expires ON route_cache(expires_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Info("SQLite schema initialized", zap.Int("version", schemaVersion))
	return nil
}

func (s *Store) runMigrations(fromVersion int) error {
	s.logger.Info("migrating schema", zap.Int("from", fromVersion), zap.Int("to", schemaVersion))
	_, err := s.db.Exec("UPDATE schema_version SET version = ?", schemaVersion)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		// Checkpoint WAL before closing
		s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// HealthCheck verifies the database connection
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Repository accessors
func (s *Store) Destinations() database.DestinationRepository { return s.destinationRepo }
func (s *Store) Guests() database.GuestRepository             { return s.guestRepo }
func (s *Store) RouteCache() database.RouteCacheRepository    { return s.routeCacheRepo }

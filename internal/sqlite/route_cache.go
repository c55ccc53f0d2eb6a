package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Az-san/intern-0818-0821/internal/models"
)

type routeCacheRepository struct {
	store *Store
	now   func() time.Time
}

func (r *routeCacheRepository) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// Get returns nil, nil for a missing or expired entry
func (r *routeCacheRepository) Get(ctx context.Context, key string) (*models.Route, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var entry struct {
		Payload   string `db:"payload"`
		ExpiresAt int64  `db:"expires_at"`
	}
	err := r.store.db.GetContext(ctx, &entry, "SELECT payload, expires_at FROM route_cache WHERE cache_key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached route: %w", err)
	}
	if entry.ExpiresAt <= r.clock().Unix() {
		return nil, nil
	}

	var route models.Route
	if err := json.Unmarshal([]byte(entry.Payload), &route); err != nil {
		return nil, fmt.Errorf("failed to decode cached route: %w", err)
	}
	return &route, nil
}

func (r *routeCacheRepository) Set(ctx context.Context, key string, route *models.Route, ttl time.Duration) error {
	payload, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("failed to encode route: %w", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err = r.store.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO route_cache (cache_key, payload, expires_at) VALUES (?, ?, ?)",
		key, string(payload), r.clock().Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to cache route: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired entries and reports how many were removed
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM route_cache WHERE expires_at <= ?", s.routeCacheRepo.clock().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge route cache: %w", err)
	}
	return res.RowsAffected()
}

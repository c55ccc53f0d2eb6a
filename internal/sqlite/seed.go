package sqlite

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Az-san/intern-0818-0821/internal/models"
)

// SeedDestinations upserts the catalog in one transaction
func (s *Store) SeedDestinations(ctx context.Context, destinations []models.Destination) (int, error) {
	rows := make([]destinationRow, 0, len(destinations))
	for _, d := range destinations {
		row, err := destinationToRow(d)
		if err != nil {
			return 0, fmt.Errorf("failed to encode destination %s: %w", d.ID, err)
		}
		rows = append(rows, row)
	}

	query := `INSERT OR REPLACE INTO destinations (` + destinationColumns + `)
	VALUES (:id, :name, :lat, :lng, :category, :description, :tags, :estimated_duration_minutes,
		:price_min, :price_max, :crowd_level, :indoor, :barrier_free, :stroller_friendly, :adult_only)`

	n, err := s.seed(ctx, query, len(rows), func(i int) interface{} { return rows[i] })
	if err != nil {
		return 0, fmt.Errorf("failed to seed destinations: %w", err)
	}
	s.logger.Info("seeded destinations", zap.Int("count", n))
	return n, nil
}

// SeedGuests upserts guest profiles in one transaction
func (s *Store) SeedGuests(ctx context.Context, guests []models.GuestProfile) (int, error) {
	rows := make([]guestRow, 0, len(guests))
	for _, g := range guests {
		row, err := guestToRow(g)
		if err != nil {
			return 0, fmt.Errorf("failed to encode guest %s: %w", g.ID, err)
		}
		rows = append(rows, row)
	}

	query := `INSERT OR REPLACE INTO guests (` + guestColumns + `)
	VALUES (:id, :age, :interests, :adults, :children, :seniors, :stroller, :wheelchair, :budget, :crowd_aversion, :notes)`

	n, err := s.seed(ctx, query, len(rows), func(i int) interface{} { return rows[i] })
	if err != nil {
		return 0, fmt.Errorf("failed to seed guests: %w", err)
	}
	s.logger.Info("seeded guests", zap.Int("count", n))
	return n, nil
}

func (s *Store) seed(ctx context.Context, query string, n int, row func(i int) interface{}) (int, error) {
	if n == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return n, nil
}

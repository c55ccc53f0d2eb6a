package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Az-san/intern-0818-0821/internal/database"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

const destinationColumns = `id, name, lat, lng, category, description, tags, estimated_duration_minutes,
	price_min, price_max, crowd_level, indoor, barrier_free, stroller_friendly, adult_only`

type destinationRepository struct {
	store *Store
}

type destinationRow struct {
	ID                       string        `db:"id"`
	Name                     string        `db:"name"`
	Lat                      float64       `db:"lat"`
	Lng                      float64       `db:"lng"`
	Category                 string        `db:"category"`
	Description              string        `db:"description"`
	Tags                     string        `db:"tags"`
	EstimatedDurationMinutes int           `db:"estimated_duration_minutes"`
	PriceMin                 sql.NullInt64 `db:"price_min"`
	PriceMax                 sql.NullInt64 `db:"price_max"`
	CrowdLevel               sql.NullInt64 `db:"crowd_level"`
	Indoor                   bool          `db:"indoor"`
	BarrierFree              bool          `db:"barrier_free"`
	StrollerFriendly         bool          `db:"stroller_friendly"`
	AdultOnly                bool          `db:"adult_only"`
}

func (r destinationRow) toModel() (models.Destination, error) {
	d := models.Destination{
		ID:                       r.ID,
		Name:                     r.Name,
		Coords:                   models.Coordinates{Lat: r.Lat, Lng: r.Lng},
		Category:                 r.Category,
		Description:              r.Description,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
		PriceMin:                 intPtr(r.PriceMin),
		PriceMax:                 intPtr(r.PriceMax),
		CrowdLevel:               intPtr(r.CrowdLevel),
		Indoor:                   r.Indoor,
		BarrierFree:              r.BarrierFree,
		StrollerFriendly:         r.StrollerFriendly,
		AdultOnly:                r.AdultOnly,
	}
	if err := json.Unmarshal([]byte(r.Tags), &d.Tags); err != nil {
		return d, fmt.Errorf("destination %s has malformed tags: %w", r.ID, err)
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return d, nil
}

func destinationToRow(d models.Destination) (destinationRow, error) {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return destinationRow{}, err
	}
	return destinationRow{
		ID:                       d.ID,
		Name:                     d.Name,
		Lat:                      d.Coords.Lat,
		Lng:                      d.Coords.Lng,
		Category:                 d.Category,
		Description:              d.Description,
		Tags:                     string(encoded),
		EstimatedDurationMinutes: d.EstimatedDurationMinutes,
		PriceMin:                 nullInt(d.PriceMin),
		PriceMax:                 nullInt(d.PriceMax),
		CrowdLevel:               nullInt(d.CrowdLevel),
		Indoor:                   d.Indoor,
		BarrierFree:              d.BarrierFree,
		StrollerFriendly:         d.StrollerFriendly,
		AdultOnly:                d.AdultOnly,
	}, nil
}

func (r *destinationRepository) List(ctx context.Context, category string) ([]models.Destination, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query := "SELECT " + destinationColumns + " FROM destinations"
	var args []interface{}
	if category != "" {
		query += " WHERE LOWER(category) = LOWER(?)"
		args = append(args, category)
	}
	query += " ORDER BY id"

	var rows []destinationRow
	if err := r.store.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}
	return toDestinations(rows)
}

func (r *destinationRepository) GetDestination(ctx context.Context, id string) (*models.Destination, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var row destinationRow
	err := r.store.db.GetContext(ctx, &row, "SELECT "+destinationColumns+" FROM destinations WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get destination: %w", err)
	}

	d, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByIDs returns the known destinations among ids, in the order requested
func (r *destinationRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Destination, error) {
	if len(ids) == 0 {
		return []models.Destination{}, nil
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	query, args, err := sqlx.In("SELECT "+destinationColumns+" FROM destinations WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build destination query: %w", err)
	}

	var rows []destinationRow
	if err := r.store.db.SelectContext(ctx, &rows, r.store.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get destinations: %w", err)
	}

	found, err := toDestinations(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Destination, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}

	out := make([]models.Destination, 0, len(found))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
			delete(byID, id)
		}
	}
	return out, nil
}

func (r *destinationRepository) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var n int
	if err := r.store.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM destinations"); err != nil {
		return 0, fmt.Errorf("failed to count destinations: %w", err)
	}
	return n, nil
}

func toDestinations(rows []destinationRow) ([]models.Destination, error) {
	out := make([]models.Destination, 0, len(rows))
	for _, row := range rows {
		d, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

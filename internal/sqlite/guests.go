package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Az-san/intern-0818-0821/internal/database"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

const guestColumns = `id, age, interests, adults, children, seniors, stroller, wheelchair, budget, crowd_aversion, notes`

type guestRepository struct {
	store *Store
}

type guestRow struct {
	ID            string        `db:"id"`
	Age           int           `db:"age"`
	Interests     string        `db:"interests"`
	Adults        int           `db:"adults"`
	Children      int           `db:"children"`
	Seniors       int           `db:"seniors"`
	Stroller      bool          `db:"stroller"`
	Wheelchair    bool          `db:"wheelchair"`
	Budget        sql.NullInt64 `db:"budget"`
	CrowdAversion string        `db:"crowd_aversion"`
	Notes         string        `db:"notes"`
}

func (r guestRow) toModel() (models.GuestProfile, error) {
	g := models.GuestProfile{
		ID:            r.ID,
		Age:           r.Age,
		Party:         models.PartyComposition{Adults: r.Adults, Children: r.Children, Seniors: r.Seniors},
		Accessibility: models.AccessibilityNeeds{Stroller: r.Stroller, Wheelchair: r.Wheelchair},
		Budget:        intPtr(r.Budget),
		CrowdAversion: models.ParseCrowdAversion(r.CrowdAversion),
		Notes:         r.Notes,
	}
	if err := json.Unmarshal([]byte(r.Interests), &g.Interests); err != nil {
		return g, fmt.Errorf("guest %s has malformed interests: %w", r.ID, err)
	}
	if g.Interests == nil {
		g.Interests = []string{}
	}
	return g, nil
}

func guestToRow(g models.GuestProfile) (guestRow, error) {
	interests := g.Interests
	if interests == nil {
		interests = []string{}
	}
	encoded, err := json.Marshal(interests)
	if err != nil {
		return guestRow{}, err
	}
	aversion := g.CrowdAversion
	if aversion == "" {
		aversion = models.CrowdAversionNone
	}
	return guestRow{
		ID:            g.ID,
		Age:           g.Age,
		Interests:     string(encoded),
		Adults:        g.Party.Adults,
		Children:      g.Party.Children,
		Seniors:       g.Party.Seniors,
		Stroller:      g.Accessibility.Stroller,
		Wheelchair:    g.Accessibility.Wheelchair,
		Budget:        nullInt(g.Budget),
		CrowdAversion: string(aversion),
		Notes:         g.Notes,
	}, nil
}

func (r *guestRepository) List(ctx context.Context) ([]models.GuestProfile, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var rows []guestRow
	if err := r.store.db.SelectContext(ctx, &rows, "SELECT "+guestColumns+" FROM guests ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}

	guests := make([]models.GuestProfile, 0, len(rows))
	for _, row := range rows {
		g, err := row.toModel()
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	return guests, nil
}

func (r *guestRepository) GetGuest(ctx context.Context, id string) (*models.GuestProfile, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var row guestRow
	err := r.store.db.GetContext(ctx, &row, "SELECT "+guestColumns+" FROM guests WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}

	g, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &g, nil
}

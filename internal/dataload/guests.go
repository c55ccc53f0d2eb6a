package dataload

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Az-san/intern-0818-0821/internal/models"
)

const seniorAge = 65

// Guest columns, with the Japanese export headers accepted as aliases
var (
	colGuestID       = []string{"guest_id", "顧客ID", "GUEST_ID"}
	colAge           = []string{"age", "年齢"}
	colInterests     = []string{"interests", "興味・関心タグ"}
	colCompanions    = []string{"companions", "同行者情報"}
	colNotes         = []string{"notes", "特記事項"}
	colBudget        = []string{"budget", "予算"}
	colCrowdAversion = []string{"crowd_aversion", "混雑回避"}
)

// NoteParser extracts accessibility needs from free-text guest notes
type NoteParser func(notes string) models.AccessibilityNeeds

var (
	strollerKeywords   = []string{"ベビーカー", "stroller", "pram"}
	wheelchairKeywords = []string{"車椅子", "車いす", "wheelchair"}
)

// DetectAccessibility is the default NoteParser. It matches keywords.
func DetectAccessibility(notes string) models.AccessibilityNeeds {
	lower := strings.ToLower(notes)
	return models.AccessibilityNeeds{
		Stroller:   containsAny(lower, strollerKeywords),
		Wheelchair: containsAny(lower, wheelchairKeywords),
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

type companion struct {
	Relationship string `json:"relationship"`
	Age          int    `json:"age"`
}

// ParseCompanions derives the party from the companion JSON list. The guest
// always counts as one adult. Malformed input yields that solo party and an
// error.
func ParseCompanions(raw string, guestAge int) (models.PartyComposition, error) {
	party := models.PartyComposition{Adults: 1}
	if guestAge >= seniorAge {
		party.Seniors = 1
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return party, nil
	}

	var companions []companion
	if err := json.Unmarshal([]byte(raw), &companions); err != nil {
		return party, fmt.Errorf("invalid companion list: %w", err)
	}

	for _, c := range companions {
		switch strings.ToLower(strings.TrimSpace(c.Relationship)) {
		case "child", "son", "daughter":
			party.Children++
		case "partner", "spouse":
			party.Adults++
		}
		if c.Age >= seniorAge {
			party.Seniors++
		}
	}
	return party, nil
}

// LoadGuestsFile reads the guest list from path
func LoadGuestsFile(path string, notes NoteParser) ([]models.GuestProfile, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadGuests(f, notes)
}

// LoadGuests parses guest rows. Rows without an id are skipped. Unparsable
// optional fields fall back to their zero value. A nil parser selects
// DetectAccessibility.
func LoadGuests(r io.Reader, notes NoteParser) ([]models.GuestProfile, error) {
	if notes == nil {
		notes = DetectAccessibility
	}

	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if !t.has(colGuestID...) {
		return nil, fmt.Errorf("guest csv is missing column %q", colGuestID[0])
	}

	guests := make([]models.GuestProfile, 0, len(t.rows))
	for _, row := range t.rows {
		id := t.get(row, colGuestID...)
		if id == "" {
			continue
		}

		age, _ := strconv.Atoi(t.get(row, colAge...))
		party, _ := ParseCompanions(t.get(row, colCompanions...), age)
		budget, _ := optionalInt(t.get(row, colBudget...))
		note := t.get(row, colNotes...)

		guests = append(guests, models.GuestProfile{
			ID:            id,
			Age:           age,
			Interests:     splitList(t.get(row, colInterests...)),
			Party:         party,
			Accessibility: notes(note),
			Budget:        budget,
			CrowdAversion: models.ParseCrowdAversion(t.get(row, colCrowdAversion...)),
			Notes:         note,
		})
	}
	return guests, nil
}

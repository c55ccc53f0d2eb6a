// Package recommendation ranks destinations for a guest under the day's
// weather and season. Scoring is a pure sum of bounded factor terms.
package recommendation

import (
	"math"
	"sort"

	"github.com/Az-san/intern-0818-0821/internal/geo"
	"github.com/Az-san/intern-0818-0821/internal/models"
)

const (
	baseScore    = 0.3
	maxScore     = 1.0
	defaultAge   = 35
	adultMinAge  = 20
	defaultAffin = 0.1
)

// Factor names, in the order they are reported.
const (
	FactorBase          = "base"
	FactorAgeFit        = "age_fit"
	FactorInterest      = "interest"
	FactorPopularity    = "popularity"
	FactorBudget        = "budget"
	FactorCrowd         = "crowd"
	FactorAccessibility = "accessibility"
	FactorWeather       = "weather"
	FactorSeason        = "season"
)

type ageBracket int

const (
	bracketYoung ageBracket = iota
	bracketMiddle
	bracketSenior
)

// Engine scores destinations. It holds only read-only tables and is safe for
// concurrent use.
type Engine struct {
	affinity map[string][3]float64
}

// NewEngine creates an engine with the default category affinity table
func NewEngine() *Engine {
	return &Engine{
		affinity: map[string][3]float64{
			tagEntertainment: {0.3, 0.1, 0.05},
			tagShopping:      {0.2, 0.25, 0.15},
			tagHistory:       {0.1, 0.2, 0.3},
			tagNature:        {0.2, 0.2, 0.25},
			tagCulture:       {0.15, 0.2, 0.25},
		},
	}
}

// Score returns the clamped relevance of dest for guest under ctx.
func (e *Engine) Score(guest *models.GuestProfile, ctx models.Context, dest *models.Destination) float64 {
	score, _ := e.ScoreWithFactors(guest, ctx, dest)
	return score
}

// ScoreWithFactors returns the clamped score together with every factor term.
// The score is capped at 1.0 and may be negative.
func (e *Engine) ScoreWithFactors(guest *models.GuestProfile, ctx models.Context, dest *models.Destination) (float64, []models.Factor) {
	ctx = ctx.Normalized()
	tags := newTagSet([]string{dest.Category}, dest.Tags)

	factors := []models.Factor{
		{Name: FactorBase, Value: baseScore},
		{Name: FactorAgeFit, Value: e.ageFit(guest, dest)},
		{Name: FactorInterest, Value: interestMatch(guest, dest)},
		{Name: FactorPopularity, Value: popularity(dest)},
		{Name: FactorBudget, Value: budgetFit(guest, dest)},
		{Name: FactorCrowd, Value: crowdPenalty(guest, dest)},
		{Name: FactorAccessibility, Value: accessibilityFit(guest, dest)},
		{Name: FactorWeather, Value: weatherFit(ctx.Weather, dest, tags)},
		{Name: FactorSeason, Value: seasonFit(ctx.Season, dest, tags)},
	}

	sum := 0.0
	for _, f := range factors {
		sum += f.Value
	}
	return math.Min(sum, maxScore), factors
}

// SortByScore returns copies of dests with scores attached, best first.
// Equal scores keep their input order.
func (e *Engine) SortByScore(guest *models.GuestProfile, ctx models.Context, dests []models.Destination) []models.ScoredDestination {
	scored := make([]models.ScoredDestination, len(dests))
	for i := range dests {
		s, factors := e.ScoreWithFactors(guest, ctx, &dests[i])
		d := dests[i]
		d.Tags = append([]string(nil), dests[i].Tags...)
		scored[i] = models.ScoredDestination{
			Destination: d,
			Score:       geo.Round(s, 3),
			Factors:     factors,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func (e *Engine) ageFit(guest *models.GuestProfile, dest *models.Destination) float64 {
	age := guest.Age
	if age <= 0 {
		age = defaultAge
	}
	if dest.AdultOnly && age < adultMinAge {
		return -0.2
	}

	weights, ok := e.affinity[normalizeTag(dest.Category)]
	if !ok {
		return defaultAffin
	}
	return weights[bracketFor(age)]
}

func bracketFor(age int) ageBracket {
	switch {
	case age <= 35:
		return bracketYoung
	case age <= 55:
		return bracketMiddle
	default:
		return bracketSenior
	}
}

func interestMatch(guest *models.GuestProfile, dest *models.Destination) float64 {
	interests := newTagSet(guest.Interests)
	if len(interests) == 0 {
		return 0.1
	}
	destTags := newTagSet(dest.Tags)

	matched := 0
	for tag := range interests {
		if destTags.has(tag) {
			matched++
		}
	}
	return float64(matched) / float64(len(interests)) * 0.4
}

func popularity(dest *models.Destination) float64 {
	switch d := dest.EstimatedDurationMinutes; {
	case d >= 120:
		return 0.15
	case d >= 90:
		return 0.10
	case d >= 60:
		return 0.05
	default:
		return 0.02
	}
}

// representativePrice is the midpoint of the known bounds, or the only bound.
func representativePrice(dest *models.Destination) (float64, bool) {
	switch {
	case dest.PriceMin != nil && dest.PriceMax != nil:
		return float64(*dest.PriceMin+*dest.PriceMax) / 2, true
	case dest.PriceMin != nil:
		return float64(*dest.PriceMin), true
	case dest.PriceMax != nil:
		return float64(*dest.PriceMax), true
	default:
		return 0, false
	}
}

func budgetFit(guest *models.GuestProfile, dest *models.Destination) float64 {
	if guest.Budget == nil {
		return 0
	}
	price, ok := representativePrice(dest)
	if !ok {
		return 0
	}
	budget := float64(*guest.Budget)
	if price <= budget {
		return 0.12
	}
	ratio := math.Min(2, price/math.Max(1, budget))
	return -0.12 * (ratio - 1)
}

func crowdPenalty(guest *models.GuestProfile, dest *models.Destination) float64 {
	if dest.CrowdLevel == nil {
		return 0
	}
	level := float64(*dest.CrowdLevel)
	switch guest.CrowdAversion {
	case models.CrowdAversionMedium:
		return -0.05 * level
	case models.CrowdAversionHigh:
		return -0.09 * level
	default:
		return 0
	}
}

func accessibilityFit(guest *models.GuestProfile, dest *models.Destination) float64 {
	score := 0.0
	if guest.Accessibility.Stroller {
		score += signed(0.08, dest.StrollerFriendly)
	}
	if guest.Accessibility.Wheelchair {
		score += signed(0.10, dest.BarrierFree)
	}
	return score
}

func signed(v float64, ok bool) float64 {
	if ok {
		return v
	}
	return -v
}

func weatherFit(w models.Weather, dest *models.Destination, tags tagSet) float64 {
	score := 0.0
	switch w {
	case models.WeatherSunny:
		if !dest.Indoor {
			score += 0.06
		}
		if tags.has(tagBeach) {
			score += 0.06
		}
		if tags.hasAny(tagScenic, tagView) {
			score += 0.04
		}
	case models.WeatherRainy:
		if dest.Indoor {
			score += 0.08
		} else {
			score -= 0.06
		}
		if tags.has(tagShopping) {
			score += 0.06
		}
		if tags.hasAny(tagCulture, tagMuseum, tagArt) {
			score += 0.05
		}
	case models.WeatherCloudy:
		if dest.Indoor {
			score += 0.04
		}
		if tags.hasAny(tagCulture, tagMuseum, tagArt) {
			score += 0.03
		}
	}
	return score
}

func seasonFit(s models.Season, dest *models.Destination, tags tagSet) float64 {
	score := 0.0
	switch s {
	case models.SeasonSpring:
		if tags.hasAny(tagNature, tagFlowers, tagHiking) {
			score += 0.06
		}
	case models.SeasonSummer:
		if tags.has(tagBeach) {
			score += 0.08
		}
		if tags.has(tagMarine) {
			score += 0.06
		}
		if dest.Indoor {
			score += 0.02
		}
	case models.SeasonAutumn:
		if tags.hasAny(tagNature, tagScenic, tagHiking) {
			score += 0.06
		}
	case models.SeasonWinter:
		if dest.Indoor {
			score += 0.05
		}
		if tags.has(tagHotSpring) {
			score += 0.07
		}
		if tags.has(tagShopping) {
			score += 0.04
		}
	}
	return score
}

package recommendation

import "strings"

// Canonical tag vocabulary used by the scoring rules.
const (
	tagBeach         = "beach"
	tagScenic        = "scenic"
	tagView          = "view"
	tagShopping      = "shopping"
	tagCulture       = "culture"
	tagMuseum        = "museum"
	tagArt           = "art"
	tagNature        = "nature"
	tagFlowers       = "flowers"
	tagHiking        = "hiking"
	tagMarine        = "marine"
	tagHotSpring     = "hot spring"
	tagEntertainment = "entertainment"
	tagHistory       = "history"
)

// aliases folds the catalog's Japanese labels and common English variants
// onto the canonical vocabulary.
var aliases = map[string]string{
	"ビーチ":            tagBeach,
	"海水浴":            tagBeach,
	"絶景":             tagScenic,
	"景観":             tagScenic,
	"scenery":        tagScenic,
	"展望":             tagView,
	"展望台":            tagView,
	"ショッピング":         tagShopping,
	"文化":             tagCulture,
	"博物館":            tagMuseum,
	"美術館":            tagArt,
	"アート体験":          tagArt,
	"art museum":     tagArt,
	"自然":             tagNature,
	"自然が好き":          tagNature,
	"花":              tagFlowers,
	"flower":         tagFlowers,
	"ハイキング":          tagHiking,
	"マリンスポーツ":        tagMarine,
	"marine sports":  tagMarine,
	"温泉":             tagHotSpring,
	"onsen":          tagHotSpring,
	"hot springs":    tagHotSpring,
	"エンターテイメント":      tagEntertainment,
	"エンターテインメント":     tagEntertainment,
	"歴史":             tagHistory,
	"historic sites": tagHistory,
}

// normalizeTag lower-cases a label, drops a leading hashtag and resolves it
// through the alias table.
func normalizeTag(s string) string {
	t := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if canonical, ok := aliases[t]; ok {
		return canonical
	}
	return t
}

type tagSet map[string]struct{}

func newTagSet(labels ...[]string) tagSet {
	set := make(tagSet)
	for _, group := range labels {
		for _, l := range group {
			if n := normalizeTag(l); n != "" {
				set[n] = struct{}{}
			}
		}
	}
	return set
}

func (s tagSet) has(tag string) bool {
	_, ok := s[tag]
	return ok
}

func (s tagSet) hasAny(tags ...string) bool {
	for _, t := range tags {
		if s.has(t) {
			return true
		}
	}
	return false
}

package bible

import (
	"sort"
	"strings"
)

// Translation categories, in display order.
const (
	CategoryPopular     = "popular"
	CategoryModern      = "modern"
	CategoryTraditional = "traditional"
	CategorySpecialized = "specialized"
	CategoryHistorical  = "historical"
)

// Providers a translation can be served from.
const (
	SourceESV         = "esv"
	SourceAPIBible    = "api_bible"
	SourcePlaceholder = "placeholder"
)

const (
	ESVID = "ESV"
	BSBID = "bba9f40183526463-01"
)

var categoryOrder = map[string]int{
	CategoryPopular:     0,
	CategoryModern:      1,
	CategoryTraditional: 2,
	CategorySpecialized: 3,
	CategoryHistorical:  4,
}

var categoryLabels = []struct{ category, label string }{
	{CategoryPopular, "Popular Translations"},
	{CategoryModern, "Modern Translations"},
	{CategoryTraditional, "Traditional Translations"},
	{CategorySpecialized, "Specialized Translations"},
	{CategoryHistorical, "Historical Translations"},
}

var popularIDs = map[string]bool{
	ESVID:                 true,
	BSBID:                 true,
	"de4e12af7f28f599-01": true, // KJV
	"de4e12af7f28f599-02": true, // KJV protestant
	"9879dbb7cfe39e4d-04": true, // WEB protestant
	"06125adad2d5898a-01": true, // ASV
	"01b29f4b342acc35-01": true, // LSV
	"65eec8e0b60e656b-01": true, // FBV
}

type Language struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	NameLocal       string `json:"nameLocal"`
	Script          string `json:"script"`
	ScriptDirection string `json:"scriptDirection"`
}

type Translation struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Abbreviation string   `json:"abbreviation"`
	Language     Language `json:"language"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category"`
	Source       string   `json:"source"`
	Type         string   `json:"type,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

type TranslationGroup struct {
	Category     string        `json:"category"`
	Label        string        `json:"label"`
	Translations []Translation `json:"translations"`
}

var english = Language{ID: "eng", Name: "English", NameLocal: "English", Script: "Latin", ScriptDirection: "LTR"}

// IsESV reports whether id names the translation served by the ESV API.
func IsESV(id string) bool {
	return strings.EqualFold(id, ESVID)
}

// Categorize assigns a display category from keyword matches on the
// abbreviation and name. Unmatched translations are modern.
func Categorize(id, abbreviation, name string) string {
	abbr := strings.ToUpper(abbreviation)
	name = strings.ToLower(name)
	hasName := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(name, w) {
				return true
			}
		}
		return false
	}

	switch {
	case popularIDs[id] || abbr == "ESV":
		return CategoryPopular
	case strings.Contains(abbr, "KJV") || abbr == "ASV" || abbr == "RV" ||
		hasName("king james", "authorised", "american standard", "revised version"):
		return CategoryTraditional
	case abbr == "WEB" || abbr == "WEBBE" || abbr == "LSV" || abbr == "FBV" || abbr == "BSB" ||
		hasName("literal standard", "world english", "free bible"):
		return CategoryModern
	case hasName("messianic", "jewish", "orthodox", "septuagint") ||
		strings.Contains(abbr, "OJB") || strings.Contains(abbr, "TOJB"):
		return CategorySpecialized
	case hasName("douay", "rheims", "geneva", "byzantine", "majority text", "targum", "1885", "1917"):
		return CategoryHistorical
	}
	return CategoryModern
}

// SortTranslations orders by category, then within popular puts ESV first
// and allow-listed ids next, then by abbreviation.
func SortTranslations(list []Translation) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if ca, cb := categoryOrder[a.Category], categoryOrder[b.Category]; ca != cb {
			return ca < cb
		}
		if a.Category == CategoryPopular {
			if ea, eb := a.ID == ESVID, b.ID == ESVID; ea != eb {
				return ea
			}
			if pa, pb := popularIDs[a.ID], popularIDs[b.ID]; pa != pb {
				return pa
			}
		}
		return strings.ToLower(a.Abbreviation) < strings.ToLower(b.Abbreviation)
	})
}

// ESVTranslation is the catalog entry for the ESV API.
func ESVTranslation() Translation {
	return Translation{
		ID:           ESVID,
		Name:         "English Standard Version",
		Abbreviation: "ESV",
		Language:     english,
		Description:  "Modern literal translation - Primary source via ESV API",
		Category:     CategoryPopular,
		Source:       SourceESV,
		Type:         "text",
	}
}

// BuildCatalog prepends the ESV entry to the English API.Bible
// translations and sorts the result.
func BuildCatalog(apiBible []Translation) []Translation {
	out := make([]Translation, 0, len(apiBible)+1)
	out = append(out, ESVTranslation())
	out = append(out, apiBible...)
	SortTranslations(out)
	return out
}

// FallbackTranslations is served when the catalog cannot be fetched.
func FallbackTranslations() []Translation {
	return []Translation{
		ESVTranslation(),
		{
			ID: BSBID, Name: "Berean Standard Bible", Abbreviation: "BSB", Language: english,
			Description: "Berean Standard Bible", Category: CategoryPopular, Source: SourceAPIBible,
		},
		{
			ID: "de4e12af7f28f599-01", Name: "King James (Authorised) Version", Abbreviation: "KJV", Language: english,
			Description: "Classic English translation from 1611", Category: CategoryTraditional, Source: SourceAPIBible,
		},
		{
			ID: "9879dbb7cfe39e4d-04", Name: "World English Bible", Abbreviation: "WEB", Language: english,
			Description: "Public domain modern English translation", Category: CategoryModern, Source: SourceAPIBible,
		},
	}
}

// GroupTranslations buckets translations by category in display order and
// drops empty groups.
func GroupTranslations(list []Translation) []TranslationGroup {
	var groups []TranslationGroup
	for _, cl := range categoryLabels {
		var members []Translation
		for _, t := range list {
			if t.Category == cl.category {
				members = append(members, t)
			}
		}
		if len(members) > 0 {
			groups = append(groups, TranslationGroup{Category: cl.category, Label: cl.label, Translations: members})
		}
	}
	return groups
}

func FindTranslation(list []Translation, id string) (Translation, bool) {
	for _, t := range list {
		if t.ID == id {
			return t, true
		}
	}
	return Translation{}, false
}

// SearchTranslations matches q against name, abbreviation and description,
// ignoring case.
func SearchTranslations(list []Translation, q string) []Translation {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []Translation{}
	for _, t := range list {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Abbreviation), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out
}

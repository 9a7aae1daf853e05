package bible

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type esvFetcher interface {
	Fetch(ctx context.Context, refs []string, format string) (*ESVResponse, error)
}

type passageFetcher interface {
	FetchPassage(ctx context.Context, bibleID string, ref Reference, format string) (content, reference string, err error)
}

// Passage is the resolved text for a list of references.
type Passage struct {
	Passages    []string `json:"passages"`
	Content     string   `json:"content"`
	Texts       []string `json:"texts"`
	Reference   string   `json:"reference"`
	Translation string   `json:"translation"`
	BibleID     string   `json:"bibleId"`
	Source      string   `json:"source"`
	Skipped     []string `json:"skipped,omitempty"`
}

// Resolver routes passage requests to the ESV API or API.Bible and degrades
// to placeholder text when neither can serve them.
type Resolver struct {
	esv        esvFetcher
	apiBible   passageFetcher
	catalog    *TranslationCache
	fallbackID string
	onFallback func(stage string)
}

func NewResolver(esv esvFetcher, apiBible passageFetcher, catalog *TranslationCache, onFallback func(stage string)) *Resolver {
	if onFallback == nil {
		onFallback = func(string) {}
	}
	return &Resolver{
		esv:        esv,
		apiBible:   apiBible,
		catalog:    catalog,
		fallbackID: BSBID,
		onFallback: onFallback,
	}
}

// ValidateTranslation returns the catalog entry for id, or ESV when the id
// is unknown. Without a catalog the fallback list is consulted.
func (r *Resolver) ValidateTranslation(ctx context.Context, id string) Translation {
	if id == "" || IsESV(id) {
		return ESVTranslation()
	}
	var t Translation
	var ok bool
	if r.catalog != nil {
		t, ok = r.catalog.Lookup(ctx, id)
	} else {
		t, ok = FindTranslation(FallbackTranslations(), id)
	}
	if ok {
		return t
	}
	log.WithField("translation", id).Warn("unknown translation, using default")
	return ESVTranslation()
}

// Resolve never fails: upstream problems end in placeholder text.
func (r *Resolver) Resolve(ctx context.Context, passages []string, translationID, format string) Passage {
	t := r.ValidateTranslation(ctx, translationID)

	if IsESV(t.ID) {
		p, err := r.fromESV(ctx, passages, format)
		if err == nil {
			return p
		}
		log.WithError(err).Warn("esv passage fetch failed, serving placeholder")
		r.onFallback("placeholder")
		return placeholder(passages, t)
	}

	p, err := r.fromAPIBible(ctx, passages, t, format)
	if err == nil {
		return p
	}
	log.WithError(err).WithField("translation", t.ID).Warn("passage fetch failed")
	if t.ID != r.fallbackID {
		r.onFallback("default_translation")
		fb, ok := FindTranslation(FallbackTranslations(), r.fallbackID)
		if !ok {
			fb = Translation{ID: r.fallbackID, Abbreviation: r.fallbackID}
		}
		p, err := r.fromAPIBible(ctx, passages, fb, format)
		if err == nil {
			return p
		}
		log.WithError(err).Warn("default translation fetch failed, serving placeholder")
	}
	r.onFallback("placeholder")
	return placeholder(passages, t)
}

func (r *Resolver) fromESV(ctx context.Context, passages []string, format string) (Passage, error) {
	if r.esv == nil {
		return Passage{}, errors.Wrap(ErrUpstream, "esv not configured")
	}
	resp, err := r.esv.Fetch(ctx, passages, format)
	if err != nil {
		return Passage{}, err
	}
	texts := make([]string, len(resp.Passages))
	for i, s := range resp.Passages {
		texts[i] = strings.TrimSpace(s)
	}
	return Passage{
		Passages:    passages,
		Content:     strings.Join(texts, "\n\n"),
		Texts:       texts,
		Reference:   FormatReference(passages),
		Translation: "ESV",
		BibleID:     ESVID,
		Source:      SourceESV,
	}, nil
}

// fromAPIBible fetches each passage separately. Passages that do not parse
// or fail upstream are skipped; the call fails only if none succeeded.
func (r *Resolver) fromAPIBible(ctx context.Context, passages []string, t Translation, format string) (Passage, error) {
	if r.apiBible == nil {
		return Passage{}, errors.Wrap(ErrUpstream, "api_bible not configured")
	}
	var texts, resolved, skipped []string
	for _, s := range passages {
		ref, err := ParseReference(s)
		if err != nil {
			log.WithError(err).WithField("passage", s).Debug("skipping passage")
			skipped = append(skipped, s)
			continue
		}
		content, _, err := r.apiBible.FetchPassage(ctx, t.ID, ref, format)
		if err != nil {
			log.WithError(err).WithField("passage", s).Debug("skipping passage")
			skipped = append(skipped, s)
			continue
		}
		texts = append(texts, content)
		resolved = append(resolved, s)
	}
	if len(texts) == 0 {
		return Passage{}, errors.Wrapf(ErrUpstream, "no passage of %d resolved in %s", len(passages), t.ID)
	}
	return Passage{
		Passages:    passages,
		Content:     strings.Join(texts, "\n\n"),
		Texts:       texts,
		Reference:   FormatReference(resolved),
		Translation: t.Abbreviation,
		BibleID:     t.ID,
		Source:      SourceAPIBible,
		Skipped:     skipped,
	}, nil
}

func placeholder(passages []string, t Translation) Passage {
	text := PlaceholderText(passages)
	return Passage{
		Passages:    passages,
		Content:     text,
		Texts:       []string{text},
		Reference:   FormatReference(passages),
		Translation: t.Abbreviation,
		BibleID:     t.ID,
		Source:      SourcePlaceholder,
	}
}

// PlaceholderText stands in for scripture when no provider is reachable.
func PlaceholderText(passages []string) string {
	return fmt.Sprintf("[Scripture text for %s is temporarily unavailable. "+
		"This placeholder is shown while the Bible text service cannot be reached; "+
		"please open the passage in your own Bible and try again later.]",
		strings.Join(passages, ", "))
}

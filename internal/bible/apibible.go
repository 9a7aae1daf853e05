package bible

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// StripHTML removes tags and collapses whitespace.
func StripHTML(s string) string {
	s = htmlTag.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// APIBibleClient talks to API.Bible, which serves one passage per request
// and lists the available bibles.
type APIBibleClient struct {
	baseURL string
	apiKey  string
	http    httpClient
}

type bibleSummary struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Abbreviation     string   `json:"abbreviation"`
	Description      string   `json:"description"`
	DescriptionLocal string   `json:"descriptionLocal"`
	Language         Language `json:"language"`
	Type             string   `json:"type"`
	UpdatedAt        string   `json:"updatedAt"`
}

type passageData struct {
	Content   string `json:"content"`
	Reference string `json:"reference"`
}

func NewAPIBibleClient(baseURL, apiKey string, rps float64, observe RequestObserver) *APIBibleClient {
	return &APIBibleClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    newHTTPClient("api_bible", rps, observe),
	}
}

func (c *APIBibleClient) header() http.Header {
	h := http.Header{}
	h.Set("api-key", c.apiKey)
	return h
}

// ListEnglishTranslations returns the English bibles, categorised.
func (c *APIBibleClient) ListEnglishTranslations(ctx context.Context) ([]Translation, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(ErrUpstream, "api_bible: no api key configured")
	}
	var body struct {
		Data []bibleSummary `json:"data"`
	}
	if err := c.http.getJSON(ctx, c.baseURL+"/bibles", c.header(), &body); err != nil {
		return nil, err
	}
	out := make([]Translation, 0, len(body.Data))
	for _, b := range body.Data {
		if b.Language.ID != "eng" {
			continue
		}
		desc := b.Description
		if desc == "" {
			desc = b.DescriptionLocal
		}
		out = append(out, Translation{
			ID:           b.ID,
			Name:         b.Name,
			Abbreviation: b.Abbreviation,
			Language:     b.Language,
			Description:  desc,
			Category:     Categorize(b.ID, b.Abbreviation, b.Name),
			Source:       SourceAPIBible,
			Type:         b.Type,
			UpdatedAt:    b.UpdatedAt,
		})
	}
	return out, nil
}

// FetchPassage loads one passage by its provider id. In text format the
// HTML content is flattened.
func (c *APIBibleClient) FetchPassage(ctx context.Context, bibleID string, ref Reference, format string) (content, reference string, err error) {
	if c.apiKey == "" {
		return "", "", errors.Wrap(ErrUpstream, "api_bible: no api key configured")
	}
	u := c.baseURL + "/bibles/" + url.PathEscape(bibleID) + "/passages/" + url.PathEscape(ref.ProviderID())
	var body struct {
		Data passageData `json:"data"`
	}
	if err := c.http.getJSON(ctx, u, c.header(), &body); err != nil {
		return "", "", err
	}
	content = body.Data.Content
	if format != "html" {
		content = StripHTML(content)
	}
	reference = body.Data.Reference
	if reference == "" {
		reference = ref.String()
	}
	return content, reference, nil
}

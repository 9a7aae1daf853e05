package bible

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ESVClient talks to the ESV API, which accepts several references in one
// semicolon-joined query.
type ESVClient struct {
	baseURL string
	apiKey  string
	http    httpClient
}

type ESVResponse struct {
	Query     string   `json:"query"`
	Canonical string   `json:"canonical"`
	Passages  []string `json:"passages"`
}

func NewESVClient(baseURL, apiKey string, rps float64, observe RequestObserver) *ESVClient {
	return &ESVClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    newHTTPClient("esv", rps, observe),
	}
}

// Fetch returns the passages for all refs in one call. format is "text" or
// "html".
func (c *ESVClient) Fetch(ctx context.Context, refs []string, format string) (*ESVResponse, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(ErrUpstream, "esv: no api key configured")
	}
	endpoint := "/passage/text"
	if format == "html" {
		endpoint = "/passage/html"
	}
	u := c.baseURL + endpoint + "?q=" + url.QueryEscape(strings.Join(refs, ";"))
	header := http.Header{}
	header.Set("Authorization", "Token "+c.apiKey)

	var out ESVResponse
	if err := c.http.getJSON(ctx, u, header, &out); err != nil {
		return nil, err
	}
	if len(out.Passages) == 0 {
		return nil, errors.Wrap(ErrUpstream, "esv: empty passages")
	}
	return &out, nil
}

package bible

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrUpstream marks a failed or non-2xx provider call.
var ErrUpstream = errors.New("upstream provider error")

// RequestObserver is told the provider name and outcome ("ok", an HTTP
// status code, or "error") of every outbound call.
type RequestObserver func(provider, status string)

// httpClient is the transport shared by both providers: a rate limit, a
// timeout and JSON decoding.
type httpClient struct {
	provider string
	client   *http.Client
	limiter  *rate.Limiter
	observe  RequestObserver
}

func newHTTPClient(provider string, rps float64, observe RequestObserver) httpClient {
	if rps <= 0 {
		rps = 5
	}
	if observe == nil {
		observe = func(string, string) {}
	}
	return httpClient{
		provider: provider,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		observe:  observe,
	}
}

func (h httpClient) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.observe(h.provider, "error")
		return errors.Wrapf(ErrUpstream, "%s: %v", h.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.observe(h.provider, strconv.Itoa(resp.StatusCode))
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Wrapf(ErrUpstream, "%s: status %d: %s", h.provider, resp.StatusCode, body)
	}
	h.observe(h.provider, "ok")
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(ErrUpstream, "%s: decode: %v", h.provider, err)
	}
	return nil
}

package bible

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CatalogSource fetches the raw English translation list from upstream.
type CatalogSource interface {
	ListEnglishTranslations(ctx context.Context) ([]Translation, error)
}

// Clock is injected so tests control cache age.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CacheObserver receives one of "hit", "miss", "refresh" or "error" per Get.
type CacheObserver func(result string)

// TranslationCache is a cache-aside wrapper around the translation catalog.
// A fresh entry is returned as the same slice until it is older than ttl.
// Concurrent misses share one upstream fetch. A failed fetch is replayed to
// callers for failureTTL before upstream is tried again.
type TranslationCache struct {
	source  CatalogSource
	ttl     time.Duration
	clock   Clock
	observe CacheObserver

	mu        sync.RWMutex
	list      []Translation
	fetchedAt time.Time
	group     singleflight.Group

	failureTTL time.Duration
	lastErr    error
	failedAt   time.Time
}

const (
	defaultFailureTTL = time.Minute
	fetchTimeout      = 30 * time.Second
)

type CacheOption func(*TranslationCache)

func WithClock(c Clock) CacheOption {
	return func(tc *TranslationCache) { tc.clock = c }
}

func WithObserver(o CacheObserver) CacheOption {
	return func(tc *TranslationCache) { tc.observe = o }
}

// WithFailureTTL sets how long a failed fetch is served before retrying.
func WithFailureTTL(d time.Duration) CacheOption {
	return func(tc *TranslationCache) { tc.failureTTL = d }
}

func NewTranslationCache(source CatalogSource, ttl time.Duration, opts ...CacheOption) *TranslationCache {
	tc := &TranslationCache{
		source:     source,
		ttl:        ttl,
		clock:      systemClock{},
		observe:    func(string) {},
		failureTTL: defaultFailureTTL,
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

func (tc *TranslationCache) fresh() ([]Translation, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.list != nil && tc.clock.Now().Sub(tc.fetchedAt) < tc.ttl {
		return tc.list, true
	}
	return nil, false
}

// Get returns the catalog, fetching it when the cached copy is missing,
// expired, or forceRefresh is set. On upstream failure it returns an empty
// list together with the error; the failure is remembered for failureTTL
// unless forceRefresh is set.
//
// The shared fetch runs detached from any single caller, so one caller
// going away does not fail the others waiting on the same flight.
func (tc *TranslationCache) Get(ctx context.Context, forceRefresh bool) ([]Translation, error) {
	if !forceRefresh {
		if list, ok := tc.fresh(); ok {
			tc.observe("hit")
			return list, nil
		}
		if err := tc.recentFailure(); err != nil {
			tc.observe("error")
			return []Translation{}, err
		}
	}

	key := "catalog"
	if forceRefresh {
		key = "catalog-refresh"
	}
	ch := tc.group.DoChan(key, func() (any, error) {
		if !forceRefresh {
			if list, ok := tc.fresh(); ok {
				return list, nil
			}
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		raw, err := tc.source.ListEnglishTranslations(fetchCtx)
		tc.mu.Lock()
		defer tc.mu.Unlock()
		if err != nil {
			tc.lastErr = err
			tc.failedAt = tc.clock.Now()
			return nil, err
		}
		list := BuildCatalog(raw)
		tc.list = list
		tc.fetchedAt = tc.clock.Now()
		tc.lastErr = nil
		return list, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		tc.observe("error")
		return []Translation{}, ctx.Err()
	}
	if res.Err != nil {
		tc.observe("error")
		return []Translation{}, res.Err
	}
	if forceRefresh {
		tc.observe("refresh")
	} else {
		tc.observe("miss")
	}
	return res.Val.([]Translation), nil
}

func (tc *TranslationCache) recentFailure() error {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.lastErr != nil && tc.clock.Now().Sub(tc.failedAt) < tc.failureTTL {
		return tc.lastErr
	}
	return nil
}

// Lookup finds id in the catalog. When the catalog cannot be loaded the
// fallback list is searched instead.
func (tc *TranslationCache) Lookup(ctx context.Context, id string) (Translation, bool) {
	list, err := tc.Get(ctx, false)
	if err != nil || len(list) == 0 {
		list = FallbackTranslations()
	}
	return FindTranslation(list, id)
}

// Clear drops the cached catalog so the next Get fetches again.
func (tc *TranslationCache) Clear() {
	tc.mu.Lock()
	tc.list = nil
	tc.fetchedAt = time.Time{}
	tc.lastErr = nil
	tc.mu.Unlock()
}

// FetchedAt is the time of the last successful fetch, zero if none.
func (tc *TranslationCache) FetchedAt() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.fetchedAt
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"gig-match/internal/domain/match"
	"gig-match/internal/domain/provider"

	"github.com/google/uuid"
)

type memCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{items: map[string][]byte{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func (c *memCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = b
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

type serviceFixture struct {
	stores
	cache    *memCache
	notifier *recordingNotifier
	svc      *Matching
}

func newServiceFixture() serviceFixture {
	s := newStores()
	c := newMemCache()
	n := &recordingNotifier{}
	svc := NewMatchingUsecase(MatchingDeps{
		Jobs:      s.jobs,
		Providers: s.providers,
		Matches:   s.matches,
		Cache:     c,
		Notifier:  n,
	})
	svc.now = fixedClock
	svc.generator.now = fixedClock
	svc.lifecycle.now = fixedClock
	return serviceFixture{stores: s, cache: c, notifier: n, svc: svc}
}

func TestGenerateForJob_PersistsAndNotifies(t *testing.T) {
	f := newServiceFixture()
	j := testJob("pet_care")
	a := testProvider(77.601, 12.971, "pet_care")
	b := testProvider(77.62, 12.98, "pet_care")
	f.seed(t, j, []provider.Provider{a, b}, nil)

	ms, err := f.svc.GenerateForJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(ms))
	}
	stored, _ := f.stores.matches.GetByJobID(context.Background(), j.ID)
	if len(stored) != 2 {
		t.Fatalf("expected matches persisted, got %d", len(stored))
	}
	if len(f.notifier.created) != 1 || len(f.notifier.created[0]) != 2 {
		t.Fatalf("expected one notification with both matches")
	}

	// A second run only adds providers that are new to the job.
	c := testProvider(77.6, 12.975, "pet_care")
	if err := f.stores.providers.Create(context.Background(), c); err != nil {
		t.Fatalf("create provider: %v", err)
	}
	again, err := f.svc.GenerateForJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if len(again) != 1 || again[0].ProviderID != c.ID {
		t.Fatalf("expected only the new provider, got %d", len(again))
	}
}

func TestGenerateForJob_Refusals(t *testing.T) {
	f := newServiceFixture()
	if _, err := f.svc.GenerateForJob(context.Background(), uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	j := testJob("pet_care")
	p := testProvider(77.6, 12.97, "pet_care")
	m := pendingMatch(j, p, 0.9)
	f.seed(t, j, []provider.Provider{p}, []match.Match{m})
	if _, err := f.svc.Accept(context.Background(), m.ID, p.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := f.svc.GenerateForJob(context.Background(), j.ID); !errors.Is(err, ErrJobNotAssignable) {
		t.Fatalf("expected ErrJobNotAssignable for an assigned job, got %v", err)
	}
}

func TestGenerateForJob_NoCategoriesIsEmpty(t *testing.T) {
	f := newServiceFixture()
	j := testJob()
	f.seed(t, j, []provider.Provider{testProvider(77.6, 12.97, "pet_care")}, nil)

	ms, err := f.svc.GenerateForJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(ms) != 0 || len(f.notifier.created) != 0 {
		t.Fatalf("expected no matches and no notification")
	}
}

func TestPendingForProvider_CacheLifecycle(t *testing.T) {
	f := newServiceFixture()
	j := testJob("pet_care")
	p := testProvider(77.6, 12.97, "pet_care")
	other := testProvider(77.6, 12.97, "pet_care")
	m := pendingMatch(j, p, 0.9)
	sib := pendingMatch(j, other, 0.8)
	f.seed(t, j, []provider.Provider{p, other}, []match.Match{m, sib})
	ctx := context.Background()

	got, err := f.svc.PendingForProvider(ctx, p.ID)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(got) != 1 || got[0].ID != m.ID {
		t.Fatalf("expected the provider's pending match")
	}
	if !f.cache.has(pendingCacheKey(p.ID)) {
		t.Fatalf("expected pending list cached")
	}
	if _, err := f.svc.PendingForProvider(ctx, other.ID); err != nil {
		t.Fatalf("pending other: %v", err)
	}

	if _, err := f.svc.Accept(ctx, m.ID, p.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if f.cache.has(pendingCacheKey(p.ID)) || f.cache.has(pendingCacheKey(other.ID)) {
		t.Fatalf("accept must invalidate the winner's and the declined sibling's cache")
	}
	if len(f.notifier.accepted) != 1 || len(f.notifier.declined[0]) != 1 {
		t.Fatalf("expected accept notification with one declined sibling")
	}

	got, err = f.svc.PendingForProvider(ctx, other.ID)
	if err != nil {
		t.Fatalf("pending after accept: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("declined sibling must not be pending, got %d", len(got))
	}
}

func TestPendingForProvider_FiltersExpiredCacheEntries(t *testing.T) {
	f := newServiceFixture()
	j := testJob("pet_care")
	p := testProvider(77.6, 12.97, "pet_care")
	m := pendingMatch(j, p, 0.9)
	f.seed(t, j, []provider.Provider{p}, []match.Match{m})
	ctx := context.Background()

	if _, err := f.svc.PendingForProvider(ctx, p.ID); err != nil {
		t.Fatalf("pending: %v", err)
	}
	f.svc.now = func() time.Time { return m.ExpiresAt.Add(time.Minute) }
	got, err := f.svc.PendingForProvider(ctx, p.ID)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expired cached match must be filtered, got %d", len(got))
	}
}

func TestPendingForProvider_UnknownProvider(t *testing.T) {
	f := newServiceFixture()
	if _, err := f.svc.PendingForProvider(context.Background(), uuid.New()); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestSweep_InvalidatesAndNotifies(t *testing.T) {
	f := newServiceFixture()
	j := testJob("pet_care")
	p := testProvider(77.6, 12.97, "pet_care")
	m := pendingMatch(j, p, 0.9)
	m.ExpiresAt = fixedNow.Add(-time.Second)
	f.seed(t, j, []provider.Provider{p}, []match.Match{m})

	expired, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired, got %d", len(expired))
	}
	if len(f.notifier.expired) != 1 {
		t.Fatalf("expected expiry notification")
	}
	found := false
	for _, k := range f.cache.deleted {
		if k == pendingCacheKey(p.ID) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected pending cache invalidated for %s", p.ID)
	}
}

func TestAuthorizeProvider(t *testing.T) {
	f := newServiceFixture()
	j := testJob("pet_care")
	p := testProvider(77.6, 12.97, "pet_care")
	f.seed(t, j, []provider.Provider{p}, nil)
	ctx := context.Background()

	if err := f.svc.AuthorizeProvider(ctx, p.ID, p.UserID); err != nil {
		t.Fatalf("owner should be authorized: %v", err)
	}
	if err := f.svc.AuthorizeProvider(ctx, p.ID, uuid.New()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.svc.AuthorizeProvider(ctx, uuid.New(), p.UserID); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestAuthorizeRequester(t *testing.T) {
	f := newServiceFixture()
	j := testJob("pet_care")
	f.seed(t, j, nil, nil)
	ctx := context.Background()

	if err := f.svc.AuthorizeRequester(ctx, j.ID, j.RequesterID); err != nil {
		t.Fatalf("requester should be authorized: %v", err)
	}
	if err := f.svc.AuthorizeRequester(ctx, j.ID, uuid.New()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.svc.AuthorizeRequester(ctx, uuid.New(), j.RequesterID); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMatchesForJob(t *testing.T) {
	f := newServiceFixture()
	j := testJob("pet_care")
	p := testProvider(77.6, 12.97, "pet_care")
	f.seed(t, j, []provider.Provider{p}, []match.Match{pendingMatch(j, p, 0.5)})

	ms, err := f.svc.MatchesForJob(context.Background(), j.ID)
	if err != nil || len(ms) != 1 {
		t.Fatalf("expected one match, got %d (%v)", len(ms), err)
	}
	if _, err := f.svc.MatchesForJob(context.Background(), uuid.New()); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

package memory

import (
	"context"
	"sort"
	"sync"

	"gig-match/internal/domain/geo"
	"gig-match/internal/domain/matching"
	"gig-match/internal/domain/provider"
	"gig-match/internal/repository"

	"github.com/google/uuid"
)

type ProviderStore struct {
	mu        sync.RWMutex
	providers map[uuid.UUID]provider.Provider
}

func NewProviderStore() *ProviderStore {
	return &ProviderStore{providers: make(map[uuid.UUID]provider.Provider)}
}

var _ repository.ProviderRepository = (*ProviderStore)(nil)

func (s *ProviderStore) Create(ctx context.Context, p provider.Provider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ID] = p
	return nil
}

func (s *ProviderStore) GetByID(ctx context.Context, id uuid.UUID) (provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[id]
	if !ok {
		return provider.Provider{}, repository.ErrProviderNotFound
	}
	return p, nil
}

// FindActiveBySkillAndLocation mirrors the Postgres query: bounding box,
// category overlap and is_active, oldest first.
func (s *ProviderStore) FindActiveBySkillAndLocation(ctx context.Context, categories []string, lon, lat, radiusKm float64) ([]provider.Provider, error) {
	out := make([]provider.Provider, 0)
	wanted := matching.NormalizeCategories(categories)
	if len(wanted) == 0 {
		return out, nil
	}
	box := geo.BoundingBox(geo.NewPoint(lon, lat), radiusKm)

	s.mu.RLock()
	for _, p := range s.providers {
		if !p.IsActive || !box.Contains(p.Location) {
			continue
		}
		if !overlaps(wanted, matching.NormalizeCategories(p.SkillCategories)) {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func overlaps(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

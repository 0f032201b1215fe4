package usecase

import (
	"context"
	"fmt"

	"gig-match/internal/domain/geo"
	"gig-match/internal/domain/job"
	"gig-match/internal/domain/matching"
	"gig-match/internal/domain/provider"
	"gig-match/internal/repository"
)

// DefaultQueryRadiusKm is the coarse radius handed to the provider store.
// Bounding boxes are imprecise, so it is wider than the matching radius.
const DefaultQueryRadiusKm = 1.5 * matching.MaxRadiusKm

// Candidate is a provider that passed every exclusion rule, with its exact
// distance to the job.
type Candidate struct {
	Provider   provider.Provider
	DistanceKm float64
}

type CandidateFinder struct {
	providers     repository.ProviderRepository
	queryRadiusKm float64
}

// NewCandidateFinder clamps queryRadiusKm to at least MaxRadiusKm; zero picks
// DefaultQueryRadiusKm.
func NewCandidateFinder(providers repository.ProviderRepository, queryRadiusKm float64) *CandidateFinder {
	if queryRadiusKm <= 0 {
		queryRadiusKm = DefaultQueryRadiusKm
	}
	if queryRadiusKm < matching.MaxRadiusKm {
		queryRadiusKm = matching.MaxRadiusKm
	}
	return &CandidateFinder{providers: providers, queryRadiusKm: queryRadiusKm}
}

// FindCandidates returns the providers eligible for j in store order. A job
// without skill categories never reaches the store.
func (f *CandidateFinder) FindCandidates(ctx context.Context, j job.Job) ([]Candidate, error) {
	if len(j.SkillCategories) == 0 {
		return []Candidate{}, nil
	}

	found, err := f.providers.FindActiveBySkillAndLocation(ctx,
		j.SkillCategories, j.Location.Longitude, j.Location.Latitude, f.queryRadiusKm)
	if err != nil {
		return nil, fmt.Errorf("find providers for job %s: %w", j.ID, err)
	}

	out := make([]Candidate, 0, len(found))
	for _, p := range found {
		if !p.IsActive {
			continue
		}
		if p.UserID == j.RequesterID {
			continue
		}
		d := geo.Between(j.Location, p.Location)
		if d > matching.MaxRadiusKm {
			continue
		}
		out = append(out, Candidate{Provider: p, DistanceKm: d})
	}
	return out, nil
}

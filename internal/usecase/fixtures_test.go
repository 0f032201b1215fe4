package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"gig-match/internal/domain/geo"
	"gig-match/internal/domain/job"
	"gig-match/internal/domain/match"
	"gig-match/internal/domain/provider"
	"gig-match/internal/repository"
	"gig-match/internal/repository/memory"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// Bangalore, the reference scenario location.
var jobSite = geo.NewPoint(77.59, 12.97)

func testJob(categories ...string) job.Job {
	return job.Job{
		ID:              uuid.New(),
		RequesterID:     uuid.New(),
		RequesterName:   "Ravi",
		Title:           "Walk my dog",
		Description:     "Two walks a day",
		SkillCategories: categories,
		Location:        jobSite,
		Status:          job.StatusOpen,
		CreatedAt:       fixedNow,
		UpdatedAt:       fixedNow,
	}
}

var providerSeq atomic.Int64

func testProvider(lon, lat float64, categories ...string) provider.Provider {
	n := providerSeq.Add(1)
	return provider.Provider{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Name:            "Provider",
		SkillCategories: categories,
		Location:        geo.NewPoint(lon, lat),
		Rating:          4.5,
		TotalRatings:    10,
		IsActive:        true,
		CreatedAt:       fixedNow.Add(time.Duration(n) * time.Millisecond),
	}
}

func pendingMatch(j job.Job, p provider.Provider, score float64) match.Match {
	return match.Match{
		ID:         uuid.New(),
		JobID:      j.ID,
		ProviderID: p.ID,
		Snapshot: match.Snapshot{
			JobTitle:      j.Title,
			RequesterID:   j.RequesterID,
			RequesterName: j.RequesterName,
			ProviderName:  p.Name,
		},
		MatchScore: score,
		Status:     match.StatusPending,
		ExpiresAt:  fixedNow.Add(30 * time.Minute),
		CreatedAt:  fixedNow,
		Version:    1,
	}
}

type stores struct {
	jobs      *memory.JobStore
	providers *memory.ProviderStore
	matches   *memory.MatchStore
}

func newStores() stores {
	return stores{
		jobs:      memory.NewJobStore(),
		providers: memory.NewProviderStore(),
		matches:   memory.NewMatchStore(),
	}
}

func (s stores) seed(t *testing.T, j job.Job, ps []provider.Provider, ms []match.Match) {
	t.Helper()
	ctx := context.Background()
	if err := s.jobs.Create(ctx, j); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	for _, p := range ps {
		if err := s.providers.Create(ctx, p); err != nil {
			t.Fatalf("seed provider: %v", err)
		}
	}
	if err := s.matches.CreateBatch(ctx, ms); err != nil {
		t.Fatalf("seed matches: %v", err)
	}
}

// countingProviders records whether the store was queried at all.
type countingProviders struct {
	repository.ProviderRepository
	calls  atomic.Int64
	radius float64
}

func (c *countingProviders) FindActiveBySkillAndLocation(ctx context.Context, categories []string, lon, lat, radiusKm float64) ([]provider.Provider, error) {
	c.calls.Add(1)
	c.radius = radiusKm
	return c.ProviderRepository.FindActiveBySkillAndLocation(ctx, categories, lon, lat, radiusKm)
}

// staticProviders returns a fixed list, the way a sloppy coarse query might.
type staticProviders struct {
	repository.ProviderRepository
	list []provider.Provider
	err  error
}

func (s staticProviders) FindActiveBySkillAndLocation(context.Context, []string, float64, float64, float64) ([]provider.Provider, error) {
	return s.list, s.err
}

type recordingNotifier struct {
	created  [][]match.Match
	accepted []match.Match
	declined [][]match.Match
	expired  [][]match.Match
}

func (n *recordingNotifier) MatchesCreated(ms []match.Match) { n.created = append(n.created, ms) }
func (n *recordingNotifier) MatchAccepted(m match.Match, declined []match.Match) {
	n.accepted = append(n.accepted, m)
	n.declined = append(n.declined, declined)
}
func (n *recordingNotifier) MatchesExpired(ms []match.Match) { n.expired = append(n.expired, ms) }

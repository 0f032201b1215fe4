package usecase

import (
	"context"
	"sort"
	"time"

	"gig-match/internal/domain/job"
	"gig-match/internal/domain/match"
	"gig-match/internal/domain/matching"

	"github.com/google/uuid"
)

const DefaultMatchTTL = 30 * time.Minute

type candidateSource interface {
	FindCandidates(ctx context.Context, j job.Job) ([]Candidate, error)
}

// MatchGenerator turns the candidates of a job into ranked, unsaved pending
// matches. It never writes; persisting is up to the caller.
type MatchGenerator struct {
	finder candidateSource
	ttl    time.Duration
	now    func() time.Time
	newID  func() uuid.UUID
}

func NewMatchGenerator(finder candidateSource, ttl time.Duration) *MatchGenerator {
	if ttl <= 0 {
		ttl = DefaultMatchTTL
	}
	return &MatchGenerator{finder: finder, ttl: ttl, now: time.Now, newID: uuid.New}
}

func (g *MatchGenerator) GenerateMatches(ctx context.Context, j job.Job) ([]match.Match, error) {
	candidates, err := g.finder.FindCandidates(ctx, j)
	if err != nil {
		return nil, err
	}

	now := g.now().UTC()
	type scored struct {
		m     match.Match
		total float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score := matching.Calculate(j, c.Provider, c.DistanceKm)
		if score.Total < matching.MinMatchThreshold {
			continue
		}

		m := match.Match{
			ID:         g.newID(),
			JobID:      j.ID,
			ProviderID: c.Provider.ID,
			Snapshot: match.Snapshot{
				JobTitle:       j.Title,
				JobDescription: j.Description,
				RequesterID:    j.RequesterID,
				RequesterName:  j.RequesterName,
				ProviderName:   c.Provider.Name,
				ProviderRating: c.Provider.Rating,
			},
			Scores: match.Scores{
				Skill:        matching.Round2(score.Skill),
				Distance:     matching.Round2(score.Distance),
				Rating:       matching.Round2(score.Rating),
				Availability: matching.Round2(score.Availability),
			},
			MatchScore: matching.Round2(score.Total),
			DistanceKm: matching.Round2(c.DistanceKm),
			Status:     match.StatusPending,
			ExpiresAt:  now.Add(g.ttl),
			CreatedAt:  now,
			Version:    1,
		}
		ranked = append(ranked, scored{m: m, total: score.Total})
	}

	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].total > ranked[b].total })

	out := make([]match.Match, len(ranked))
	for i, r := range ranked {
		out[i] = r.m
	}
	return out, nil
}

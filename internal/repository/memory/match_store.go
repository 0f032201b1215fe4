// Package memory holds thread-safe in-process implementations of the
// repository interfaces. They back the memory store mode and the tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gig-match/internal/domain/match"
	"gig-match/internal/repository"

	"github.com/google/uuid"
)

type MatchStore struct {
	mu      sync.RWMutex
	matches map[uuid.UUID]match.Match
}

func NewMatchStore() *MatchStore {
	return &MatchStore{matches: make(map[uuid.UUID]match.Match)}
}

var _ repository.MatchRepository = (*MatchStore)(nil)

func (s *MatchStore) Create(ctx context.Context, m match.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(m)
}

func (s *MatchStore) CreateBatch(ctx context.Context, ms []match.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	type pair struct{ job, provider uuid.UUID }
	ids := make(map[uuid.UUID]struct{}, len(ms))
	pairs := make(map[pair]struct{}, len(ms))
	accepted := make(map[uuid.UUID]struct{})
	for _, m := range ms {
		if err := s.checkInsertLocked(m); err != nil {
			return err
		}
		if _, dup := ids[m.ID]; dup {
			return fmt.Errorf("create match %s: duplicate id", m.ID)
		}
		ids[m.ID] = struct{}{}
		k := pair{m.JobID, m.ProviderID}
		if _, dup := pairs[k]; dup {
			return fmt.Errorf("create match %s: provider %s already matched to job %s", m.ID, m.ProviderID, m.JobID)
		}
		pairs[k] = struct{}{}
		if m.Status == match.StatusAccepted {
			if _, dup := accepted[m.JobID]; dup {
				return repository.ErrAcceptedMatchExists
			}
			accepted[m.JobID] = struct{}{}
		}
	}
	for _, m := range ms {
		s.matches[m.ID] = m
	}
	return nil
}

func (s *MatchStore) Update(ctx context.Context, m match.Match) (match.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(m)
}

func (s *MatchStore) UpdateBatch(ctx context.Context, ms []match.Match) ([]match.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := make([]match.Match, 0, len(ms))
	for _, m := range ms {
		out, err := s.updateLocked(m)
		switch err {
		case nil:
			applied = append(applied, out)
		case repository.ErrVersionConflict, repository.ErrMatchNotFound:
			continue
		default:
			return nil, err
		}
	}
	return applied, nil
}

func (s *MatchStore) GetByID(ctx context.Context, id uuid.UUID) (match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return match.Match{}, repository.ErrMatchNotFound
	}
	return m, nil
}

func (s *MatchStore) GetByJobID(ctx context.Context, jobID uuid.UUID) ([]match.Match, error) {
	return s.filter(func(m match.Match) bool { return m.JobID == jobID }), nil
}

func (s *MatchStore) GetPendingByProviderID(ctx context.Context, providerID uuid.UUID, now time.Time) ([]match.Match, error) {
	return s.filter(func(m match.Match) bool {
		return m.ProviderID == providerID && m.IsPending() && m.ExpiresAt.After(now)
	}), nil
}

func (s *MatchStore) ExpirePending(ctx context.Context, now time.Time, limit int) ([]match.Match, error) {
	if limit <= 0 {
		limit = 500
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]match.Match, 0)
	for _, m := range s.matches {
		if m.IsPending() && m.IsExpired(now) {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	for i := range due {
		due[i].Status = match.StatusExpired
		due[i].Version++
		s.matches[due[i].ID] = due[i]
	}
	return due, nil
}

func (s *MatchStore) filter(keep func(match.Match) bool) []match.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]match.Match, 0)
	for _, m := range s.matches {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *MatchStore) insertLocked(m match.Match) error {
	if err := s.checkInsertLocked(m); err != nil {
		return err
	}
	s.matches[m.ID] = m
	return nil
}

func (s *MatchStore) checkInsertLocked(m match.Match) error {
	if m.ID == uuid.Nil || m.JobID == uuid.Nil || m.ProviderID == uuid.Nil {
		return fmt.Errorf("create match: missing identifiers")
	}
	if _, exists := s.matches[m.ID]; exists {
		return fmt.Errorf("create match %s: duplicate id", m.ID)
	}
	for _, other := range s.matches {
		if other.JobID == m.JobID && other.ProviderID == m.ProviderID {
			return fmt.Errorf("create match %s: provider %s already matched to job %s", m.ID, m.ProviderID, m.JobID)
		}
	}
	if m.Status == match.StatusAccepted && s.hasAcceptedLocked(m.JobID, m.ID) {
		return repository.ErrAcceptedMatchExists
	}
	return nil
}

func (s *MatchStore) updateLocked(m match.Match) (match.Match, error) {
	stored, ok := s.matches[m.ID]
	if !ok {
		return match.Match{}, repository.ErrMatchNotFound
	}
	if stored.Version != m.Version {
		return match.Match{}, repository.ErrVersionConflict
	}
	if m.Status == match.StatusAccepted && s.hasAcceptedLocked(stored.JobID, stored.ID) {
		return match.Match{}, repository.ErrAcceptedMatchExists
	}

	stored.Status = m.Status
	stored.RespondedAt = m.RespondedAt
	stored.Version++
	s.matches[stored.ID] = stored
	return stored, nil
}

func (s *MatchStore) hasAcceptedLocked(jobID, except uuid.UUID) bool {
	for _, other := range s.matches {
		if other.JobID == jobID && other.ID != except && other.Status == match.StatusAccepted {
			return true
		}
	}
	return false
}

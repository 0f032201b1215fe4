package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gig-match/internal/domain/job"
	"gig-match/internal/domain/match"
	"gig-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Acceptance is the full outcome of a successful accept.
type Acceptance struct {
	Match    match.Match
	Job      job.Job
	Declined []match.Match
}

// MatchLifecycle moves existing matches out of Pending. Accepts of one job
// run one at a time under the JobLocker, and every write is conditional on
// the match version, so a job never ends up with two accepted matches.
type MatchLifecycle struct {
	matches   repository.MatchRepository
	providers repository.ProviderRepository
	jobs      repository.JobRepository
	locker    JobLocker
	log       *zap.Logger
	now       func() time.Time
}

func NewMatchLifecycle(
	matches repository.MatchRepository,
	providers repository.ProviderRepository,
	jobs repository.JobRepository,
	locker JobLocker,
	log *zap.Logger,
) *MatchLifecycle {
	if locker == nil {
		locker = NewLocalJobLocker()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MatchLifecycle{
		matches:   matches,
		providers: providers,
		jobs:      jobs,
		locker:    locker,
		log:       log,
		now:       time.Now,
	}
}

func (l *MatchLifecycle) Accept(ctx context.Context, matchID, providerID uuid.UUID) (match.Match, error) {
	out, err := l.AcceptDetailed(ctx, matchID, providerID)
	if err != nil {
		return match.Match{}, err
	}
	return out.Match, nil
}

func (l *MatchLifecycle) AcceptDetailed(ctx context.Context, matchID, providerID uuid.UUID) (Acceptance, error) {
	m, err := l.loadOwned(ctx, matchID, providerID)
	if err != nil {
		return Acceptance{}, err
	}

	unlock, err := l.locker.Lock(ctx, m.JobID)
	if err != nil {
		if errors.Is(err, ErrJobBusy) {
			return Acceptance{}, err
		}
		return Acceptance{}, fmt.Errorf("lock job %s: %w", m.JobID, err)
	}
	defer unlock()

	// A concurrent winner may have declined this match while we waited.
	m, err = l.loadOwned(ctx, matchID, providerID)
	if err != nil {
		return Acceptance{}, err
	}

	now := l.now().UTC()
	if m.IsExpired(now) {
		return Acceptance{}, l.expire(ctx, m)
	}

	siblings, err := l.matches.GetByJobID(ctx, m.JobID)
	if err != nil {
		return Acceptance{}, err
	}
	for _, s := range siblings {
		if s.ID != m.ID && s.Status == match.StatusAccepted {
			// Left behind by an interrupted cascade; finish it for this match.
			l.declineLeftover(ctx, m, now)
			return Acceptance{}, ErrJobAlreadyAssigned
		}
	}

	p, err := l.providers.GetByID(ctx, m.ProviderID)
	if err != nil {
		if errors.Is(err, repository.ErrProviderNotFound) {
			return Acceptance{}, ErrProviderNotFound
		}
		return Acceptance{}, err
	}
	j, err := l.jobs.GetByID(ctx, m.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return Acceptance{}, ErrJobNotFound
		}
		return Acceptance{}, err
	}
	if !j.Status.CanAssign() {
		return Acceptance{}, ErrJobNotAssignable
	}

	if err := m.Accept(now); err != nil {
		return Acceptance{}, ErrMatchNotPending
	}
	accepted, err := l.matches.Update(ctx, m)
	if err != nil {
		return Acceptance{}, translateWriteErr(err)
	}

	assigned, err := l.jobs.AssignProvider(ctx, j.ID, p.ID, p.Name)
	if err != nil {
		l.log.Error("[Matching] job assignment failed after accept",
			zap.String("match_id", accepted.ID.String()),
			zap.String("job_id", j.ID.String()),
			zap.Error(err),
		)
		l.revertAccept(ctx, accepted)
		switch {
		case errors.Is(err, repository.ErrJobNotFound):
			return Acceptance{}, ErrJobNotFound
		case errors.Is(err, repository.ErrJobNotAssignable):
			return Acceptance{}, ErrJobNotAssignable
		}
		return Acceptance{}, err
	}

	declined, err := l.declineSiblings(ctx, accepted, siblings, now)
	if err != nil {
		// The accept stands. Leftover siblings are caught by the
		// already-accepted check or by expiry.
		l.log.Warn("[Matching] cascade decline incomplete",
			zap.String("job_id", accepted.JobID.String()),
			zap.Error(err),
		)
	}

	l.log.Info("[Matching] match accepted",
		zap.String("match_id", accepted.ID.String()),
		zap.String("job_id", accepted.JobID.String()),
		zap.String("provider_id", accepted.ProviderID.String()),
		zap.Int("declined", len(declined)),
	)
	return Acceptance{Match: accepted, Job: assigned, Declined: declined}, nil
}

func (l *MatchLifecycle) Decline(ctx context.Context, matchID, providerID uuid.UUID) (match.Match, error) {
	m, err := l.loadOwned(ctx, matchID, providerID)
	if err != nil {
		return match.Match{}, err
	}

	if err := m.Decline(l.now()); err != nil {
		return match.Match{}, ErrMatchNotPending
	}
	declined, err := l.matches.Update(ctx, m)
	if err != nil {
		return match.Match{}, translateWriteErr(err)
	}

	l.log.Info("[Matching] match declined",
		zap.String("match_id", declined.ID.String()),
		zap.String("provider_id", declined.ProviderID.String()),
	)
	return declined, nil
}

// loadOwned runs the identity, ownership and state checks shared by every
// transition.
func (l *MatchLifecycle) loadOwned(ctx context.Context, matchID, providerID uuid.UUID) (match.Match, error) {
	m, err := l.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repository.ErrMatchNotFound) {
			return match.Match{}, ErrMatchNotFound
		}
		return match.Match{}, err
	}
	if m.ProviderID != providerID {
		return match.Match{}, ErrNotMatchOwner
	}
	if !m.IsPending() {
		return match.Match{}, ErrMatchNotPending
	}
	return m, nil
}

func (l *MatchLifecycle) expire(ctx context.Context, m match.Match) error {
	if err := m.Expire(); err != nil {
		return ErrMatchNotPending
	}
	if _, err := l.matches.Update(ctx, m); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrMatchNotPending
		}
		return err
	}
	l.log.Info("[Matching] match expired on accept",
		zap.String("match_id", m.ID.String()),
		zap.Time("expires_at", m.ExpiresAt),
	)
	return ErrMatchExpired
}

func (l *MatchLifecycle) declineSiblings(ctx context.Context, accepted match.Match, siblings []match.Match, now time.Time) ([]match.Match, error) {
	batch := make([]match.Match, 0, len(siblings))
	for _, s := range siblings {
		if s.ID == accepted.ID || !s.IsPending() {
			continue
		}
		if err := s.Decline(now); err != nil {
			continue
		}
		batch = append(batch, s)
	}
	if len(batch) == 0 {
		return []match.Match{}, nil
	}
	return l.matches.UpdateBatch(ctx, batch)
}

// revertAccept puts a match whose job could not be assigned back to Pending,
// so the provider can retry and siblings stay acceptable. The write is keyed
// on the version Update returned and survives cancellation of ctx.
func (l *MatchLifecycle) revertAccept(ctx context.Context, accepted match.Match) {
	m := accepted
	m.Status = match.StatusPending
	m.RespondedAt = nil
	if _, err := l.matches.Update(context.WithoutCancel(ctx), m); err != nil {
		l.log.Error("[Matching] revert of unassigned accept failed",
			zap.String("match_id", m.ID.String()),
			zap.String("job_id", m.JobID.String()),
			zap.Error(err),
		)
		return
	}
	l.log.Warn("[Matching] accept reverted to pending",
		zap.String("match_id", m.ID.String()),
		zap.String("job_id", m.JobID.String()),
	)
}

func (l *MatchLifecycle) declineLeftover(ctx context.Context, m match.Match, now time.Time) {
	if err := m.Decline(now); err != nil {
		return
	}
	if _, err := l.matches.Update(ctx, m); err != nil {
		l.log.Warn("[Matching] leftover decline failed",
			zap.String("match_id", m.ID.String()),
			zap.Error(err),
		)
	}
}

func translateWriteErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return ErrMatchNotPending
	case errors.Is(err, repository.ErrAcceptedMatchExists):
		return ErrJobAlreadyAssigned
	case errors.Is(err, repository.ErrMatchNotFound):
		return ErrMatchNotFound
	default:
		return err
	}
}

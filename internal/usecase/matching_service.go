package usecase

import (
	"context"
	"errors"
	"time"

	"gig-match/internal/domain/job"
	"gig-match/internal/domain/match"
	"gig-match/internal/domain/provider"
	"gig-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MatchNotifier receives match events after they are stored. Implementations
// must not block the caller.
type MatchNotifier interface {
	MatchesCreated(ms []match.Match)
	MatchAccepted(m match.Match, declined []match.Match)
	MatchesExpired(ms []match.Match)
}

type MatchingUsecase interface {
	GenerateForJob(ctx context.Context, jobID uuid.UUID) ([]match.Match, error)
	MatchesForJob(ctx context.Context, jobID uuid.UUID) ([]match.Match, error)
	PendingForProvider(ctx context.Context, providerID uuid.UUID) ([]match.Match, error)
	Accept(ctx context.Context, matchID, providerID uuid.UUID) (match.Match, error)
	Decline(ctx context.Context, matchID, providerID uuid.UUID) (match.Match, error)
	Sweep(ctx context.Context) ([]match.Match, error)
	AuthorizeProvider(ctx context.Context, providerID, userID uuid.UUID) error
	AuthorizeRequester(ctx context.Context, jobID, userID uuid.UUID) error
}

type MatchingDeps struct {
	Jobs      repository.JobRepository
	Providers repository.ProviderRepository
	Matches   repository.MatchRepository

	Locker   JobLocker
	Cache    JSONCache
	Notifier MatchNotifier
	Log      *zap.Logger

	MatchTTL        time.Duration
	QueryRadiusKm   float64
	PendingCacheTTL time.Duration
}

// Matching persists what the generator produces, routes provider responses
// into the lifecycle and keeps the pending cache and subscribers in step.
type Matching struct {
	jobs      repository.JobRepository
	providers repository.ProviderRepository
	matches   repository.MatchRepository

	generator *MatchGenerator
	lifecycle *MatchLifecycle
	sweeper   *ExpirySweeper

	cache    JSONCache
	cacheTTL time.Duration
	notifier MatchNotifier
	log      *zap.Logger
	now      func() time.Time
}

var _ MatchingUsecase = (*Matching)(nil)

func NewMatchingUsecase(d MatchingDeps) *Matching {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	cache := d.Cache
	if cache == nil {
		cache = noopCache{}
	}
	cacheTTL := d.PendingCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Matching{
		jobs:      d.Jobs,
		providers: d.Providers,
		matches:   d.Matches,
		generator: NewMatchGenerator(NewCandidateFinder(d.Providers, d.QueryRadiusKm), d.MatchTTL),
		lifecycle: NewMatchLifecycle(d.Matches, d.Providers, d.Jobs, d.Locker, log),
		sweeper:   NewExpirySweeper(d.Matches, log),
		cache:     cache,
		cacheTTL:  cacheTTL,
		notifier:  d.Notifier,
		log:       log,
		now:       time.Now,
	}
}

func (u *Matching) Sweeper() *ExpirySweeper {
	return u.sweeper
}

// GenerateForJob matches a stored job and saves the new matches. Providers
// that already hold a match for the job are skipped, so running it again
// only adds newcomers.
func (u *Matching) GenerateForJob(ctx context.Context, jobID uuid.UUID) ([]match.Match, error) {
	j, err := u.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !j.Status.CanAssign() {
		return nil, ErrJobNotAssignable
	}

	existing, err := u.matches.GetByJobID(ctx, j.ID)
	if err != nil {
		return nil, err
	}
	known := make(map[uuid.UUID]struct{}, len(existing))
	for _, m := range existing {
		if m.Status == match.StatusAccepted {
			return nil, ErrJobAlreadyAssigned
		}
		known[m.ProviderID] = struct{}{}
	}

	generated, err := u.generator.GenerateMatches(ctx, j)
	if err != nil {
		return nil, err
	}

	fresh := make([]match.Match, 0, len(generated))
	for _, m := range generated {
		if _, ok := known[m.ProviderID]; ok {
			continue
		}
		fresh = append(fresh, m)
	}

	if err := u.matches.CreateBatch(ctx, fresh); err != nil {
		return nil, err
	}

	u.log.Info("[Matching] matches generated",
		zap.String("job_id", j.ID.String()),
		zap.Int("generated", len(generated)),
		zap.Int("created", len(fresh)),
	)

	if len(fresh) > 0 {
		u.invalidate(ctx, fresh...)
		if u.notifier != nil {
			u.notifier.MatchesCreated(fresh)
		}
	}
	return fresh, nil
}

func (u *Matching) MatchesForJob(ctx context.Context, jobID uuid.UUID) ([]match.Match, error) {
	if _, err := u.loadJob(ctx, jobID); err != nil {
		return nil, err
	}
	return u.matches.GetByJobID(ctx, jobID)
}

// PendingForProvider serves from cache when possible. Cached entries that
// expired since they were stored are filtered out on read.
func (u *Matching) PendingForProvider(ctx context.Context, providerID uuid.UUID) ([]match.Match, error) {
	if _, err := u.loadProvider(ctx, providerID); err != nil {
		return nil, err
	}

	now := u.now().UTC()
	key := pendingCacheKey(providerID)

	var cached []match.Match
	if hit, err := u.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return stillPending(cached, now), nil
	}

	ms, err := u.matches.GetPendingByProviderID(ctx, providerID, now)
	if err != nil {
		return nil, err
	}
	if err := u.cache.SetJSON(ctx, key, ms, u.cacheTTL); err != nil {
		u.log.Debug("[Matching] pending cache write failed", zap.String("key", key), zap.Error(err))
	}
	return ms, nil
}

func (u *Matching) Accept(ctx context.Context, matchID, providerID uuid.UUID) (match.Match, error) {
	out, err := u.lifecycle.AcceptDetailed(ctx, matchID, providerID)
	if err != nil {
		if errors.Is(err, ErrMatchExpired) || errors.Is(err, ErrJobAlreadyAssigned) {
			u.invalidateProviders(ctx, providerID)
		}
		return match.Match{}, err
	}

	u.invalidate(ctx, append([]match.Match{out.Match}, out.Declined...)...)
	if u.notifier != nil {
		u.notifier.MatchAccepted(out.Match, out.Declined)
	}
	return out.Match, nil
}

func (u *Matching) Decline(ctx context.Context, matchID, providerID uuid.UUID) (match.Match, error) {
	m, err := u.lifecycle.Decline(ctx, matchID, providerID)
	if err != nil {
		return match.Match{}, err
	}
	u.invalidate(ctx, m)
	return m, nil
}

func (u *Matching) Sweep(ctx context.Context) ([]match.Match, error) {
	expired, err := u.sweeper.Sweep(ctx, u.now().UTC())
	u.OnExpired(ctx, expired)
	return expired, err
}

// OnExpired handles matches expired outside of Sweep, e.g. by the server's
// background sweeper.
func (u *Matching) OnExpired(ctx context.Context, expired []match.Match) {
	if len(expired) == 0 {
		return
	}
	u.invalidate(ctx, expired...)
	if u.notifier != nil {
		u.notifier.MatchesExpired(expired)
	}
}

// AuthorizeProvider checks that the provider profile belongs to userID.
func (u *Matching) AuthorizeProvider(ctx context.Context, providerID, userID uuid.UUID) error {
	p, err := u.loadProvider(ctx, providerID)
	if err != nil {
		return err
	}
	if userID == uuid.Nil || p.UserID != userID {
		return ErrUnauthorized
	}
	return nil
}

// AuthorizeRequester checks that the job was posted by userID.
func (u *Matching) AuthorizeRequester(ctx context.Context, jobID, userID uuid.UUID) error {
	j, err := u.loadJob(ctx, jobID)
	if err != nil {
		return err
	}
	if userID == uuid.Nil || j.RequesterID != userID {
		return ErrUnauthorized
	}
	return nil
}

func (u *Matching) loadJob(ctx context.Context, id uuid.UUID) (job.Job, error) {
	j, err := u.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return job.Job{}, ErrJobNotFound
		}
		return job.Job{}, err
	}
	return j, nil
}

func (u *Matching) loadProvider(ctx context.Context, id uuid.UUID) (provider.Provider, error) {
	p, err := u.providers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProviderNotFound) {
			return provider.Provider{}, ErrProviderNotFound
		}
		return provider.Provider{}, err
	}
	return p, nil
}

func (u *Matching) invalidate(ctx context.Context, ms ...match.Match) {
	ids := make([]uuid.UUID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ProviderID)
	}
	u.invalidateProviders(ctx, ids...)
}

func (u *Matching) invalidateProviders(ctx context.Context, ids ...uuid.UUID) {
	keys := pendingCacheKeys(ids...)
	if len(keys) == 0 {
		return
	}
	if err := u.cache.Delete(ctx, keys...); err != nil {
		u.log.Debug("[Matching] pending cache invalidation failed", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

func stillPending(ms []match.Match, now time.Time) []match.Match {
	out := make([]match.Match, 0, len(ms))
	for _, m := range ms {
		if m.IsPending() && m.ExpiresAt.After(now) {
			out = append(out, m)
		}
	}
	return out
}

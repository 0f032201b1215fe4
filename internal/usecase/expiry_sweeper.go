package usecase

import (
	"context"
	"time"

	"gig-match/internal/domain/match"
	"gig-match/internal/repository"

	"go.uber.org/zap"
)

const defaultSweepBatch = 500

// ExpirySweeper proactively expires pending matches past their TTL. Accept
// still expires lazily, so running it is optional.
type ExpirySweeper struct {
	matches repository.MatchRepository
	log     *zap.Logger
	batch   int
}

func NewExpirySweeper(matches repository.MatchRepository, log *zap.Logger) *ExpirySweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExpirySweeper{matches: matches, log: log, batch: defaultSweepBatch}
}

// Sweep expires in batches until nothing is due and returns every match it
// expired.
func (s *ExpirySweeper) Sweep(ctx context.Context, now time.Time) ([]match.Match, error) {
	all := make([]match.Match, 0)
	for {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		expired, err := s.matches.ExpirePending(ctx, now, s.batch)
		if err != nil {
			return all, err
		}
		all = append(all, expired...)
		if len(expired) < s.batch {
			break
		}
	}

	if len(all) > 0 {
		s.log.Info("[Sweeper] expired pending matches", zap.Int("count", len(all)))
	}
	return all, nil
}

// Run sweeps every interval until ctx is done. onExpired sees each non-empty
// batch.
func (s *ExpirySweeper) Run(ctx context.Context, interval time.Duration, onExpired func([]match.Match)) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			expired, err := s.Sweep(ctx, now.UTC())
			if err != nil && ctx.Err() == nil {
				s.log.Warn("[Sweeper] sweep failed", zap.Error(err))
			}
			if len(expired) > 0 && onExpired != nil {
				onExpired(expired)
			}
		}
	}
}

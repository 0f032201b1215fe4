package lock

import (
	"context"
	"errors"
	"time"

	"gig-match/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	keyPrefix = "matches:accept-lock:"

	defaultLease = 15 * time.Second
	retryEvery   = 50 * time.Millisecond
)

type store interface {
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	DeleteIfValue(ctx context.Context, key string, value string) (bool, error)
}

// RedisJobLocker is a JobLocker shared by every server replica. The lease
// bounds how long a crashed holder can block a job.
type RedisJobLocker struct {
	store store
	wait  time.Duration
	lease time.Duration
	log   *zap.Logger
}

var _ usecase.JobLocker = (*RedisJobLocker)(nil)

func NewRedisJobLocker(s store, wait time.Duration, log *zap.Logger) *RedisJobLocker {
	if log == nil {
		log = zap.NewNop()
	}
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &RedisJobLocker{store: s, wait: wait, lease: defaultLease, log: log}
}

// Lock retries SET NX until it wins, ctx ends or the wait budget runs out,
// which yields usecase.ErrJobBusy.
func (l *RedisJobLocker) Lock(ctx context.Context, jobID uuid.UUID) (func(), error) {
	key := keyPrefix + jobID.String()
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.store.SetIfNotExists(ctx, key, token, l.lease)
		if err != nil {
			return nil, err
		}
		if ok {
			return l.unlocker(key, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, usecase.ErrJobBusy
		}

		t := time.NewTimer(retryEvery)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *RedisJobLocker) unlocker(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, err := l.store.DeleteIfValue(ctx, key, token)
		if err != nil {
			l.log.Warn("[Lock] release failed", zap.String("key", key), zap.Error(err))
			return
		}
		if !ok {
			l.log.Warn("[Lock] lease lost before release", zap.String("key", key))
		}
	}
}

// Fallback uses primary and switches to secondary whenever primary reports
// that its backend is unavailable.
type Fallback struct {
	Primary     usecase.JobLocker
	Secondary   usecase.JobLocker
	Unavailable error
}

func (f Fallback) Lock(ctx context.Context, jobID uuid.UUID) (func(), error) {
	unlock, err := f.Primary.Lock(ctx, jobID)
	if err != nil && f.Unavailable != nil && errors.Is(err, f.Unavailable) {
		return f.Secondary.Lock(ctx, jobID)
	}
	return unlock, err
}

package usecase

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// JobLocker serializes acceptances of the same job. Lock blocks until the
// job is free or ctx ends; the returned func releases it and is safe to call
// more than once.
type JobLocker interface {
	Lock(ctx context.Context, jobID uuid.UUID) (func(), error)
}

// LocalJobLocker is a keyed mutex for a single process.
type LocalJobLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*jobSlot
}

type jobSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalJobLocker() *LocalJobLocker {
	return &LocalJobLocker{slots: make(map[uuid.UUID]*jobSlot)}
}

func (l *LocalJobLocker) Lock(ctx context.Context, jobID uuid.UUID) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[jobID]
	if !ok {
		s = &jobSlot{ch: make(chan struct{}, 1)}
		l.slots[jobID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(jobID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(jobID, s)
		})
	}, nil
}

func (l *LocalJobLocker) release(jobID uuid.UUID, s *jobSlot) {
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, jobID)
	}
	l.mu.Unlock()
}

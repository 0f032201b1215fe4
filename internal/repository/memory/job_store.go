package memory

import (
	"context"
	"sync"
	"time"

	"gig-match/internal/domain/job"
	"gig-match/internal/repository"

	"github.com/google/uuid"
)

type JobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]job.Job
	now  func() time.Time
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[uuid.UUID]job.Job), now: time.Now}
}

var _ repository.JobRepository = (*JobStore)(nil)

func (s *JobStore) Create(ctx context.Context, j job.Job) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = job.StatusOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
	return nil
}

func (s *JobStore) GetByID(ctx context.Context, id uuid.UUID) (job.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return job.Job{}, repository.ErrJobNotFound
	}
	return j, nil
}

func (s *JobStore) AssignProvider(ctx context.Context, jobID, providerID uuid.UUID, providerName string) (job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return job.Job{}, repository.ErrJobNotFound
	}
	if !j.Status.CanAssign() {
		return job.Job{}, repository.ErrJobNotAssignable
	}
	j.Assign(providerID, providerName, s.now().UTC())
	s.jobs[jobID] = j
	return j, nil
}

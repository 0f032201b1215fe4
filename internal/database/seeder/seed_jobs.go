package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gig-match/internal/domain/geo"
	"gig-match/internal/domain/job"
	"gig-match/internal/repository"

	"github.com/google/uuid"
)

// JobsSeeder posts one open job per category at Center, scheduled for the
// next day at 10:00.
type JobsSeeder struct {
	Center     geo.Point
	City       string
	Categories []string
}

func (JobsSeeder) Name() string { return "jobs" }

func (s JobsSeeder) Run(ctx context.Context, t Target) (int, error) {
	cats := s.Categories
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

	created := 0
	for i, cat := range cats {
		id := uuid.NewSHA1(seedNamespace, []byte("job/"+cat))
		if _, err := t.Jobs.GetByID(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrJobNotFound) {
			return created, err
		}

		date := tomorrow
		j := job.Job{
			ID:              id,
			RequesterID:     uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("requester/%d", i))),
			RequesterName:   fmt.Sprintf("Requester %02d", i+1),
			Title:           "Need help with " + cat,
			Description:     "Seeded demo job",
			Skills:          []string{cat},
			SkillCategories: []string{cat},
			Location:        s.Center,
			City:            s.City,
			ScheduledDate:   &date,
			ScheduledTime:   "10:00",
			Status:          job.StatusOpen,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := t.Jobs.Create(ctx, j); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

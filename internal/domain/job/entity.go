package job

import (
	"time"

	"gig-match/internal/domain/geo"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen       Status = "Open"
	StatusMatched    Status = "Matched"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

// CanAssign reports whether a provider may still be assigned to a job in this status.
func (s Status) CanAssign() bool {
	return s == StatusOpen || s == StatusMatched
}

type Job struct {
	ID            uuid.UUID
	RequesterID   uuid.UUID
	RequesterName string
	Title         string
	Description   string

	Skills          []string
	SkillCategories []string

	Location geo.Point
	Address  string
	City     string

	ScheduledDate *time.Time
	// ScheduledTime is a wall-clock "HH:MM" string; empty means any time of day.
	ScheduledTime string

	Status               Status
	AssignedProviderID   *uuid.UUID
	AssignedProviderName *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (j Job) HasSchedule() bool {
	return j.ScheduledDate != nil
}

// Assign moves the job to InProgress with the given provider. Assignment
// fields are only ever set together with that transition.
func (j *Job) Assign(providerID uuid.UUID, providerName string, now time.Time) {
	id := providerID
	name := providerName
	j.AssignedProviderID = &id
	j.AssignedProviderName = &name
	j.Status = StatusInProgress
	j.UpdatedAt = now
}

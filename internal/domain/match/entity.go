package match

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidTransition = errors.New("invalid match status transition")

type Status string

const (
	StatusPending  Status = "Pending"
	StatusAccepted Status = "Accepted"
	StatusDeclined Status = "Declined"
	StatusExpired  Status = "Expired"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusExpired:
		return true
	default:
		return false
	}
}

func (s Status) IsFinal() bool {
	return s == StatusAccepted || s == StatusDeclined || s == StatusExpired
}

// Snapshot is display data copied from the job and provider when the match is
// created. Later edits to either never change it.
type Snapshot struct {
	JobTitle       string
	JobDescription string
	RequesterID    uuid.UUID
	RequesterName  string
	ProviderName   string
	ProviderRating float64
}

type Scores struct {
	Skill        float64
	Distance     float64
	Rating       float64
	Availability float64
}

type Match struct {
	ID         uuid.UUID
	JobID      uuid.UUID
	ProviderID uuid.UUID

	Snapshot Snapshot
	Scores   Scores

	MatchScore float64
	DistanceKm float64

	Status      Status
	ExpiresAt   time.Time
	RespondedAt *time.Time
	CreatedAt   time.Time

	// Version is the optimistic concurrency token. Stores bump it on every
	// successful write and reject writes carrying a stale value.
	Version int64
}

func (m Match) IsPending() bool {
	return m.Status == StatusPending
}

func (m Match) IsExpired(now time.Time) bool {
	return m.ExpiresAt.Before(now)
}

func (m *Match) Accept(now time.Time) error {
	return m.respond(StatusAccepted, now)
}

func (m *Match) Decline(now time.Time) error {
	return m.respond(StatusDeclined, now)
}

// Expire marks a pending match as expired. RespondedAt stays unset since the
// provider never answered.
func (m *Match) Expire() error {
	if m.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, StatusExpired)
	}
	m.Status = StatusExpired
	return nil
}

func (m *Match) respond(to Status, now time.Time) error {
	if m.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, to)
	}
	t := now.UTC()
	m.Status = to
	m.RespondedAt = &t
	return nil
}

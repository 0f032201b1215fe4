package notify

import (
	"context"
	"time"

	"gig-match/internal/domain/match"
)

const (
	TypeNewJobMatch   = "new_job_match"
	TypeMatchAccepted = "match_accepted"
	TypeMatchDeclined = "match_declined"
	TypeMatchExpired  = "match_expired"
)

// Event is one message for one subscriber. Providers are addressed by
// provider id, requesters by user id.
type Event struct {
	Type       string    `json:"type"`
	Subscriber string    `json:"-"`
	MatchID    string    `json:"match_id"`
	JobID      string    `json:"job_id"`
	JobTitle   string    `json:"job_title,omitempty"`
	ProviderID string    `json:"provider_id,omitempty"`
	Provider   string    `json:"provider_name,omitempty"`
	Score      float64   `json:"match_score"`
	DistanceKm float64   `json:"distance_km"`
	ExpiresAt  string    `json:"expires_at,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink delivers a single event.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

func newEvent(typ, subscriber string, m match.Match, now time.Time) Event {
	ev := Event{
		Type:       typ,
		Subscriber: subscriber,
		MatchID:    m.ID.String(),
		JobID:      m.JobID.String(),
		JobTitle:   m.Snapshot.JobTitle,
		ProviderID: m.ProviderID.String(),
		Provider:   m.Snapshot.ProviderName,
		Score:      m.MatchScore,
		DistanceKm: m.DistanceKm,
		Timestamp:  now.UTC(),
	}
	if typ == TypeNewJobMatch {
		ev.ExpiresAt = m.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return ev
}

// NewMatchEvents builds one new_job_match event per match, addressed to its
// provider.
func NewMatchEvents(ms []match.Match, now time.Time) []Event {
	out := make([]Event, 0, len(ms))
	for _, m := range ms {
		out = append(out, newEvent(TypeNewJobMatch, m.ProviderID.String(), m, now))
	}
	return out
}

// AcceptedEvent tells the requester which provider took the job.
func AcceptedEvent(m match.Match, now time.Time) Event {
	return newEvent(TypeMatchAccepted, m.Snapshot.RequesterID.String(), m, now)
}

// ClosedEvents tells providers their offer is gone, either declined in a
// cascade or expired.
func ClosedEvents(typ string, ms []match.Match, now time.Time) []Event {
	out := make([]Event, 0, len(ms))
	for _, m := range ms {
		out = append(out, newEvent(typ, m.ProviderID.String(), m, now))
	}
	return out
}

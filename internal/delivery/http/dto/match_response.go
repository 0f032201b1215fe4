package dto

import (
	"time"

	"gig-match/internal/domain/match"

	"github.com/google/uuid"
)

type MatchScoresResponse struct {
	Skill        float64 `json:"skill"`
	Distance     float64 `json:"distance"`
	Rating       float64 `json:"rating"`
	Availability float64 `json:"availability"`
}

type MatchResponse struct {
	ID         uuid.UUID `json:"id"`
	JobID      uuid.UUID `json:"job_id"`
	ProviderID uuid.UUID `json:"provider_id"`

	JobTitle       string    `json:"job_title"`
	JobDescription string    `json:"job_description"`
	RequesterID    uuid.UUID `json:"requester_id"`
	RequesterName  string    `json:"requester_name"`
	ProviderName   string    `json:"provider_name"`
	ProviderRating float64   `json:"provider_rating"`

	MatchScore float64             `json:"match_score"`
	DistanceKm float64             `json:"distance_km"`
	Scores     MatchScoresResponse `json:"scores"`

	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type MatchListResponse struct {
	Items []MatchResponse `json:"items"`
	Total int             `json:"total"`
}

func NewMatchResponse(m match.Match) MatchResponse {
	return MatchResponse{
		ID:             m.ID,
		JobID:          m.JobID,
		ProviderID:     m.ProviderID,
		JobTitle:       m.Snapshot.JobTitle,
		JobDescription: m.Snapshot.JobDescription,
		RequesterID:    m.Snapshot.RequesterID,
		RequesterName:  m.Snapshot.RequesterName,
		ProviderName:   m.Snapshot.ProviderName,
		ProviderRating: m.Snapshot.ProviderRating,
		MatchScore:     m.MatchScore,
		DistanceKm:     m.DistanceKm,
		Scores: MatchScoresResponse{
			Skill:        m.Scores.Skill,
			Distance:     m.Scores.Distance,
			Rating:       m.Scores.Rating,
			Availability: m.Scores.Availability,
		},
		Status:      string(m.Status),
		ExpiresAt:   m.ExpiresAt,
		RespondedAt: m.RespondedAt,
		CreatedAt:   m.CreatedAt,
	}
}

func NewMatchListResponse(ms []match.Match) MatchListResponse {
	items := make([]MatchResponse, 0, len(ms))
	for _, m := range ms {
		items = append(items, NewMatchResponse(m))
	}
	return MatchListResponse{Items: items, Total: len(items)}
}

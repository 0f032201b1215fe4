package provider

import (
	"time"

	"gig-match/internal/domain/geo"

	"github.com/google/uuid"
)

type TimeSlot struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

// Availability holds an optional slot per weekday. A nil slot means the
// provider published nothing for that day.
type Availability struct {
	Monday    *TimeSlot `json:"monday,omitempty"`
	Tuesday   *TimeSlot `json:"tuesday,omitempty"`
	Wednesday *TimeSlot `json:"wednesday,omitempty"`
	Thursday  *TimeSlot `json:"thursday,omitempty"`
	Friday    *TimeSlot `json:"friday,omitempty"`
	Saturday  *TimeSlot `json:"saturday,omitempty"`
	Sunday    *TimeSlot `json:"sunday,omitempty"`
}

func (a *Availability) SlotFor(day time.Weekday) *TimeSlot {
	if a == nil {
		return nil
	}
	switch day {
	case time.Monday:
		return a.Monday
	case time.Tuesday:
		return a.Tuesday
	case time.Wednesday:
		return a.Wednesday
	case time.Thursday:
		return a.Thursday
	case time.Friday:
		return a.Friday
	case time.Saturday:
		return a.Saturday
	case time.Sunday:
		return a.Sunday
	default:
		return nil
	}
}

type Provider struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string

	SkillCategories []string
	Location        geo.Point
	City            string

	// Availability is nil when the provider has no schedule data at all.
	Availability *Availability

	Rating       float64
	TotalRatings int
	IsActive     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

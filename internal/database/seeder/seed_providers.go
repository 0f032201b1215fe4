package seeder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gig-match/internal/domain/geo"
	"gig-match/internal/domain/provider"
	"gig-match/internal/repository"

	"github.com/google/uuid"
)

// seedNamespace derives stable ids so reruns find the rows they made before.
var seedNamespace = uuid.MustParse("5d1f0c3e-8a57-4b7e-9a0e-6f1c2b9d4e21")

var DefaultCategories = []string{"plumbing", "electrical", "cleaning", "pet_care", "moving"}

// ProvidersSeeder places Count providers on rings around Center, spaced
// from about 1 km up to about 12 km so some fall outside the match radius.
type ProvidersSeeder struct {
	Center     geo.Point
	City       string
	Count      int
	Categories []string
}

func (ProvidersSeeder) Name() string { return "providers" }

func (s ProvidersSeeder) Run(ctx context.Context, t Target) (int, error) {
	cats := s.Categories
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	now := time.Now().UTC().Truncate(time.Microsecond)

	created := 0
	for i := 0; i < s.Count; i++ {
		id := uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("provider/%d", i)))
		if _, err := t.Providers.GetByID(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrProviderNotFound) {
			return created, err
		}

		p := provider.Provider{
			ID:              id,
			UserID:          uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("provider-user/%d", i))),
			Name:            fmt.Sprintf("Provider %02d", i+1),
			SkillCategories: []string{cats[i%len(cats)], cats[(i+2)%len(cats)]},
			Location:        ringPoint(s.Center, i),
			City:            s.City,
			Availability:    weekdayAvailability(i),
			Rating:          3 + float64(i%5)*0.5,
			TotalRatings:    i * 3,
			IsActive:        i%7 != 6,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := t.Providers.Create(ctx, p); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// ringPoint walks outward one ring per eight providers.
func ringPoint(center geo.Point, i int) geo.Point {
	ringKm := 1 + float64((i/8)%4)*3.5
	angle := float64(i%8) * math.Pi / 4

	dLat := ringKm * math.Sin(angle) / 111
	dLon := ringKm * math.Cos(angle) / (111 * math.Cos(center.Latitude*math.Pi/180))
	return geo.NewPoint(center.Longitude+dLon, center.Latitude+dLat)
}

func weekdayAvailability(i int) *provider.Availability {
	if i%4 == 3 {
		return nil
	}
	slot := &provider.TimeSlot{Start: "08:00", End: "18:00", Available: true}
	if i%4 == 2 {
		slot = &provider.TimeSlot{Start: "13:00", End: "21:00", Available: true}
	}
	return &provider.Availability{
		Monday:    slot,
		Tuesday:   slot,
		Wednesday: slot,
		Thursday:  slot,
		Friday:    slot,
		Saturday:  &provider.TimeSlot{Start: "10:00", End: "14:00", Available: i%2 == 0},
	}
}

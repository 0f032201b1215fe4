package matching

import (
	"math"
	"strings"
	"time"

	"gig-match/internal/domain/job"
	"gig-match/internal/domain/provider"
)

// Policy constants. The weights are fixed product decisions and sum to 1.
const (
	MaxRadiusKm       = 10.0
	MinMatchThreshold = 0.30

	SkillWeight        = 0.40
	DistanceWeight     = 0.30
	RatingWeight       = 0.20
	AvailabilityWeight = 0.10

	NeutralRating       = 0.5
	PartialAvailability = 0.5
	maxRating           = 5.0
)

type Result struct {
	Skill        float64
	Distance     float64
	Rating       float64
	Availability float64
	Total        float64
}

// Calculate scores a provider for a job at the given distance. Values keep
// full precision; rounding belongs to match creation.
func Calculate(j job.Job, p provider.Provider, distanceKm float64) Result {
	r := Result{
		Skill:        SkillScore(j.SkillCategories, p.SkillCategories),
		Distance:     DistanceScore(distanceKm),
		Rating:       RatingScore(p.Rating, p.TotalRatings),
		Availability: AvailabilityScore(p.Availability, j),
	}
	r.Total = Total(r)
	return r
}

func Total(r Result) float64 {
	return r.Skill*SkillWeight +
		r.Distance*DistanceWeight +
		r.Rating*RatingWeight +
		r.Availability*AvailabilityWeight
}

func SkillScore(jobCategories, providerCategories []string) float64 {
	required := NormalizeCategories(jobCategories)
	if len(required) == 0 {
		return 0
	}

	offered := make(map[string]struct{}, len(providerCategories))
	for _, c := range NormalizeCategories(providerCategories) {
		offered[c] = struct{}{}
	}

	overlap := 0
	for _, c := range required {
		if _, ok := offered[c]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(required))
}

func DistanceScore(distanceKm float64) float64 {
	return math.Max(0, 1.0-distanceKm/MaxRadiusKm)
}

// RatingScore normalizes a 0-5 rating. Providers without ratings get the
// neutral score so they are not ranked below poorly rated ones.
func RatingScore(rating float64, totalRatings int) float64 {
	if totalRatings <= 0 {
		return NeutralRating
	}
	return clampFloat(rating/maxRating, 0, 1)
}

// AvailabilityScore is 1 when the provider is known to be free at the job's
// scheduled time or when either side lacks schedule data, 0.5 otherwise.
func AvailabilityScore(a *provider.Availability, j job.Job) float64 {
	if isAvailable(a, j) {
		return 1.0
	}
	return PartialAvailability
}

func isAvailable(a *provider.Availability, j job.Job) bool {
	if a == nil || j.ScheduledDate == nil {
		return true
	}

	slot := a.SlotFor(j.ScheduledDate.Weekday())
	if slot == nil || !slot.Available {
		return false
	}

	if strings.TrimSpace(j.ScheduledTime) == "" {
		return true
	}
	at, ok := parseClock(j.ScheduledTime)
	if !ok {
		return true
	}
	start, okStart := parseClock(slot.Start)
	end, okEnd := parseClock(slot.End)
	if !okStart || !okEnd {
		return true
	}
	return at >= start && at <= end
}

var clockLayouts = []string{"15:04:05", "15:04"}

// parseClock returns the offset from midnight for an "HH:MM[:SS]" string.
func parseClock(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Duration(t.Hour())*time.Hour +
			time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second, true
	}
	return 0, false
}

// NormalizeCategories lowercases, trims and de-duplicates category ids,
// keeping first-seen order.
func NormalizeCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampFloat(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

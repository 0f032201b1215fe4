package usecase

import (
	"context"
	"testing"
	"time"

	"gig-match/internal/domain/match"
	"gig-match/internal/domain/provider"
)

func TestExpirySweeper_ExpiresOnlyDuePending(t *testing.T) {
	s := newStores()
	j := testJob("pet_care")
	p1 := testProvider(0, 0, "pet_care")
	p2 := testProvider(0, 0, "pet_care")
	p3 := testProvider(0, 0, "pet_care")

	due := pendingMatch(j, p1, 0.8)
	due.ExpiresAt = fixedNow.Add(-time.Minute)
	fresh := pendingMatch(j, p2, 0.7)
	declined := pendingMatch(j, p3, 0.6)
	declined.ExpiresAt = fixedNow.Add(-time.Hour)
	declined.Status = match.StatusDeclined

	s.seed(t, j, []provider.Provider{p1, p2, p3}, []match.Match{due, fresh, declined})

	sw := NewExpirySweeper(s.matches, nil)
	sw.batch = 1
	got, err := sw.Sweep(context.Background(), fixedNow)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("expected only the due match, got %d", len(got))
	}

	check := map[string]match.Status{
		due.ID.String():      match.StatusExpired,
		fresh.ID.String():    match.StatusPending,
		declined.ID.String(): match.StatusDeclined,
	}
	for _, m := range []match.Match{due, fresh, declined} {
		stored, _ := s.matches.GetByID(context.Background(), m.ID)
		if stored.Status != check[m.ID.String()] {
			t.Fatalf("match %s: expected %s, got %s", m.ID, check[m.ID.String()], stored.Status)
		}
	}

	again, err := sw.Sweep(context.Background(), fixedNow)
	if err != nil || len(again) != 0 {
		t.Fatalf("second sweep should be empty, got %d (%v)", len(again), err)
	}
}

func TestExpirySweeper_DrainsInBatches(t *testing.T) {
	s := newStores()
	j := testJob("pet_care")
	ps := make([]provider.Provider, 0, 5)
	ms := make([]match.Match, 0, 5)
	for i := 0; i < 5; i++ {
		p := testProvider(0, 0, "pet_care")
		m := pendingMatch(j, p, 0.5)
		m.ExpiresAt = fixedNow.Add(-time.Duration(i+1) * time.Second)
		ps = append(ps, p)
		ms = append(ms, m)
	}
	s.seed(t, j, ps, ms)

	sw := NewExpirySweeper(s.matches, nil)
	sw.batch = 2
	got, err := sw.Sweep(context.Background(), fixedNow)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected all 5 expired, got %d", len(got))
	}
}

package seeder

import (
	"context"

	"gig-match/internal/repository"
)

// Target is where seeders write. Both the Postgres and the memory
// repositories satisfy it.
type Target struct {
	Jobs      repository.JobRepository
	Providers repository.ProviderRepository
}

type Seeder interface {
	Name() string
	// Run returns how many rows it created. Rows that already exist are
	// skipped, so running a seeder twice is harmless.
	Run(ctx context.Context, t Target) (int, error)
}

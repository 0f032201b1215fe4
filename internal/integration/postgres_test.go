package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"gig-match/internal/config"
	"gig-match/internal/database"
	"gig-match/internal/database/migration"
	dbpostgres "gig-match/internal/database/postgres"
	"gig-match/internal/domain/geo"
	"gig-match/internal/domain/job"
	"gig-match/internal/domain/match"
	"gig-match/internal/domain/provider"
	"gig-match/internal/repository"
	"gig-match/internal/usecase"
	"gig-match/migrations"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	dbOnce sync.Once
	dbConn database.DB
	dbErr  error
	dbSkip string
)

// connectTestDB returns a migrated database shared by every test in the
// package. GIGMATCH_TEST_DOCKER=1 boots a throwaway postgres container;
// otherwise GIGMATCH_TEST_DB_* (or DB_*) must point at a disposable database.
func connectTestDB(t *testing.T) database.DB {
	t.Helper()

	dbOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		cfg, skip, err := testDBConfig(ctx)
		if err != nil || skip != "" {
			dbErr, dbSkip = err, skip
			return
		}

		db, err := dbpostgres.Connect(ctx, cfg, nil)
		if err != nil {
			dbErr = fmt.Errorf("connect: %w", err)
			return
		}
		if _, err := (migration.Runner{FS: migrations.FS}).Run(ctx, db.SQLDB()); err != nil {
			_ = db.Close()
			dbErr = fmt.Errorf("migrate: %w", err)
			return
		}
		dbConn = db
	})

	if dbSkip != "" {
		t.Skip(dbSkip)
	}
	if dbErr != nil {
		t.Fatalf("test db: %v", dbErr)
	}
	return dbConn
}

func testDBConfig(ctx context.Context) (config.DatabaseConfig, string, error) {
	if os.Getenv("GIGMATCH_TEST_DOCKER") == "1" {
		cfg, err := startPostgresContainer(ctx)
		return cfg, "", err
	}

	cfg := config.DatabaseConfig{
		DBHost:         stringsOrDefault(os.Getenv("GIGMATCH_TEST_DB_HOST"), os.Getenv("DB_HOST")),
		DBPort:         stringsOrDefault(os.Getenv("GIGMATCH_TEST_DB_PORT"), stringsOrDefault(os.Getenv("DB_PORT"), "5432")),
		DBName:         stringsOrDefault(os.Getenv("GIGMATCH_TEST_DB_NAME"), os.Getenv("DB_NAME")),
		DBUser:         stringsOrDefault(os.Getenv("GIGMATCH_TEST_DB_USER"), os.Getenv("DB_USER")),
		DBPassword:     stringsOrDefault(os.Getenv("GIGMATCH_TEST_DB_PASSWORD"), os.Getenv("DB_PASSWORD")),
		DBSSLMode:      stringsOrDefault(os.Getenv("GIGMATCH_TEST_DB_SSL_MODE"), stringsOrDefault(os.Getenv("DB_SSL_MODE"), "disable")),
		ConnectTimeout: 5 * time.Second,
	}
	if cfg.DBHost == "" || cfg.DBName == "" || cfg.DBUser == "" {
		return cfg, "missing test DB: set GIGMATCH_TEST_DOCKER=1 or GIGMATCH_TEST_DB_HOST/PORT/NAME/USER/PASSWORD", nil
	}
	return cfg, "", nil
}

func startPostgresContainer(ctx context.Context) (config.DatabaseConfig, error) {
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "gigmatch",
				"POSTGRES_USER":     "gigmatch",
				"POSTGRES_PASSWORD": "gigmatch",
			},
			// postgres logs readiness twice: once for the init server, once for the real one.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("start postgres container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		return config.DatabaseConfig{}, err
	}

	return config.DatabaseConfig{
		DBHost:         host,
		DBPort:         port.Port(),
		DBName:         "gigmatch",
		DBUser:         "gigmatch",
		DBPassword:     "gigmatch",
		DBSSLMode:      "disable",
		ConnectTimeout: 10 * time.Second,
	}, nil
}

func stringsOrDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

type pgRepos struct {
	jobs      *repository.PostgresJobRepository
	providers *repository.PostgresProviderRepository
	matches   *repository.PostgresMatchRepository
}

func newRepos(db database.DB) pgRepos {
	return pgRepos{
		jobs:      repository.NewPostgresJobRepository(db),
		providers: repository.NewPostgresProviderRepository(db),
		matches:   repository.NewPostgresMatchRepository(db),
	}
}

// uniqueCategory keeps candidate queries of different tests apart on the
// shared database.
func uniqueCategory() string {
	return "cat_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func seedJob(t *testing.T, ctx context.Context, r pgRepos, category string, at geo.Point) job.Job {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	j := job.Job{
		ID:              uuid.New(),
		RequesterID:     uuid.New(),
		RequesterName:   "Ravi",
		Title:           "Fix the sink",
		Description:     "Kitchen sink leaks",
		Skills:          []string{"pipe repair"},
		SkillCategories: []string{category},
		Location:        at,
		City:            "Bangalore",
		Status:          job.StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.jobs.Create(ctx, j); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return j
}

func seedProvider(t *testing.T, ctx context.Context, r pgRepos, category string, at geo.Point) provider.Provider {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := provider.Provider{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Name:            "Asha",
		SkillCategories: []string{category},
		Location:        at,
		City:            "Bangalore",
		Availability: &provider.Availability{
			Monday: &provider.TimeSlot{Start: "09:00", End: "17:00", Available: true},
		},
		Rating:       4.2,
		TotalRatings: 8,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.providers.Create(ctx, p); err != nil {
		t.Fatalf("create provider: %v", err)
	}
	return p
}

func seedMatch(t *testing.T, ctx context.Context, r pgRepos, j job.Job, p provider.Provider, expiresAt time.Time) match.Match {
	t.Helper()
	m := match.Match{
		ID:         uuid.New(),
		JobID:      j.ID,
		ProviderID: p.ID,
		Snapshot: match.Snapshot{
			JobTitle:      j.Title,
			RequesterID:   j.RequesterID,
			RequesterName: j.RequesterName,
			ProviderName:  p.Name,
		},
		MatchScore: 0.5,
		Status:     match.StatusPending,
		ExpiresAt:  expiresAt.UTC().Truncate(time.Microsecond),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		Version:    1,
	}
	if err := r.matches.Create(ctx, m); err != nil {
		t.Fatalf("create match: %v", err)
	}
	return m
}

func TestPostgres_MigrationsAreIdempotent(t *testing.T) {
	db := connectTestDB(t)
	applied, err := (migration.Runner{FS: migrations.FS}).Run(context.Background(), db.SQLDB())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing applied on rerun, got %d", len(applied))
	}
}

func TestPostgres_ProviderBoundingBoxQuery(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()
	r := newRepos(db)
	cat := uniqueCategory()

	site := geo.NewPoint(77.59, 12.97)
	near := seedProvider(t, ctx, r, cat, geo.NewPoint(77.60, 12.98))
	_ = seedProvider(t, ctx, r, cat, geo.NewPoint(77.59, 13.30))
	_ = seedProvider(t, ctx, r, uniqueCategory(), geo.NewPoint(77.59, 12.97))

	got, err := r.providers.FindActiveBySkillAndLocation(ctx, []string{cat}, site.Longitude, site.Latitude, 15)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].ID != near.ID {
		t.Fatalf("expected only the nearby provider, got %+v", got)
	}
	if got[0].Availability == nil || got[0].Availability.Monday == nil || !got[0].Availability.Monday.Available {
		t.Fatalf("availability did not round-trip: %+v", got[0].Availability)
	}
}

func TestPostgres_OneAcceptedMatchPerJob(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()
	r := newRepos(db)
	cat := uniqueCategory()

	j := seedJob(t, ctx, r, cat, geo.NewPoint(77.59, 12.97))
	a := seedMatch(t, ctx, r, j, seedProvider(t, ctx, r, cat, geo.NewPoint(77.60, 12.97)), time.Now().Add(time.Hour))
	b := seedMatch(t, ctx, r, j, seedProvider(t, ctx, r, cat, geo.NewPoint(77.61, 12.97)), time.Now().Add(time.Hour))

	now := time.Now()
	if err := a.Accept(now); err != nil {
		t.Fatalf("accept a: %v", err)
	}
	if _, err := r.matches.Update(ctx, a); err != nil {
		t.Fatalf("update a: %v", err)
	}

	if err := b.Accept(now); err != nil {
		t.Fatalf("accept b: %v", err)
	}
	if _, err := r.matches.Update(ctx, b); !errors.Is(err, repository.ErrAcceptedMatchExists) {
		t.Fatalf("expected ErrAcceptedMatchExists from the partial unique index, got %v", err)
	}
}

func TestPostgres_StaleVersionRejected(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()
	r := newRepos(db)
	cat := uniqueCategory()

	j := seedJob(t, ctx, r, cat, geo.NewPoint(77.59, 12.97))
	m := seedMatch(t, ctx, r, j, seedProvider(t, ctx, r, cat, geo.NewPoint(77.60, 12.97)), time.Now().Add(time.Hour))

	stale := m
	if err := m.Decline(time.Now()); err != nil {
		t.Fatalf("decline: %v", err)
	}
	updated, err := r.matches.Update(ctx, m)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != m.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", m.Version+1, updated.Version)
	}

	if err := stale.Accept(time.Now()); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := r.matches.Update(ctx, stale); !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestPostgres_ExpirePending(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()
	r := newRepos(db)
	cat := uniqueCategory()

	j := seedJob(t, ctx, r, cat, geo.NewPoint(77.59, 12.97))
	p := seedProvider(t, ctx, r, cat, geo.NewPoint(77.60, 12.97))
	old := seedMatch(t, ctx, r, j, p, time.Now().Add(-time.Minute))
	fresh := seedMatch(t, ctx, r, j, seedProvider(t, ctx, r, cat, geo.NewPoint(77.61, 12.97)), time.Now().Add(time.Hour))

	pending, err := r.matches.GetPendingByProviderID(ctx, p.ID, time.Now())
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("past-deadline match must not be listed as pending, got %d", len(pending))
	}

	// Other tests share the table, so only look for our own rows.
	expired, err := r.matches.ExpirePending(ctx, time.Now(), 10000)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	found := false
	for _, m := range expired {
		if m.ID == fresh.ID {
			t.Fatalf("unexpired match was expired")
		}
		if m.ID == old.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s to be expired", old.ID)
	}

	got, err := r.matches.GetByID(ctx, old.ID)
	if err != nil || got.Status != match.StatusExpired || got.RespondedAt != nil {
		t.Fatalf("expected Expired without responded_at, got %+v (%v)", got, err)
	}
}

func TestPostgres_GenerateAndConcurrentAccept(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()
	r := newRepos(db)
	cat := uniqueCategory()

	site := geo.NewPoint(77.59, 12.97)
	j := seedJob(t, ctx, r, cat, site)
	for i := 0; i < 4; i++ {
		seedProvider(t, ctx, r, cat, geo.NewPoint(77.59+float64(i+1)*0.01, 12.97))
	}
	// About 22 km north; inside no radius.
	seedProvider(t, ctx, r, cat, geo.NewPoint(77.59, 13.17))

	svc := usecase.NewMatchingUsecase(usecase.MatchingDeps{
		Jobs:      r.jobs,
		Providers: r.providers,
		Matches:   r.matches,
		// Each acceptor gets its own locker so only the store serializes them.
		Locker: noopLocker{},
	})

	ms, err := svc.GenerateForJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(ms) != 4 {
		t.Fatalf("expected 4 matches, got %d", len(ms))
	}
	for i := 1; i < len(ms); i++ {
		if ms[i-1].MatchScore < ms[i].MatchScore {
			t.Fatalf("matches not ranked by score: %v then %v", ms[i-1].MatchScore, ms[i].MatchScore)
		}
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []uuid.UUID
	)
	for _, m := range ms {
		m := m
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Accept(ctx, m.ID, m.ProviderID); err == nil {
				mu.Lock()
				wins = append(wins, m.ID)
				mu.Unlock()
			} else if !errors.Is(err, usecase.ErrInvalidState) {
				t.Errorf("unexpected accept error: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(wins) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(wins))
	}

	stored, err := r.matches.GetByJobID(ctx, j.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	accepted := 0
	for _, m := range stored {
		if m.Status == match.StatusAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("expected one accepted row, got %d", accepted)
	}

	assigned, err := r.jobs.GetByID(ctx, j.ID)
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	if assigned.Status != job.StatusInProgress || assigned.AssignedProviderID == nil {
		t.Fatalf("expected job InProgress with a provider, got %+v", assigned)
	}
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, uuid.UUID) (func(), error) { return func() {}, nil }

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gig-match/internal/database"
	"gig-match/internal/domain/geo"
	"gig-match/internal/domain/job"
	"gig-match/internal/domain/matching"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotAssignable means the job left Open/Matched before assignment.
	ErrJobNotAssignable = errors.New("job not assignable")
)

type JobRepository interface {
	Create(ctx context.Context, j job.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (job.Job, error)
	// AssignProvider transitions an Open or Matched job to InProgress with the
	// given provider in a single conditional write.
	AssignProvider(ctx context.Context, jobID, providerID uuid.UUID, providerName string) (job.Job, error)
}

type PostgresJobRepository struct {
	db  database.DB
	now func() time.Time
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db, now: time.Now}
}

const jobColumns = `id, requester_id, requester_name, title, description, skills, skill_categories,
	longitude, latitude, address, city, scheduled_date, scheduled_time,
	status, assigned_provider_id, assigned_provider_name, created_at, updated_at`

func (r *PostgresJobRepository) Create(ctx context.Context, j job.Job) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = job.StatusOpen
	}
	now := r.now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = now
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		j.ID, j.RequesterID, j.RequesterName, j.Title, j.Description, nonNil(j.Skills), nonNil(matching.NormalizeCategories(j.SkillCategories)),
		j.Location.Longitude, j.Location.Latitude, j.Address, j.City, j.ScheduledDate, j.ScheduledTime,
		string(j.Status), j.AssignedProviderID, j.AssignedProviderName, j.CreatedAt, j.UpdatedAt,
	)
	return err
}

func (r *PostgresJobRepository) GetByID(ctx context.Context, id uuid.UUID) (job.Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows || errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, ErrJobNotFound
		}
		return job.Job{}, err
	}
	return j, nil
}

func (r *PostgresJobRepository) AssignProvider(ctx context.Context, jobID, providerID uuid.UUID, providerName string) (job.Job, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE jobs
		 SET status = $1, assigned_provider_id = $2, assigned_provider_name = $3, updated_at = $4
		 WHERE id = $5 AND status IN ($6, $7)
		 RETURNING `+jobColumns,
		string(job.StatusInProgress), providerID, providerName, r.now().UTC(),
		jobID, string(job.StatusOpen), string(job.StatusMatched),
	)

	j, err := scanJob(row)
	if err == nil {
		return j, nil
	}
	if err != sql.ErrNoRows && !errors.Is(err, pgx.ErrNoRows) {
		return job.Job{}, err
	}

	if _, err := r.GetByID(ctx, jobID); err != nil {
		return job.Job{}, err
	}
	return job.Job{}, ErrJobNotAssignable
}

func scanJob(row database.Row) (job.Job, error) {
	var j job.Job
	var status string
	var lon, lat float64
	err := row.Scan(
		&j.ID, &j.RequesterID, &j.RequesterName, &j.Title, &j.Description, &j.Skills, &j.SkillCategories,
		&lon, &lat, &j.Address, &j.City, &j.ScheduledDate, &j.ScheduledTime,
		&status, &j.AssignedProviderID, &j.AssignedProviderName, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return job.Job{}, err
	}
	j.Status = job.Status(status)
	j.Location = geo.NewPoint(lon, lat)
	return j, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

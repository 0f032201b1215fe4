package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gig-match/internal/database"
	"gig-match/internal/domain/match"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrVersionConflict means the stored match changed since it was read.
	ErrVersionConflict = errors.New("match version conflict")
	// ErrAcceptedMatchExists means another match of the same job is already accepted.
	ErrAcceptedMatchExists = errors.New("job already has an accepted match")
)

const oneAcceptedPerJobConstraint = "matches_one_accepted_per_job"

// MatchRepository persists matches. Update and UpdateBatch only write the
// mutable lifecycle fields (status, responded_at) and are conditional on
// Match.Version. Both return the stored rows carrying the new version.
type MatchRepository interface {
	Create(ctx context.Context, m match.Match) error
	CreateBatch(ctx context.Context, ms []match.Match) error
	// Update fails with ErrVersionConflict when the stored version differs and
	// with ErrAcceptedMatchExists when accepting would create a second winner.
	Update(ctx context.Context, m match.Match) (match.Match, error)
	// UpdateBatch applies every update whose version still matches; rows that
	// changed concurrently are skipped and left out of the result.
	UpdateBatch(ctx context.Context, ms []match.Match) ([]match.Match, error)
	GetByID(ctx context.Context, id uuid.UUID) (match.Match, error)
	GetByJobID(ctx context.Context, jobID uuid.UUID) ([]match.Match, error)
	// GetPendingByProviderID lists pending, unexpired matches, best score first.
	GetPendingByProviderID(ctx context.Context, providerID uuid.UUID, now time.Time) ([]match.Match, error)
	// ExpirePending marks up to limit pending matches with expires_at before now
	// as expired and returns them.
	ExpirePending(ctx context.Context, now time.Time, limit int) ([]match.Match, error)
}

type PostgresMatchRepository struct {
	db database.DB
}

func NewPostgresMatchRepository(db database.DB) *PostgresMatchRepository {
	return &PostgresMatchRepository{db: db}
}

const matchColumns = `id, job_id, provider_id,
	job_title, job_description, requester_id, requester_name, provider_name, provider_rating,
	skill_score, distance_score, rating_score, availability_score,
	match_score, distance_km, status, expires_at, responded_at, created_at, version`

const insertMatchSQL = `INSERT INTO matches (` + matchColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`

const updateMatchSQL = `UPDATE matches
	SET status = $1, responded_at = $2, version = version + 1
	WHERE id = $3 AND version = $4`

func insertArgs(m match.Match) []any {
	return []any{
		m.ID, m.JobID, m.ProviderID,
		m.Snapshot.JobTitle, m.Snapshot.JobDescription, m.Snapshot.RequesterID, m.Snapshot.RequesterName,
		m.Snapshot.ProviderName, m.Snapshot.ProviderRating,
		m.Scores.Skill, m.Scores.Distance, m.Scores.Rating, m.Scores.Availability,
		m.MatchScore, m.DistanceKm, string(m.Status), m.ExpiresAt, m.RespondedAt, m.CreatedAt, m.Version,
	}
}

func (r *PostgresMatchRepository) Create(ctx context.Context, m match.Match) error {
	if m.ID == uuid.Nil || m.JobID == uuid.Nil || m.ProviderID == uuid.Nil {
		return fmt.Errorf("create match: missing identifiers")
	}
	_, err := r.db.Exec(ctx, insertMatchSQL, insertArgs(m)...)
	return err
}

func (r *PostgresMatchRepository) CreateBatch(ctx context.Context, ms []match.Match) error {
	if len(ms) == 0 {
		return nil
	}

	return database.WithTx(ctx, r.db, func(q database.Querier) error {
		for _, m := range ms {
			if _, err := q.Exec(ctx, insertMatchSQL, insertArgs(m)...); err != nil {
				return fmt.Errorf("create match %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

func (r *PostgresMatchRepository) Update(ctx context.Context, m match.Match) (match.Match, error) {
	rowsAffected, err := r.db.Exec(ctx, updateMatchSQL, string(m.Status), m.RespondedAt, m.ID, m.Version)
	if err != nil {
		if isUniqueViolation(err, oneAcceptedPerJobConstraint) {
			return match.Match{}, ErrAcceptedMatchExists
		}
		return match.Match{}, err
	}
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, m.ID); err != nil {
			return match.Match{}, err
		}
		return match.Match{}, ErrVersionConflict
	}

	m.Version++
	return m, nil
}

func (r *PostgresMatchRepository) UpdateBatch(ctx context.Context, ms []match.Match) ([]match.Match, error) {
	if len(ms) == 0 {
		return nil, nil
	}

	applied := make([]match.Match, 0, len(ms))
	err := database.WithTx(ctx, r.db, func(q database.Querier) error {
		for _, m := range ms {
			n, err := q.Exec(ctx, updateMatchSQL, string(m.Status), m.RespondedAt, m.ID, m.Version)
			if err != nil {
				if isUniqueViolation(err, oneAcceptedPerJobConstraint) {
					return ErrAcceptedMatchExists
				}
				return fmt.Errorf("update match %s: %w", m.ID, err)
			}
			if n == 0 {
				continue
			}
			m.Version++
			applied = append(applied, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func (r *PostgresMatchRepository) GetByID(ctx context.Context, id uuid.UUID) (match.Match, error) {
	row := r.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if err != nil {
		if err == sql.ErrNoRows || errors.Is(err, pgx.ErrNoRows) {
			return match.Match{}, ErrMatchNotFound
		}
		return match.Match{}, err
	}
	return m, nil
}

func (r *PostgresMatchRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) ([]match.Match, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+matchColumns+`
		 FROM matches
		 WHERE job_id = $1
		 ORDER BY match_score DESC, created_at ASC`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	return collectMatches(rows)
}

func (r *PostgresMatchRepository) GetPendingByProviderID(ctx context.Context, providerID uuid.UUID, now time.Time) ([]match.Match, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+matchColumns+`
		 FROM matches
		 WHERE provider_id = $1 AND status = $2 AND expires_at > $3
		 ORDER BY match_score DESC, created_at ASC`,
		providerID, string(match.StatusPending), now,
	)
	if err != nil {
		return nil, err
	}
	return collectMatches(rows)
}

func (r *PostgresMatchRepository) ExpirePending(ctx context.Context, now time.Time, limit int) ([]match.Match, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.db.Query(ctx,
		`UPDATE matches
		 SET status = $1, version = version + 1
		 WHERE id IN (
			SELECT id FROM matches
			WHERE status = $2 AND expires_at < $3
			ORDER BY expires_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+matchColumns,
		string(match.StatusExpired), string(match.StatusPending), now, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectMatches(rows)
}

func collectMatches(rows database.Rows) ([]match.Match, error) {
	defer rows.Close()

	out := make([]match.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanMatch(row database.Row) (match.Match, error) {
	var m match.Match
	var status string
	err := row.Scan(
		&m.ID, &m.JobID, &m.ProviderID,
		&m.Snapshot.JobTitle, &m.Snapshot.JobDescription, &m.Snapshot.RequesterID, &m.Snapshot.RequesterName,
		&m.Snapshot.ProviderName, &m.Snapshot.ProviderRating,
		&m.Scores.Skill, &m.Scores.Distance, &m.Scores.Rating, &m.Scores.Availability,
		&m.MatchScore, &m.DistanceKm, &status, &m.ExpiresAt, &m.RespondedAt, &m.CreatedAt, &m.Version,
	)
	if err != nil {
		return match.Match{}, err
	}
	m.Status = match.Status(status)
	return m, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gig-match/internal/database"
	"gig-match/internal/domain/geo"
	"gig-match/internal/domain/matching"
	"gig-match/internal/domain/provider"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrProviderNotFound = errors.New("provider not found")

type ProviderRepository interface {
	Create(ctx context.Context, p provider.Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (provider.Provider, error)
	// FindActiveBySkillAndLocation is a coarse query: active providers sharing
	// at least one category, inside the bounding box of radiusKm. Results may
	// lie slightly outside the true radius and come back in a stable order.
	FindActiveBySkillAndLocation(ctx context.Context, categories []string, lon, lat, radiusKm float64) ([]provider.Provider, error)
}

type PostgresProviderRepository struct {
	db  database.DB
	now func() time.Time
}

func NewPostgresProviderRepository(db database.DB) *PostgresProviderRepository {
	return &PostgresProviderRepository{db: db, now: time.Now}
}

const providerColumns = `id, user_id, name, skill_categories, longitude, latitude, city,
	availability, rating, total_ratings, is_active, created_at, updated_at`

func (r *PostgresProviderRepository) Create(ctx context.Context, p provider.Provider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := r.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	var availability []byte
	if p.Availability != nil {
		b, err := json.Marshal(p.Availability)
		if err != nil {
			return fmt.Errorf("encode availability: %w", err)
		}
		availability = b
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO providers (`+providerColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.UserID, p.Name, nonNil(matching.NormalizeCategories(p.SkillCategories)), p.Location.Longitude, p.Location.Latitude, p.City,
		availability, p.Rating, p.TotalRatings, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *PostgresProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (provider.Provider, error) {
	row := r.db.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id)
	p, err := scanProvider(row)
	if err != nil {
		if err == sql.ErrNoRows || errors.Is(err, pgx.ErrNoRows) {
			return provider.Provider{}, ErrProviderNotFound
		}
		return provider.Provider{}, err
	}
	return p, nil
}

func (r *PostgresProviderRepository) FindActiveBySkillAndLocation(ctx context.Context, categories []string, lon, lat, radiusKm float64) ([]provider.Provider, error) {
	categories = matching.NormalizeCategories(categories)
	if len(categories) == 0 {
		return []provider.Provider{}, nil
	}

	box := geo.BoundingBox(geo.NewPoint(lon, lat), radiusKm)
	rows, err := r.db.Query(ctx,
		`SELECT `+providerColumns+`
		 FROM providers
		 WHERE is_active = TRUE
		   AND skill_categories && $1
		   AND latitude BETWEEN $2 AND $3
		   AND longitude BETWEEN $4 AND $5
		 ORDER BY created_at ASC, id ASC`,
		categories, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]provider.Provider, 0)
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanProvider(row database.Row) (provider.Provider, error) {
	var p provider.Provider
	var lon, lat float64
	var availability []byte
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.SkillCategories, &lon, &lat, &p.City,
		&availability, &p.Rating, &p.TotalRatings, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return provider.Provider{}, err
	}
	p.Location = geo.NewPoint(lon, lat)

	if len(availability) > 0 {
		var a provider.Availability
		if err := json.Unmarshal(availability, &a); err != nil {
			return provider.Provider{}, fmt.Errorf("decode availability for provider %s: %w", p.ID, err)
		}
		p.Availability = &a
	}
	return p, nil
}

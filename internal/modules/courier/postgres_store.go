// README: Courier store backed by PostgreSQL.
package courier

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleet/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *Courier) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO couriers (id, vehicle_type, kyc_status, online, lat, lng, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(c.ID),
		c.VehicleType,
		string(c.KYC),
		c.Online,
		latPtr(c.Location),
		lngPtr(c.Location),
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Courier, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, vehicle_type, kyc_status, online, lat, lng, created_at, updated_at
        FROM couriers
        WHERE id = $1`, string(id),
	)
	var c Courier
	var lat, lng sql.NullFloat64
	err := row.Scan(&c.ID, &c.VehicleType, &c.KYC, &c.Online, &lat, &lng, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		c.Location = &types.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &c, nil
}

func (s *PostgresStore) SetOnline(ctx context.Context, id types.ID, online bool) error {
	return s.update(ctx, `UPDATE couriers SET online = $1, updated_at = NOW() WHERE id = $2`, online, string(id))
}

func (s *PostgresStore) SetKYC(ctx context.Context, id types.ID, status KYCStatus) error {
	return s.update(ctx, `UPDATE couriers SET kyc_status = $1, updated_at = NOW() WHERE id = $2`, string(status), string(id))
}

func (s *PostgresStore) SetLocation(ctx context.Context, id types.ID, p types.Point) error {
	return s.update(ctx, `UPDATE couriers SET lat = $1, lng = $2, updated_at = NOW() WHERE id = $3`, p.Lat, p.Lng, string(id))
}

func (s *PostgresStore) update(ctx context.Context, query string, args ...any) error {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func latPtr(p *types.Point) *float64 {
	if p == nil {
		return nil
	}
	return &p.Lat
}

func lngPtr(p *types.Point) *float64 {
	if p == nil {
		return nil
	}
	return &p.Lng
}

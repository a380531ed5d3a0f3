package api

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"invdash/services/warehouse"
)

// Store reads aggregates straight from the warehouse database.
type Store struct {
	DB *pgxpool.Pool
}

// NewStore wraps a connection pool as an Aggregates implementation.
func NewStore(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, errors.New("nil pool")
	}
	return &Store{DB: pool}, nil
}

func (s *Store) DeployedByDate(ctx context.Context, r warehouse.DateRange) ([]warehouse.DeployedCount, error) {
	return warehouse.DeployedByDate(ctx, s.DB, r)
}

func (s *Store) ChangesByDate(ctx context.Context, r warehouse.DateRange) ([]warehouse.ChangeCount, error) {
	return warehouse.ChangesByDate(ctx, s.DB, r)
}

func (s *Store) ChangesByTypeByDate(ctx context.Context, r warehouse.DateRange) ([]warehouse.TypeChangeCount, error) {
	return warehouse.ChangesByTypeByDate(ctx, s.DB, r)
}

func (s *Store) ConfidenceByDate(ctx context.Context, r warehouse.DateRange) ([]warehouse.ConfidencePoint, error) {
	return warehouse.ConfidenceByDate(ctx, s.DB, r)
}

func (s *Store) SummaryFor(ctx context.Context, r warehouse.DateRange) (warehouse.Summary, error) {
	return warehouse.SummaryFor(ctx, s.DB, r)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

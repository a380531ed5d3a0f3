package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"invdash/services/warehouse"
)

// Aggregates is the warehouse query surface the handlers read from.
type Aggregates interface {
	DeployedByDate(ctx context.Context, r warehouse.DateRange) ([]warehouse.DeployedCount, error)
	ChangesByDate(ctx context.Context, r warehouse.DateRange) ([]warehouse.ChangeCount, error)
	ChangesByTypeByDate(ctx context.Context, r warehouse.DateRange) ([]warehouse.TypeChangeCount, error)
	ConfidenceByDate(ctx context.Context, r warehouse.DateRange) ([]warehouse.ConfidencePoint, error)
	SummaryFor(ctx context.Context, r warehouse.DateRange) (warehouse.Summary, error)
	Ping(ctx context.Context) error
}

// Config controls runtime behaviour for the API handlers.
type Config struct {
	AllowedOrigins []string
	Middleware     []func(http.Handler) http.Handler
}

// API wires the aggregate store and configuration for the HTTP handlers.
type API struct {
	store  Aggregates
	config Config
	log    zerolog.Logger
}

// New initialises the API layer.
func New(store Aggregates, cfg Config, log zerolog.Logger) (*API, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &API{store: store, config: cfg, log: log}, nil
}

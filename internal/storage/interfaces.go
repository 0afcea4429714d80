package storage

import (
	"context"

	"homescope/server/internal/models"
)

// PropertyReader is the read side the comparable engine needs.
type PropertyReader interface {
	// GetProperty returns ErrNotFound when id does not exist.
	GetProperty(ctx context.Context, id string) (*models.Property, error)

	// FindCandidates returns properties matching criteria ordered by price
	// ascending (ties by id), at most criteria.Limit rows.
	FindCandidates(ctx context.Context, criteria models.CandidateCriteria) ([]models.Property, error)
}

// PropertyStore is a complete property persistence backend.
type PropertyStore interface {
	PropertyReader

	ListProperties(ctx context.Context, filter models.ListFilter) ([]models.Property, error)

	// CreateProperty returns ErrDuplicateKey if the ID is taken.
	CreateProperty(ctx context.Context, p *models.Property) error

	// UpsertProperties writes a batch atomically, replacing existing rows by ID.
	UpsertProperties(ctx context.Context, batch []*models.Property) error

	Ping(ctx context.Context) error
	Close() error
}

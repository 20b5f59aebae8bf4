// Package store maintains the local SQLite replica of the business
// database: the shops and the owners behind them. The mapping layer
// reads the replica to correlate mail senders with known stores.
package store

import (
	"context"

	"github.com/mbeaupre/autoemail/internal/model"
)

// Store is the replica persistence interface.
type Store interface {
	// UpsertShops inserts or replaces a batch of shop rows.
	UpsertShops(ctx context.Context, shops []model.Shop) error

	// ListShops returns every shop, ordered by name.
	ListShops(ctx context.Context) ([]model.Shop, error)

	// UpsertOwners inserts or replaces a batch of owner rows.
	UpsertOwners(ctx context.Context, owners []model.Owner) error

	// ListOwners returns every owner, ordered by id.
	ListOwners(ctx context.Context) ([]model.Owner, error)

	// GetOwnerByID returns the owner with the given id, or nil when the
	// replica has no such row.
	GetOwnerByID(ctx context.Context, id int64) (*model.Owner, error)

	// Close releases the underlying database.
	Close() error
}

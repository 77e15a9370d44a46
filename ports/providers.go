package ports

import (
	"context"

	"github.com/gridpool/gridpool/core"
)

// ProviderStore persists provider records in registration order.
type ProviderStore interface {
	Create(ctx context.Context, p *core.ProviderRecord) error

	// Get returns core.ErrNotFound if the ID is not registered.
	Get(ctx context.Context, id string) (*core.ProviderRecord, error)

	Delete(ctx context.Context, id string) error

	// List returns up to limit records starting at offset, in
	// registration order, along with the total record count.
	List(ctx context.Context, offset, limit int) ([]core.ProviderRecord, int, error)

	// All returns a snapshot of every record in registration order.
	All(ctx context.Context) ([]core.ProviderRecord, error)

	// UpdateStatus replaces the status field of the record. Returns
	// core.ErrNotFound if the ID is not registered.
	UpdateStatus(ctx context.Context, id string, status core.ProviderStatus) error

	// UpdateReputation applies a read-modify-write of the reputation
	// field, serialized with respect to concurrent updates on the same
	// ID, and returns the stored value. Returns core.ErrNotFound if the
	// ID is not registered.
	UpdateReputation(ctx context.Context, id string, apply func(current float64) float64) (float64, error)
}

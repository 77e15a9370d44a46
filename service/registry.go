package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gridpool/gridpool/core"
	"github.com/gridpool/gridpool/identity"
	"github.com/gridpool/gridpool/ports"
)

// Registry owns the provider population: capability filtering, ranking,
// status transitions, and reputation arithmetic.
type Registry struct {
	store    ports.ProviderStore
	eventPub ports.EventPublisher
}

// NewRegistry creates a new provider registry
func NewRegistry(store ports.ProviderStore, eventPub ports.EventPublisher) *Registry {
	return &Registry{store: store, eventPub: eventPub}
}

// Register adds a provider record. The reputation is clamped into bounds
// and a fresh ID is assigned when none is given.
func (r *Registry) Register(ctx context.Context, p *core.ProviderRecord) (*core.ProviderRecord, error) {
	if !identity.ValidPublicKey(p.PubKey) {
		return nil, core.ErrInvalidIdentity
	}
	if !core.ValidStatus(p.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", core.ErrInvalidConfiguration, p.Status)
	}

	rec := *p
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Reputation = core.ClampReputation(rec.Reputation)
	rec.RegisteredAt = time.Now()

	if err := r.store.Create(ctx, &rec); err != nil {
		return nil, fmt.Errorf("failed to register provider: %w", err)
	}
	return &rec, nil
}

// Deregister removes a provider record
func (r *Registry) Deregister(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}

// Get returns a single provider record
func (r *Registry) Get(ctx context.Context, id string) (*core.ProviderRecord, error) {
	return r.store.Get(ctx, id)
}

// List returns providers in registration order. Page and pageSize must be
// positive; a page past the end comes back empty, not as an error.
func (r *Registry) List(ctx context.Context, page, pageSize int) (*core.Page, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page and page size must be positive", core.ErrInvalidConfiguration)
	}

	records, total, err := r.store.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	return &core.Page{
		Providers: records,
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
	}, nil
}

// FindByCapability filters providers by the query's predicates and sorts
// the result by reputation descending, then price ascending. The sort is
// stable, so equal reputation and price keep registration order.
func (r *Registry) FindByCapability(ctx context.Context, q core.CapabilityQuery) ([]core.ProviderRecord, error) {
	all, err := r.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}

	matched := make([]core.ProviderRecord, 0, len(all))
	for i := range all {
		if q.Matches(&all[i]) {
			matched = append(matched, all[i])
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Reputation != matched[j].Reputation {
			return matched[i].Reputation > matched[j].Reputation
		}
		return matched[i].Price.LessThan(matched[j].Price)
	})

	return matched, nil
}

// UpdateStatus atomically replaces the status of a provider
func (r *Registry) UpdateStatus(ctx context.Context, id string, status core.ProviderStatus) error {
	if !core.ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", core.ErrInvalidConfiguration, status)
	}
	return r.store.UpdateStatus(ctx, id, status)
}

// ApplyReputationDelta adds delta to the provider's reputation, clamped to
// [MinReputation, MaxReputation]. The update serializes with concurrent
// deltas on the same ID, so none are lost.
func (r *Registry) ApplyReputationDelta(ctx context.Context, id string, delta float64) (float64, error) {
	var previous float64
	updated, err := r.store.UpdateReputation(ctx, id, func(current float64) float64 {
		previous = current
		return core.ClampReputation(current + delta)
	})
	if err != nil {
		return 0, err
	}

	if err := r.eventPub.PublishReputation(ctx, id, previous, updated); err != nil {
		fmt.Printf("Warning: Failed to publish reputation event: %v\n", err)
	}

	return updated, nil
}

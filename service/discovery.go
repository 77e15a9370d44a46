package service

import (
	"context"

	"github.com/gridpool/gridpool/core"
)

// DiscoveryRequest is a capability query plus request-scoped policy that
// never touches registry state.
type DiscoveryRequest struct {
	core.CapabilityQuery

	// Exclude drops providers already assigned to the requester.
	Exclude []string

	// Limit caps the result length when positive.
	Limit int
}

// Discovery ranks providers for a requester. It holds no state of its
// own; all reads go through the registry.
type Discovery struct {
	registry *Registry
}

// NewDiscovery creates a new discovery engine
func NewDiscovery(registry *Registry) *Discovery {
	return &Discovery{registry: registry}
}

// Discover returns the ranked providers matching the request.
func (d *Discovery) Discover(ctx context.Context, req DiscoveryRequest) ([]core.ProviderRecord, error) {
	matched, err := d.registry.FindByCapability(ctx, req.CapabilityQuery)
	if err != nil {
		return nil, err
	}

	if len(req.Exclude) > 0 {
		excluded := make(map[string]struct{}, len(req.Exclude))
		for _, id := range req.Exclude {
			excluded[id] = struct{}{}
		}
		kept := matched[:0]
		for _, p := range matched {
			if _, skip := excluded[p.ID]; !skip {
				kept = append(kept, p)
			}
		}
		matched = kept
	}

	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}

	return matched, nil
}

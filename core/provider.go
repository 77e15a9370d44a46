package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProviderStatus is the availability state of a provider.
type ProviderStatus string

const (
	StatusAvailable ProviderStatus = "available"
	StatusBusy      ProviderStatus = "busy"
	StatusOffline   ProviderStatus = "offline"
)

// ValidStatus reports whether s is one of the known provider states.
func ValidStatus(s ProviderStatus) bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// Reputation bounds. Every stored reputation value stays inside them.
const (
	MinReputation = 0.0
	MaxReputation = 100.0
)

// ClampReputation bounds v to [MinReputation, MaxReputation].
func ClampReputation(v float64) float64 {
	if v < MinReputation {
		return MinReputation
	}
	if v > MaxReputation {
		return MaxReputation
	}
	return v
}

// Capabilities describes the compute resources a provider offers.
type Capabilities struct {
	MemoryGB int    `json:"memory_gb"`
	Cores    int    `json:"cores"`
	Model    string `json:"model"`
}

// ProviderRecord is a registered compute provider. Mutated only through
// status transitions and reputation deltas.
type ProviderRecord struct {
	ID           string          `json:"id"`
	PubKey       string          `json:"pubkey"`
	Name         string          `json:"name"`
	Capabilities Capabilities    `json:"capabilities"`
	Status       ProviderStatus  `json:"status"`
	Reputation   float64         `json:"reputation"`
	Price        decimal.Decimal `json:"price"`
	RegisteredAt time.Time       `json:"registered_at"`
}

// CapabilityQuery is a set of minimum-requirement predicates. Zero-valued
// fields are not filtered on.
type CapabilityQuery struct {
	MinMemoryGB int            `json:"min_memory_gb"`
	MinCores    int            `json:"min_cores"`
	Model       string         `json:"model"`
	Status      ProviderStatus `json:"status"`
}

// Matches reports whether the provider satisfies every set predicate.
func (q CapabilityQuery) Matches(p *ProviderRecord) bool {
	if q.MinMemoryGB > 0 && p.Capabilities.MemoryGB < q.MinMemoryGB {
		return false
	}
	if q.MinCores > 0 && p.Capabilities.Cores < q.MinCores {
		return false
	}
	if q.Model != "" && !strings.Contains(p.Capabilities.Model, q.Model) {
		return false
	}
	if q.Status != "" && p.Status != q.Status {
		return false
	}
	return true
}

// Page is one page of providers in registration order.
type Page struct {
	Providers []ProviderRecord `json:"providers"`
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
	Total     int              `json:"total"`
}

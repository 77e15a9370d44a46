package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridpool/gridpool/adapters/store"
	"github.com/gridpool/gridpool/core"
)

func newRegistry(t *testing.T) (*Registry, *stubPublisher) {
	t.Helper()
	pub := &stubPublisher{}
	return NewRegistry(store.NewMemoryProviderStore(), pub), pub
}

func addProvider(t *testing.T, r *Registry, id string, rep float64, price int64, status core.ProviderStatus, caps core.Capabilities) {
	t.Helper()
	_, err := r.Register(context.Background(), &core.ProviderRecord{
		ID:           id,
		PubKey:       strings.Repeat("ab", 32),
		Name:         id,
		Capabilities: caps,
		Status:       status,
		Reputation:   rep,
		Price:        decimal.NewFromInt(price),
	})
	require.NoError(t, err)
}

func TestRegisterValidatesAndClamps(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	_, err := r.Register(ctx, &core.ProviderRecord{PubKey: "bogus", Status: core.StatusOffline})
	assert.ErrorIs(t, err, core.ErrInvalidIdentity)

	_, err = r.Register(ctx, &core.ProviderRecord{
		PubKey: strings.Repeat("ab", 32),
		Status: core.ProviderStatus("sleeping"),
	})
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	rec, err := r.Register(ctx, &core.ProviderRecord{
		PubKey:     strings.Repeat("ab", 32),
		Status:     core.StatusAvailable,
		Reputation: 150,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 100.0, rec.Reputation)
}

func TestApplyReputationDeltaClamps(t *testing.T) {
	r, pub := newRegistry(t)
	ctx := context.Background()

	addProvider(t, r, "high", 95, 1, core.StatusAvailable, core.Capabilities{})
	addProvider(t, r, "low", 3, 1, core.StatusAvailable, core.Capabilities{})

	got, err := r.ApplyReputationDelta(ctx, "high", 50)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)

	got, err = r.ApplyReputationDelta(ctx, "low", -20)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	assert.Equal(t, 2, pub.reps)
}

func TestApplyReputationDeltaNotFound(t *testing.T) {
	r, _ := newRegistry(t)

	_, err := r.ApplyReputationDelta(context.Background(), "missing", 5)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestApplyReputationDeltaConcurrent(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	addProvider(t, r, "p", 50, 1, core.StatusAvailable, core.Capabilities{})

	var wg sync.WaitGroup
	for _, delta := range []float64{5, 10} {
		wg.Add(1)
		go func(d float64) {
			defer wg.Done()
			_, err := r.ApplyReputationDelta(ctx, "p", d)
			assert.NoError(t, err)
		}(delta)
	}
	wg.Wait()

	rec, err := r.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 65.0, rec.Reputation)
}

func TestApplyReputationDeltaConcurrentMany(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	addProvider(t, r, "p", 10, 1, core.StatusAvailable, core.Capabilities{})

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.ApplyReputationDelta(ctx, "p", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := r.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec.Reputation)
}

func TestFindByCapabilityOrdering(t *testing.T) {
	r, _ := newRegistry(t)

	caps := core.Capabilities{MemoryGB: 24, Cores: 16, Model: "rtx4090"}
	addProvider(t, r, "A", 80, 5, core.StatusAvailable, caps)
	addProvider(t, r, "B", 80, 3, core.StatusAvailable, caps)
	addProvider(t, r, "C", 60, 1, core.StatusAvailable, caps)
	// Filtered out: busy, and below the memory floor.
	addProvider(t, r, "D", 90, 1, core.StatusBusy, caps)
	addProvider(t, r, "E", 90, 1, core.StatusAvailable, core.Capabilities{MemoryGB: 8})

	got, err := r.FindByCapability(context.Background(), core.CapabilityQuery{
		MinMemoryGB: 16,
		Status:      core.StatusAvailable,
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"B", "A", "C"}, ids)
}

func TestFindByCapabilityPredicates(t *testing.T) {
	r, _ := newRegistry(t)

	addProvider(t, r, "big", 50, 1, core.StatusAvailable, core.Capabilities{MemoryGB: 48, Cores: 32, Model: "rtx4090"})
	addProvider(t, r, "small", 50, 1, core.StatusAvailable, core.Capabilities{MemoryGB: 8, Cores: 4, Model: "rtx3060"})
	addProvider(t, r, "offline", 50, 1, core.StatusOffline, core.Capabilities{MemoryGB: 48, Cores: 32, Model: "rtx4090"})

	cases := []struct {
		name  string
		query core.CapabilityQuery
		want  []string
	}{
		{"no predicates matches all", core.CapabilityQuery{}, []string{"big", "small", "offline"}},
		{"min cores", core.CapabilityQuery{MinCores: 8}, []string{"big", "offline"}},
		{"model substring", core.CapabilityQuery{Model: "4090"}, []string{"big", "offline"}},
		{"status", core.CapabilityQuery{Status: core.StatusOffline}, []string{"offline"}},
		{"combined", core.CapabilityQuery{MinMemoryGB: 16, Status: core.StatusAvailable}, []string{"big"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.FindByCapability(context.Background(), tc.query)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.ElementsMatch(t, tc.want, ids)
		})
	}
}

func TestListPagination(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	addProvider(t, r, "one", 50, 1, core.StatusAvailable, core.Capabilities{})
	addProvider(t, r, "two", 50, 1, core.StatusAvailable, core.Capabilities{})
	addProvider(t, r, "three", 50, 1, core.StatusAvailable, core.Capabilities{})

	page, err := r.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Providers, 2)
	assert.Equal(t, "one", page.Providers[0].ID)
	assert.Equal(t, "two", page.Providers[1].ID)

	page, err = r.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Providers, 1)
	assert.Equal(t, "three", page.Providers[0].ID)

	// Past the end: an empty page, not an error.
	page, err = r.List(ctx, 3, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Providers)

	_, err = r.List(ctx, 0, 2)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
	_, err = r.List(ctx, 1, 0)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestUpdateStatus(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	addProvider(t, r, "p", 50, 1, core.StatusAvailable, core.Capabilities{})

	require.NoError(t, r.UpdateStatus(ctx, "p", core.StatusBusy))
	rec, err := r.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, core.StatusBusy, rec.Status)
	// Only the status changed.
	assert.Equal(t, 50.0, rec.Reputation)

	err = r.UpdateStatus(ctx, "missing", core.StatusBusy)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = r.UpdateStatus(ctx, "p", core.ProviderStatus("sleeping"))
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestDeregister(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	addProvider(t, r, "p", 50, 1, core.StatusAvailable, core.Capabilities{})
	require.NoError(t, r.Deregister(ctx, "p"))

	_, err := r.Get(ctx, "p")
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = r.Deregister(ctx, "p")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

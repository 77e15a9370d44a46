package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridpool/gridpool/core"
)

func pendingChallenge(id string) *core.Challenge {
	now := time.Now()
	return &core.Challenge{
		ID:             id,
		ServerPubKey:   "server",
		ClaimantPubKey: "claimant",
		IssuedAt:       now,
		ExpiresAt:      now.Add(time.Minute),
	}
}

func TestChallengeTakeConsumesExactlyOnce(t *testing.T) {
	s := NewMemoryChallengeStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, pendingChallenge("c1")))

	ch, err := s.Take(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", ch.ID)

	_, err = s.Take(ctx, "c1")
	assert.ErrorIs(t, err, core.ErrChallengeConsumed)
}

func TestChallengeTakeUnknown(t *testing.T) {
	s := NewMemoryChallengeStore()

	_, err := s.Take(context.Background(), "never-issued")
	assert.ErrorIs(t, err, core.ErrUnknownChallenge)
}

func TestChallengeDeleteLeavesNoMarker(t *testing.T) {
	s := NewMemoryChallengeStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, pendingChallenge("c1")))
	require.NoError(t, s.Delete(ctx, "c1"))
	require.NoError(t, s.Delete(ctx, "c1"))

	// Deleted, not consumed: the distinction matters to the caller.
	_, err := s.Take(ctx, "c1")
	assert.ErrorIs(t, err, core.ErrUnknownChallenge)
}

func TestProviderStoreRegistrationOrder(t *testing.T) {
	s := NewMemoryProviderStore()
	ctx := context.Background()

	for _, id := range []string{"one", "two", "three"} {
		require.NoError(t, s.Create(ctx, &core.ProviderRecord{
			ID:     id,
			Status: core.StatusAvailable,
			Price:  decimal.Zero,
		}))
	}

	records, total, err := s.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 2)
	assert.Equal(t, "one", records[0].ID)
	assert.Equal(t, "two", records[1].ID)

	records, _, err = s.List(ctx, 4, 2)
	require.NoError(t, err)
	assert.Empty(t, records)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[2].ID)
}

func TestProviderStoreUpdateAndDelete(t *testing.T) {
	s := NewMemoryProviderStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &core.ProviderRecord{
		ID:         "p",
		Status:     core.StatusAvailable,
		Reputation: 40,
		Price:      decimal.Zero,
	}))

	require.NoError(t, s.UpdateStatus(ctx, "p", core.StatusBusy))
	got, err := s.UpdateReputation(ctx, "p", func(cur float64) float64 { return cur + 2 })
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)

	rec, err := s.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, core.StatusBusy, rec.Status)
	assert.Equal(t, 42.0, rec.Reputation)

	require.NoError(t, s.Delete(ctx, "p"))
	_, err = s.Get(ctx, "p")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, s.UpdateStatus(ctx, "p", core.StatusBusy), core.ErrNotFound)
	_, err = s.UpdateReputation(ctx, "p", func(cur float64) float64 { return cur })
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestProviderStoreReturnsCopies(t *testing.T) {
	s := NewMemoryProviderStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &core.ProviderRecord{
		ID:     "p",
		Status: core.StatusAvailable,
		Price:  decimal.Zero,
	}))

	rec, err := s.Get(ctx, "p")
	require.NoError(t, err)
	rec.Status = core.StatusOffline

	fresh, err := s.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, core.StatusAvailable, fresh.Status)
}

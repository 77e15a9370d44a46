package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gridpool/gridpool/core"
	"github.com/gridpool/gridpool/identity"
	"github.com/gridpool/gridpool/ports"
)

// Issuer creates time-bound, single-use authentication challenges bound
// to a server identity and a claimant identity.
type Issuer struct {
	store ports.ChallengeStore
	ttl   time.Duration
}

// NewIssuer creates a new challenge issuer. The TTL must be positive.
func NewIssuer(store ports.ChallengeStore, ttl time.Duration) (*Issuer, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: challenge TTL must be positive", core.ErrInvalidConfiguration)
	}
	return &Issuer{store: store, ttl: ttl}, nil
}

// Issue generates a random challenge for the claimant and registers it in
// the pending store.
func (i *Issuer) Issue(ctx context.Context, serverPubKey, claimantPubKey string) (*core.Challenge, error) {
	if !identity.ValidPublicKey(serverPubKey) || !identity.ValidPublicKey(claimantPubKey) {
		return nil, core.ErrInvalidIdentity
	}

	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}

	now := time.Now()
	ch := &core.Challenge{
		ID:             hex.EncodeToString(idBytes),
		ServerPubKey:   serverPubKey,
		ClaimantPubKey: claimantPubKey,
		IssuedAt:       now,
		ExpiresAt:      now.Add(i.ttl),
	}

	if err := i.store.Put(ctx, ch); err != nil {
		return nil, fmt.Errorf("failed to register challenge: %w", err)
	}

	return ch, nil
}

// Invalidate removes a pending challenge. Invalidating an unknown or
// already-invalidated ID is a no-op.
func (i *Issuer) Invalidate(ctx context.Context, id string) error {
	return i.store.Delete(ctx, id)
}

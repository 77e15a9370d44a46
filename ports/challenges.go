package ports

import (
	"context"

	"github.com/gridpool/gridpool/core"
)

// ChallengeStore holds pending authentication challenges keyed by ID.
type ChallengeStore interface {
	// Put registers a pending challenge.
	Put(ctx context.Context, ch *core.Challenge) error

	// Take atomically consumes the challenge with the given ID, so that
	// at most one caller ever receives it. It returns
	// core.ErrChallengeConsumed if the challenge was already taken, and
	// core.ErrUnknownChallenge if it was never registered or was deleted.
	Take(ctx context.Context, id string) (*core.Challenge, error)

	// Delete removes a pending challenge without leaving a consumption
	// marker. Deleting an unknown ID is a no-op.
	Delete(ctx context.Context, id string) error
}

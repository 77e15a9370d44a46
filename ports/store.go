package ports

import (
	"context"
	"time"

	"github.com/gridpool/gridpool/core"
)

// SessionStore interface for refresh-token invalidation
type SessionStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// AuthRecordStore persists the durable outcome of successful
// authentications.
type AuthRecordStore interface {
	SaveAuthRecord(ctx context.Context, rec *core.AuthRecord) error
}

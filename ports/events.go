package ports

import "context"

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogin(ctx context.Context, pubkey string, recordID string) error
	PublishLogout(ctx context.Context, pubkey string, tokenID string) error
	PublishReputation(ctx context.Context, providerID string, previous, current float64) error
}

package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/gridpool/gridpool/ports"
)

// Topics published by this service.
const (
	TopicLogin      = "gridpool.auth.login"
	TopicLogout     = "gridpool.auth.logout"
	TopicReputation = "gridpool.provider.reputation"
)

// LoginEvent announces a completed authentication
type LoginEvent struct {
	PubKey   string `json:"pubkey"`
	RecordID string `json:"record_id"`
}

// LogoutEvent announces an invalidated session
type LogoutEvent struct {
	PubKey  string `json:"pubkey"`
	TokenID string `json:"token_id"`
}

// ReputationEvent announces an applied reputation delta
type ReputationEvent struct {
	ProviderID string  `json:"provider_id"`
	Previous   float64 `json:"previous"`
	Current    float64 `json:"current"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, pubkey string, recordID string) error {
	return p.publish(TopicLogin, LoginEvent{PubKey: pubkey, RecordID: recordID})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, pubkey string, tokenID string) error {
	return p.publish(TopicLogout, LogoutEvent{PubKey: pubkey, TokenID: tokenID})
}

// PublishReputation publishes a reputation change event
func (p *WatermillPublisher) PublishReputation(ctx context.Context, providerID string, previous, current float64) error {
	return p.publish(TopicReputation, ReputationEvent{
		ProviderID: providerID,
		Previous:   previous,
		Current:    current,
	})
}

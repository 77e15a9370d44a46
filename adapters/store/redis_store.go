package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridpool/gridpool/core"
	"github.com/gridpool/gridpool/ports"
)

// RedisChallengeStore is a Redis implementation of the ChallengeStore
// interface. Entries are kept well past their expiry so a late
// verification reports Expired rather than Unknown; the key TTL bounds
// store size in place of a sweep.
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisChallengeStore creates a new Redis challenge store
func NewRedisChallengeStore(client *redis.Client) ports.ChallengeStore {
	return &RedisChallengeStore{
		client: client,
		prefix: "gridpool:challenge:",
	}
}

func (s *RedisChallengeStore) pendingKey(id string) string  { return s.prefix + "pending:" + id }
func (s *RedisChallengeStore) consumedKey(id string) string { return s.prefix + "consumed:" + id }

// Put registers a pending challenge
func (s *RedisChallengeStore) Put(ctx context.Context, ch *core.Challenge) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	// Twice the remaining lifetime: the entry must outlive its expiry so
	// expiry is detected at verification time.
	retain := 2 * time.Until(ch.ExpiresAt)
	if retain < time.Minute {
		retain = time.Minute
	}

	if err := s.client.Set(ctx, s.pendingKey(ch.ID), payload, retain).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	return nil
}

// Take atomically consumes a pending challenge
func (s *RedisChallengeStore) Take(ctx context.Context, id string) (*core.Challenge, error) {
	val, err := s.client.GetDel(ctx, s.pendingKey(id)).Result()
	if err == nil {
		if err := s.client.Set(ctx, s.consumedKey(id), "1", consumedRetention).Err(); err != nil {
			return nil, fmt.Errorf("failed to mark challenge consumed: %w", err)
		}

		var ch core.Challenge
		if err := json.Unmarshal([]byte(val), &ch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
		}
		return &ch, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to take challenge: %w", err)
	}

	exists, err := s.client.Exists(ctx, s.consumedKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check challenge consumption: %w", err)
	}
	if exists > 0 {
		return nil, core.ErrChallengeConsumed
	}

	return nil, core.ErrUnknownChallenge
}

// Delete removes a pending challenge without a consumption marker
func (s *RedisChallengeStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.pendingKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// RedisProviderStore is a Redis implementation of the ProviderStore
// interface. Each record is a JSON value keyed by ID; a list tracks
// registration order. Reputation updates run through a WATCH-based CAS
// loop so concurrent deltas on one ID serialize without blocking other
// IDs.
type RedisProviderStore struct {
	client *redis.Client
	prefix string
}

// NewRedisProviderStore creates a new Redis provider store
func NewRedisProviderStore(client *redis.Client) ports.ProviderStore {
	return &RedisProviderStore{
		client: client,
		prefix: "gridpool:provider:",
	}
}

func (s *RedisProviderStore) recordKey(id string) string { return s.prefix + "record:" + id }
func (s *RedisProviderStore) orderKey() string           { return s.prefix + "order" }

func (s *RedisProviderStore) get(ctx context.Context, id string) (*core.ProviderRecord, error) {
	val, err := s.client.Get(ctx, s.recordKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider: %w", err)
	}

	var p core.ProviderRecord
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provider: %w", err)
	}
	return &p, nil
}

func (s *RedisProviderStore) set(ctx context.Context, pipe redis.Pipeliner, p *core.ProviderRecord) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal provider: %w", err)
	}
	pipe.Set(ctx, s.recordKey(p.ID), payload, 0)
	return nil
}

// Create adds a provider record in registration order
func (s *RedisProviderStore) Create(ctx context.Context, p *core.ProviderRecord) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal provider: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(p.ID), payload, 0)
		pipe.RPush(ctx, s.orderKey(), p.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

// Get returns the record with the given ID
func (s *RedisProviderStore) Get(ctx context.Context, id string) (*core.ProviderRecord, error) {
	return s.get(ctx, id)
}

// Delete removes a provider record
func (s *RedisProviderStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, s.recordKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	if deleted == 0 {
		return core.ErrNotFound
	}
	if err := s.client.LRem(ctx, s.orderKey(), 1, id).Err(); err != nil {
		return fmt.Errorf("failed to remove provider from order: %w", err)
	}
	return nil
}

// List returns records in registration order
func (s *RedisProviderStore) List(ctx context.Context, offset, limit int) ([]core.ProviderRecord, int, error) {
	total, err := s.client.LLen(ctx, s.orderKey()).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count providers: %w", err)
	}

	ids, err := s.client.LRange(ctx, s.orderKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list providers: %w", err)
	}

	out := make([]core.ProviderRecord, 0, len(ids))
	for _, id := range ids {
		p, err := s.get(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, int(total), nil
}

// All returns every record in registration order
func (s *RedisProviderStore) All(ctx context.Context) ([]core.ProviderRecord, error) {
	ids, err := s.client.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	out := make([]core.ProviderRecord, 0, len(ids))
	for _, id := range ids {
		p, err := s.get(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// UpdateStatus replaces the status field
func (s *RedisProviderStore) UpdateStatus(ctx context.Context, id string, status core.ProviderStatus) error {
	key := s.recordKey(id)

	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return core.ErrNotFound
		}
		if err != nil {
			return err
		}

		var p core.ProviderRecord
		if err := json.Unmarshal([]byte(val), &p); err != nil {
			return fmt.Errorf("failed to unmarshal provider: %w", err)
		}
		p.Status = status

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return s.set(ctx, pipe, &p)
		})
		return err
	}

	for {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("failed to update status: %w", err)
		}
		return err
	}
}

// UpdateReputation applies a CAS read-modify-write of the reputation field
func (s *RedisProviderStore) UpdateReputation(ctx context.Context, id string, apply func(current float64) float64) (float64, error) {
	key := s.recordKey(id)

	var updated float64
	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return core.ErrNotFound
		}
		if err != nil {
			return err
		}

		var p core.ProviderRecord
		if err := json.Unmarshal([]byte(val), &p); err != nil {
			return fmt.Errorf("failed to unmarshal provider: %w", err)
		}
		p.Reputation = apply(p.Reputation)
		updated = p.Reputation

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return s.set(ctx, pipe, &p)
		})
		return err
	}

	for {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			// Lost the race against a concurrent writer; retry with
			// the fresh value.
			continue
		}
		if errors.Is(err, core.ErrNotFound) {
			return 0, err
		}
		if err != nil {
			return 0, fmt.Errorf("failed to update reputation: %w", err)
		}
		return updated, nil
	}
}

// RedisAuthRecordStore persists auth records in Redis
type RedisAuthRecordStore struct {
	client *redis.Client
	key    string
}

// NewRedisAuthRecordStore creates a new Redis auth record store
func NewRedisAuthRecordStore(client *redis.Client) ports.AuthRecordStore {
	return &RedisAuthRecordStore{
		client: client,
		key:    "gridpool:authrecords",
	}
}

// SaveAuthRecord appends a record
func (s *RedisAuthRecordStore) SaveAuthRecord(ctx context.Context, rec *core.AuthRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal auth record: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to store auth record: %w", err)
	}
	return nil
}

// RedisSessionStore is a Redis implementation of the SessionStore
// interface
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a new Redis session store
func NewRedisSessionStore(client *redis.Client) ports.SessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "gridpool:invalidated:",
	}
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisSessionStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + tokenID

	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisSessionStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + tokenID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}

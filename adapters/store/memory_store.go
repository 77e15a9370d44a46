package store

import (
	"context"
	"sync"
	"time"

	"github.com/gridpool/gridpool/core"
	"github.com/gridpool/gridpool/ports"
)

// consumedRetention is how long a consumed challenge ID is remembered so
// replay attempts can be told apart from unknown challenges.
const consumedRetention = time.Hour

// MemoryChallengeStore is an in-memory implementation of the
// ChallengeStore interface.
type MemoryChallengeStore struct {
	pending  map[string]*core.Challenge
	consumed map[string]time.Time
	mu       sync.Mutex
}

// NewMemoryChallengeStore creates a new in-memory challenge store
func NewMemoryChallengeStore() ports.ChallengeStore {
	return &MemoryChallengeStore{
		pending:  make(map[string]*core.Challenge),
		consumed: make(map[string]time.Time),
	}
}

// Put registers a pending challenge
func (s *MemoryChallengeStore) Put(ctx context.Context, ch *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reclaimLocked()

	cp := *ch
	s.pending[ch.ID] = &cp
	return nil
}

// Take atomically consumes a pending challenge
func (s *MemoryChallengeStore) Take(ctx context.Context, id string) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.pending[id]; ok {
		delete(s.pending, id)
		s.consumed[id] = time.Now().Add(consumedRetention)
		cp := *ch
		return &cp, nil
	}

	if expiry, ok := s.consumed[id]; ok && time.Now().Before(expiry) {
		return nil, core.ErrChallengeConsumed
	}

	return nil, core.ErrUnknownChallenge
}

// Delete removes a pending challenge without a consumption marker
func (s *MemoryChallengeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
	return nil
}

// reclaimLocked drops expired consumption markers. Called with the lock
// held; keeps the store bounded without a background sweep.
func (s *MemoryChallengeStore) reclaimLocked() {
	now := time.Now()
	for id, expiry := range s.consumed {
		if now.After(expiry) {
			delete(s.consumed, id)
		}
	}
}

// MemoryProviderStore is an in-memory implementation of the ProviderStore
// interface. A single mutex guards the record map; UpdateReputation holds
// it across the read-modify-write so concurrent deltas on one ID never
// lose an update.
type MemoryProviderStore struct {
	records map[string]*core.ProviderRecord
	order   []string
	mu      sync.RWMutex
}

// NewMemoryProviderStore creates a new in-memory provider store
func NewMemoryProviderStore() ports.ProviderStore {
	return &MemoryProviderStore{
		records: make(map[string]*core.ProviderRecord),
	}
}

// Create adds a provider record in registration order
func (s *MemoryProviderStore) Create(ctx context.Context, p *core.ProviderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	cp := *p
	s.records[p.ID] = &cp
	return nil
}

// Get returns a copy of the record
func (s *MemoryProviderStore) Get(ctx context.Context, id string) (*core.ProviderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Delete removes a provider record
func (s *MemoryProviderStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.records, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns records in registration order
func (s *MemoryProviderStore) List(ctx context.Context, offset, limit int) ([]core.ProviderRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.order)
	if offset >= total {
		return []core.ProviderRecord{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	out := make([]core.ProviderRecord, 0, end-offset)
	for _, id := range s.order[offset:end] {
		out = append(out, *s.records[id])
	}
	return out, total, nil
}

// All returns a snapshot of every record
func (s *MemoryProviderStore) All(ctx context.Context) ([]core.ProviderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.ProviderRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out, nil
}

// UpdateStatus replaces the status field
func (s *MemoryProviderStore) UpdateStatus(ctx context.Context, id string, status core.ProviderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return core.ErrNotFound
	}
	p.Status = status
	return nil
}

// UpdateReputation applies a serialized read-modify-write of the
// reputation field
func (s *MemoryProviderStore) UpdateReputation(ctx context.Context, id string, apply func(current float64) float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return 0, core.ErrNotFound
	}
	p.Reputation = apply(p.Reputation)
	return p.Reputation, nil
}

// MemoryAuthRecordStore keeps auth records in memory
type MemoryAuthRecordStore struct {
	records []core.AuthRecord
	mu      sync.Mutex
}

// NewMemoryAuthRecordStore creates a new in-memory auth record store
func NewMemoryAuthRecordStore() *MemoryAuthRecordStore {
	return &MemoryAuthRecordStore{}
}

// SaveAuthRecord appends a record
func (s *MemoryAuthRecordStore) SaveAuthRecord(ctx context.Context, rec *core.AuthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *rec)
	return nil
}

// Records returns a snapshot of the saved records
func (s *MemoryAuthRecordStore) Records() []core.AuthRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.AuthRecord, len(s.records))
	copy(out, s.records)
	return out
}

// MemorySessionStore is an in-memory implementation of the SessionStore
// interface
type MemorySessionStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex
}

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore() ports.SessionStore {
	return &MemorySessionStore{
		invalidatedTokens: make(map[string]time.Time),
	}
}

// InvalidateToken marks a token as invalidated
func (s *MemorySessionStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidatedTokens[tokenID] = time.Now().Add(expiry)
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemorySessionStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	// Invalidation records past their expiry no longer matter
	if time.Now().After(expiryTime) {
		return false, nil
	}

	return true, nil
}

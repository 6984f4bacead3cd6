package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flash-service/flash_service/internal/infrastructure/cache"
)

// DefaultTTL is how long a completed response is replayed
const DefaultTTL = 24 * time.Hour

// pendingTTL bounds how long a crashed request can block its key
const pendingTTL = 2 * time.Minute

// Record is what is kept per key
type Record struct {
	RequestHash string `json:"request_hash"`
	Completed   bool   `json:"completed"`
	Status      int    `json:"status,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Store persists idempotency records in a cache
type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewStore creates a store; ttl of zero means DefaultTTL
func NewStore(c cache.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: c, ttl: ttl}
}

// Reserve claims key for a request with the given body hash. When the key is
// already taken the existing record is returned with reserved=false.
func (s *Store) Reserve(ctx context.Context, key, requestHash string) (existing *Record, reserved bool, err error) {
	ok, err := s.cache.SetNX(ctx, key, Record{RequestHash: requestHash}, pendingTTL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	var rec Record
	if err := s.cache.Get(ctx, key, &rec); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			// expired between SetNX and Get; try once more
			return s.Reserve(ctx, key, requestHash)
		}
		return nil, false, fmt.Errorf("failed to load idempotency key: %w", err)
	}
	return &rec, false, nil
}

// Complete stores the final response for replay
func (s *Store) Complete(ctx context.Context, key, requestHash string, status int, body []byte) error {
	return s.cache.Set(ctx, key, Record{
		RequestHash: requestHash,
		Completed:   true,
		Status:      status,
		Body:        body,
	}, s.ttl)
}

// Release frees a reserved key so the request can be retried
func (s *Store) Release(ctx context.Context, key string) error {
	return s.cache.Del(ctx, key)
}

package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

const pendingSetKey = "settlement:pending"

// PendingStore implements ports.PendingStore on a Redis set. Membership is
// keyed by transaction id, so parking the same id twice is harmless.
type PendingStore struct {
	client *goredis.Client
}

// NewPendingStore creates a new Redis-backed pending store.
func NewPendingStore(client *goredis.Client) *PendingStore {
	return &PendingStore{client: client}
}

// Add parks a transaction id for the reconciliation sweep.
func (s *PendingStore) Add(ctx context.Context, txID string) error {
	if err := s.client.SAdd(ctx, pendingSetKey, txID).Err(); err != nil {
		return fmt.Errorf("redis pending add: %w", err)
	}
	return nil
}

// Members returns all parked transaction ids.
func (s *PendingStore) Members(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, pendingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis pending members: %w", err)
	}
	return ids, nil
}

// Remove drops a transaction id once it reached a terminal state.
func (s *PendingStore) Remove(ctx context.Context, txID string) error {
	if err := s.client.SRem(ctx, pendingSetKey, txID).Err(); err != nil {
		return fmt.Errorf("redis pending remove: %w", err)
	}
	return nil
}

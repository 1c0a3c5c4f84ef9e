package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const oauthStateTTL = 10 * time.Minute

// RedisStateStore keeps issued OAuth state values for one login round trip.
type RedisStateStore struct{ client *redis.Client }

func NewStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func stateKey(state string) string { return "oauth_state:" + state }

func (s *RedisStateStore) Put(ctx context.Context, state string) error {
	if err := s.client.Set(ctx, stateKey(state), 1, oauthStateTTL).Err(); err != nil {
		return fmt.Errorf("put oauth state: %w", err)
	}
	return nil
}

// Consume deletes the state and reports whether it existed.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	n, err := s.client.Del(ctx, stateKey(state)).Result()
	if err != nil {
		return false, fmt.Errorf("consume oauth state: %w", err)
	}
	return n == 1, nil
}

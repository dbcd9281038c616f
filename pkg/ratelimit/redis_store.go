package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 5 * time.Second

// RedisStore persists rate limit state in Redis. Compare-and-swap is
// implemented with WATCH so that concurrent writers from different processes
// cannot lose updates.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a Redis-backed store. The key is namespaced per
// platform credential so different accounts do not share a limiter state.
func NewRedisStore(addr, platform, credential string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    fmt.Sprintf("socialingest:ratelimit:%s:%s", platform, credential),
	}
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Load reads the state from Redis, returning a zero state when the key is absent
func (s *RedisStore) Load() (State, uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, 0, nil
		}
		return State{}, 0, fmt.Errorf("failed to load state from redis: %w", err)
	}

	var envelope persistedState
	if err := json.Unmarshal([]byte(val), &envelope); err != nil {
		return State{}, 0, fmt.Errorf("failed to decode state from redis: %w", err)
	}
	return envelope.State, envelope.Version, nil
}

// CompareAndSwap writes the state inside a WATCH transaction if the stored
// version still matches.
func (s *RedisStore) CompareAndSwap(version uint64, state State) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	txf := func(tx *redis.Tx) error {
		current := uint64(0)
		val, err := tx.Get(ctx, s.key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var envelope persistedState
			if err := json.Unmarshal([]byte(val), &envelope); err != nil {
				return fmt.Errorf("failed to decode state from redis: %w", err)
			}
			current = envelope.Version
		}
		if current != version {
			return ErrVersionConflict
		}

		payload, err := json.Marshal(persistedState{Version: version + 1, State: state})
		if err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, payload, 0)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, s.key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}

package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

const (
	defaultPrefix = "banyan:"
	changeChannel = "banyan:changes"

	maxUpdateAttempts = 16
)

// RedisStore keeps values under a key prefix and announces writes on a
// pub/sub channel shared by every API replica.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	logger *logging.Logger
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client *redis.Client, logger *logging.Logger) *RedisStore {
	if client == nil {
		panic("kv: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisStore{redis: client, prefix: defaultPrefix, logger: logger}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	change, err := json.Marshal(Change{Key: key, Op: OpSet})
	if err != nil {
		return fmt.Errorf("kv: encode change: %w", err)
	}
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(key), value, 0)
		pipe.Publish(ctx, changeChannel, change)
		return nil
	})
	if err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}

// Update watches the key, applies fn to the value read inside the WATCH and
// commits SET + PUBLISH in MULTI/EXEC. A concurrent write to the key aborts
// the transaction and the whole read-modify-write is retried.
func (s *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	change, err := json.Marshal(Change{Key: key, Op: OpSet})
	if err != nil {
		return fmt.Errorf("kv: encode change: %w", err)
	}
	full := s.key(key)
	var fnErr error
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, full).Bytes()
		found := true
		if errors.Is(err, redis.Nil) {
			current, found = nil, false
		} else if err != nil {
			return err
		}
		next, err := fn(current, found)
		if err != nil {
			fnErr = err
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, full, next, 0)
			pipe.Publish(ctx, changeChannel, change)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		fnErr = nil
		err := s.redis.Watch(ctx, txf, full)
		switch {
		case err == nil:
			return nil
		case fnErr != nil:
			return fnErr
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return fmt.Errorf("kv: update %s: %w", key, err)
		}
	}
	s.logger.Warn("kv update gave up after conflicts", "key", key, "attempts", maxUpdateAttempts)
	return fmt.Errorf("kv: update %s: %w", key, ErrConflict)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	change, err := json.Marshal(Change{Key: key, Op: OpDelete})
	if err != nil {
		return fmt.Errorf("kv: encode change: %w", err)
	}
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(key))
		pipe.Publish(ctx, changeChannel, change)
		return nil
	})
	if err != nil {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed by the server, so
// writes made after it returns are always delivered.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan Change, error) {
	pubsub := s.redis.Subscribe(ctx, changeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("kv: subscribe: %w", err)
	}

	out := make(chan Change, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					s.logger.Warn("dropping malformed kv change", "error", err)
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

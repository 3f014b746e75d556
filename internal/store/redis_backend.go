package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores every key as a Redis string under a namespace and
// announces writes on the "<namespace>:changes" channel, so stores in
// other processes pointed at the same Redis see each other's writes.
type RedisBackend struct {
	client    *redis.Client
	namespace string
	logger    *slog.Logger
}

type changeMessage struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

func NewRedisBackend(client *redis.Client, namespace string, logger *slog.Logger) *RedisBackend {
	return &RedisBackend{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (r *RedisBackend) key(key string) string {
	return r.namespace + ":" + key
}

func (r *RedisBackend) channel() string {
	return r.namespace + ":changes"
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Broadcast(ctx context.Context, key, origin string) error {
	payload, err := json.Marshal(changeMessage{Key: key, Origin: origin})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel(), payload).Err()
}

// Watch subscribes to the change channel and returns once the
// subscription is confirmed. Delivery stops when ctx is cancelled.
func (r *RedisBackend) Watch(ctx context.Context, fn ChangeHandler) error {
	sub := r.client.Subscribe(ctx, r.channel())
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("redis subscribe %s: %w", r.channel(), err)
	}

	go func() {
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				change, err := decodeChange(msg.Payload)
				if err != nil {
					r.logger.Warn("Ignoring malformed store change message",
						"channel", msg.Channel,
						"error", err)
					continue
				}
				fn(change.Key, change.Origin)
			}
		}
	}()
	return nil
}

func decodeChange(payload string) (changeMessage, error) {
	var change changeMessage
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return change, err
	}
	if change.Key == "" {
		return change, errors.New("change message without key")
	}
	return change, nil
}

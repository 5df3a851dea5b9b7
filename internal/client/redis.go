package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the go-redis client. It backs the TTS audio cache, the
// speaking reply queue and notification fan-out.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client from URL.
// URL format: redis://[:password@]host:port/db
func NewRedisClient(url string) (*RedisClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// NewRedisClientFrom wraps an existing go-redis client.
func NewRedisClientFrom(c *redis.Client) *RedisClient {
	return &RedisClient{client: c}
}

// IsNil reports whether err is the redis "no value" sentinel, which BLPOP
// also returns on timeout.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Ping checks Redis connectivity.
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get returns the string stored at key. ok is false on a miss.
func (r *RedisClient) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	value, err = r.client.Get(ctx, key).Result()
	if IsNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores a string value with a TTL.
func (r *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// SetNX stores value only when key does not exist and reports whether it
// did.
func (r *RedisClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

// Del removes keys.
func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// RPush marshals value to JSON and pushes it to the right of a list.
func (r *RedisClient) RPush(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.client.RPush(ctx, key, data).Err()
}

// SetExpiry sets TTL on a key.
func (r *RedisClient) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

// BLPop performs a blocking left pop on key and returns the raw value.
// On timeout the error satisfies IsNil.
func (r *RedisClient) BLPop(ctx context.Context, timeout time.Duration, key string) ([]byte, error) {
	result, err := r.client.BLPop(ctx, timeout, key).Result()
	if err != nil {
		return nil, err
	}

	// BLPop returns [key, value] pair
	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected blpop result format")
	}

	return []byte(result[1]), nil
}

// Publish marshals value to JSON and publishes it on channel.
func (r *RedisClient) Publish(ctx context.Context, channel string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe delivers payloads published on channels matching pattern until
// ctx is cancelled.
func (r *RedisClient) Subscribe(ctx context.Context, pattern string, handle func(channel string, payload []byte)) error {
	sub := r.client.PSubscribe(ctx, pattern)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handle(msg.Channel, []byte(msg.Payload))
		}
	}
}

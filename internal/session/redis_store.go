package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStorage shares one storage profile between several runtimes. Every
// write is published on the profile's channel so watchers in other processes
// see logins and logouts.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(client *redis.Client, profile string) *RedisStorage {
	if profile == "" {
		profile = "default"
	}
	return &RedisStorage{
		client: client,
		prefix: "shdrug:" + profile + ":",
	}
}

func (r *RedisStorage) key(name string) string {
	return r.prefix + name
}

func (r *RedisStorage) channel() string {
	return r.prefix + "storage"
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: redis get: %w", err)
	}
	return val, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	r.publish(ctx, Event{Key: key, Value: value})
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.key(key)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	for _, key := range keys {
		r.publish(ctx, Event{Key: key, Deleted: true})
	}
	return nil
}

func (r *RedisStorage) Watch(ctx context.Context) (<-chan Event, error) {
	sub := r.client.Subscribe(ctx, r.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("session: redis subscribe: %w", err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
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
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// publish is best effort: a lost event only delays the next reminder refresh.
func (r *RedisStorage) publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = r.client.Publish(ctx, r.channel(), data).Err()
}

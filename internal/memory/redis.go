package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL bounds how long an idle session survives in a store.
const DefaultSessionTTL = 24 * time.Hour

// Connect parses a redis:// URL and verifies the server answers.
func Connect(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps sessions as hashes and contexts as capped lists.
type RedisStore struct {
	client   *redis.Client
	capacity int
	ttl      time.Duration
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client *redis.Client, capacity int, ttl time.Duration) *RedisStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, capacity: capacity, ttl: ttl}
}

func sessionKey(id string) string { return "ayu:session:" + id }
func contextKey(id string) string { return "ayu:context:" + id }

func (r *RedisStore) CreateSession(ctx context.Context, s Session) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(s.ID),
			"language", s.Language,
			"created_at", s.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.Expire(ctx, sessionKey(s.ID), r.ttl)
		pipe.Del(ctx, contextKey(s.ID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *RedisStore) GetSession(ctx context.Context, id string) (Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	if len(fields) == 0 {
		return Session{}, ErrSessionNotFound
	}

	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return Session{}, fmt.Errorf("invalid session timestamp: %w", err)
	}
	return Session{ID: id, Language: fields["language"], CreatedAt: created}, nil
}

func (r *RedisStore) LoadContext(ctx context.Context, sessionID string) (*Context, error) {
	entries, err := r.client.LRange(ctx, contextKey(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load context: %w", err)
	}
	return NewContext(r.capacity, entries...), nil
}

// AppendContext pushes and trims in one MULTI so the list never exceeds capacity.
func (r *RedisStore) AppendContext(ctx context.Context, sessionID, entry string) error {
	key := contextKey(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, entry)
		pipe.LTrim(ctx, key, int64(-r.capacity), -1)
		pipe.Expire(ctx, key, r.ttl)
		pipe.Expire(ctx, sessionKey(sessionID), r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append context: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteSession(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id), contextKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

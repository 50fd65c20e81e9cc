package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "energyagent:session:"

type RedisConfig struct {
	URL       string        `envconfig:"URL" split_words:"true" default:"redis://localhost:6379/0"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" split_words:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// RedisStore keeps one JSON document per user.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: prefix, now: time.Now}, nil
}

func (s *RedisStore) key(userID string) string {
	return s.keyPrefix + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) (map[string]any, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	raw, err := s.client.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Update(ctx context.Context, userID string, partial map[string]any) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	data, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	data = merge(data, partial, s.now())

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, s.key(userID), raw, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *RedisStore) ListAll(ctx context.Context) (map[string]map[string]any, error) {
	sessions := map[string]map[string]any{}
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		userID := strings.TrimPrefix(key, s.keyPrefix)
		data, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		sessions[userID] = data
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return sessions, nil
}

func (s *RedisStore) PurgeOlderThan(ctx context.Context, days int) (int, error) {
	sessions, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Duration(days) * 24 * time.Hour
	removed := 0
	for userID, data := range sessions {
		age, ok := sessionAge(data, s.now())
		if !ok {
			continue
		}
		if age > cutoff {
			if err := s.Delete(ctx, userID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

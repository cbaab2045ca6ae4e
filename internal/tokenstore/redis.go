package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minimarket/internal/domain"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client   *redis.Client
	tokenKey string
	dateKey  string
}

// NewRedis returns a store keeping the token and its issuance date under
// "<prefix>:token" and "<prefix>:token-init-date"
func NewRedis(client *redis.Client, prefix string) Store {
	return &redisStore{
		client:   client,
		tokenKey: prefix + ":token",
		dateKey:  prefix + ":token-init-date",
	}
}

func (r *redisStore) Load(ctx context.Context) (domain.Session, error) {
	values, err := r.client.MGet(ctx, r.tokenKey, r.dateKey).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	token, _ := values[0].(string)
	if token == "" {
		return domain.Session{}, nil
	}

	session := domain.Session{Token: token}
	if raw, ok := values[1].(string); ok && raw != "" {
		issued, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Session{}, fmt.Errorf("failed to parse token date: %w", err)
		}
		session.IssuedAt = issued
	}
	return session, nil
}

func (r *redisStore) Save(ctx context.Context, session domain.Session) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey, session.Token, 0)
		pipe.Set(ctx, r.dateKey, session.IssuedAt.UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *redisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.tokenKey, r.dateKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/global"
)

type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify"
	PurposePasswordReset TokenPurpose = "reset"
)

// TokenStore issues random tokens that can be redeemed exactly once before
// they expire.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func tokenKey(purpose TokenPurpose, token string) string {
	return fmt.Sprintf("token:%s:%s", purpose, token)
}

// Issue stores subject under a fresh token for ttl.
func (s *TokenStore) Issue(ctx context.Context, purpose TokenPurpose, subject string, ttl time.Duration) (string, error) {
	token := global.NewSecretToken()
	if err := s.client.Set(ctx, tokenKey(purpose, token), subject, ttl).Err(); err != nil {
		return "", fmt.Errorf("issue %s token: %w", purpose, err)
	}
	return token, nil
}

// Redeem returns the subject and deletes the token in one step.
func (s *TokenStore) Redeem(ctx context.Context, purpose TokenPurpose, token string) (string, error) {
	subject, err := s.client.GetDel(ctx, tokenKey(purpose, token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperr.Validation("token", "token is invalid or has expired")
	}
	if err != nil {
		return "", fmt.Errorf("redeem %s token: %w", purpose, err)
	}
	return subject, nil
}

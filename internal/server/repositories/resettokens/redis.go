package resettokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "authkeeper:reset"

type redisRecord struct {
	UserID     string    `json:"uid"`
	ValidUntil time.Time `json:"exp"`
}

// RedisRepository keeps tokens as keys with a native TTL. A per-user set
// indexes outstanding tokens so they can be dropped after a reset.
type RedisRepository struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client, now: time.Now}
}

func (r *RedisRepository) tokenKey(token string) string {
	return redisKeyPrefix + ":token:" + token
}

func (r *RedisRepository) userKey(userID string) string {
	return redisKeyPrefix + ":user:" + userID
}

func (r *RedisRepository) Create(ctx context.Context, t *models.PasswordResetToken) error {
	ttl := t.ValidUntil.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: reset token already expired", common.ErrorValidation)
	}

	payload, err := json.Marshal(redisRecord{UserID: t.UserID, ValidUntil: t.ValidUntil})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.tokenKey(t.Token), payload, ttl)
		p.SAdd(ctx, r.userKey(t.UserID), t.Token)
		// every token of a user shares the configured TTL, so the newest
		// one always outlives the rest
		p.Expire(ctx, r.userKey(t.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Consume relies on GETDEL being atomic.
func (r *RedisRepository) Consume(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	raw, err := r.client.GetDel(ctx, r.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	if err := r.client.SRem(ctx, r.userKey(rec.UserID), token).Err(); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	return &models.PasswordResetToken{Token: token, UserID: rec.UserID, ValidUntil: rec.ValidUntil}, nil
}

func (r *RedisRepository) DeleteByUserID(ctx context.Context, userID string) error {
	tokens, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, r.tokenKey(t))
	}
	keys = append(keys, r.userKey(userID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

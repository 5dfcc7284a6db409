package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const challengeKeyPrefix = "yks:challenge"

// ChallengeCache 按用户、按自然日缓存每日挑战
type ChallengeCache struct {
	Client *redis.Client
}

func NewChallengeCache(client *redis.Client) *ChallengeCache {
	return &ChallengeCache{Client: client}
}

func challengeKey(userID uint, day string) string {
	return fmt.Sprintf("%s:%d:%s", challengeKeyPrefix, userID, day)
}

// Get 未命中时返回 ok=false 且 err=nil
func (c *ChallengeCache) Get(ctx context.Context, userID uint, day string) ([]byte, bool, error) {
	payload, err := c.Client.Get(ctx, challengeKey(userID, day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (c *ChallengeCache) Set(ctx context.Context, userID uint, day string, payload []byte, ttl time.Duration) error {
	return c.Client.Set(ctx, challengeKey(userID, day), payload, ttl).Err()
}

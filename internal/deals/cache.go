// internal/deals/cache.go
package deals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"drift-workers/internal/common/database"
	apperrors "drift-workers/internal/common/errors"
	"drift-workers/internal/models"
	"drift-workers/internal/risk"
)

// SessionCache mirrors the session's profile and assessments.
type SessionCache interface {
	SaveProfile(ctx context.Context, profile models.UserProfile) error
	SaveAssessments(ctx context.Context, assessments map[string]risk.Assessment) error
}

// RedisSessionCache stores one session under {prefix}:{sessionID}:*. Every
// write refreshes the TTL.
type RedisSessionCache struct {
	client    *database.RedisClient
	prefix    string
	sessionID string
	ttl       time.Duration
}

func NewRedisSessionCache(client *database.RedisClient, prefix, sessionID string, ttl time.Duration) *RedisSessionCache {
	return &RedisSessionCache{client: client, prefix: prefix, sessionID: sessionID, ttl: ttl}
}

func (c *RedisSessionCache) profileKey() string {
	return fmt.Sprintf("%s:%s:profile", c.prefix, c.sessionID)
}

func (c *RedisSessionCache) assessmentsKey() string {
	return fmt.Sprintf("%s:%s:assessments", c.prefix, c.sessionID)
}

func (c *RedisSessionCache) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	if err := c.client.SetJSON(ctx, c.profileKey(), profile, c.ttl); err != nil {
		return apperrors.NewSessionCacheError("save_profile", err)
	}
	return nil
}

func (c *RedisSessionCache) SaveAssessments(ctx context.Context, assessments map[string]risk.Assessment) error {
	fields := make(map[string]interface{}, len(assessments))
	for id, a := range assessments {
		fields[id] = a
	}
	if err := c.client.HSetJSON(ctx, c.assessmentsKey(), fields, c.ttl); err != nil {
		return apperrors.NewSessionCacheError("save_assessments", err)
	}
	return nil
}

// LoadProfile returns the cached profile; ok is false when nothing is cached.
func (c *RedisSessionCache) LoadProfile(ctx context.Context) (profile models.UserProfile, ok bool, err error) {
	err = c.client.GetJSON(ctx, c.profileKey(), &profile)
	if errors.Is(err, redis.Nil) {
		return models.UserProfile{}, false, nil
	}
	if err != nil {
		return models.UserProfile{}, false, apperrors.NewSessionCacheError("load_profile", err)
	}
	return profile, true, nil
}

// LoadAssessments returns every cached assessment keyed by deal ID.
func (c *RedisSessionCache) LoadAssessments(ctx context.Context) (map[string]risk.Assessment, error) {
	raw, err := c.client.Client.HGetAll(ctx, c.assessmentsKey()).Result()
	if err != nil {
		return nil, apperrors.NewSessionCacheError("load_assessments", err)
	}
	out := make(map[string]risk.Assessment, len(raw))
	for id, v := range raw {
		var a risk.Assessment
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			return nil, apperrors.NewSessionCacheError("load_assessments", fmt.Errorf("deal %s: %w", id, err))
		}
		out[id] = a
	}
	return out, nil
}

// Clear removes the session keys.
func (c *RedisSessionCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.profileKey(), c.assessmentsKey()); err != nil {
		return apperrors.NewSessionCacheError("clear", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	drepo "CravePulse/internal/domain/repository"
	"CravePulse/pkg/cache"

	"github.com/redis/go-redis/v9"
)

const (
	activeSubjectsKey = "cravepulse:subjects:active"
	notifiedKeyFmt    = "notified:%s:%s"
)

// RedisSubjectRegistry tracks subjects with an active monitoring session in
// a Redis set, mirroring the session cache the wearable API maintains.
type RedisSubjectRegistry struct {
	client *redis.Client
}

// NewRedisSubjectRegistry creates the registry.
func NewRedisSubjectRegistry(client *redis.Client) drepo.SubjectRegistry {
	return &RedisSubjectRegistry{client: client}
}

func (r *RedisSubjectRegistry) Activate(ctx context.Context, subjectID string) error {
	return r.client.SAdd(ctx, activeSubjectsKey, subjectID).Err()
}

func (r *RedisSubjectRegistry) Deactivate(ctx context.Context, subjectID string) error {
	return r.client.SRem(ctx, activeSubjectsKey, subjectID).Err()
}

func (r *RedisSubjectRegistry) Active(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, activeSubjectsKey).Result()
}

func (r *RedisSubjectRegistry) IsActive(ctx context.Context, subjectID string) (bool, error) {
	return r.client.SIsMember(ctx, activeSubjectsKey, subjectID).Result()
}

// RedisNotificationGuard deduplicates notification emission per
// (subject, window) with a SETNX lock. The TTL only needs to outlive the
// window's retry horizon.
type RedisNotificationGuard struct {
	cache cache.Service
	ttl   time.Duration
}

// NewRedisNotificationGuard creates the dedup guard. Non-positive ttl
// defaults to 24h.
func NewRedisNotificationGuard(c cache.Service, ttl time.Duration) drepo.NotificationGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisNotificationGuard{cache: c, ttl: ttl}
}

func (g *RedisNotificationGuard) FirstEmission(ctx context.Context, subjectID, windowID string) (bool, error) {
	key := fmt.Sprintf(notifiedKeyFmt, subjectID, windowID)
	return g.cache.TryLock(ctx, key, g.ttl)
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Durgaprasad40/mira-nearby/internal/config"
	"github.com/Durgaprasad40/mira-nearby/internal/storage"
)

// RateLimiter defines the contract for enforcing and managing rate limits.
type RateLimiter interface {
	// AllowRecord checks if a user can store another raw location fix.
	AllowRecord(ctx context.Context, userID string) (bool, error)

	// AllowNearby checks if a session can run another nearby query.
	AllowNearby(ctx context.Context, sessionID string) (bool, error)

	// AllowSessionCreation checks if an IP can open a new viewing session.
	AllowSessionCreation(ctx context.Context, ip string) (bool, error)

	// AllowIPRequest checks if an IP can make a request.
	AllowIPRequest(ctx context.Context, ip string) (bool, error)

	// ResetLimits clears all rate limit counters for a user.
	ResetLimits(ctx context.Context, userID string) error
}

type Limiter struct {
	redis  storage.RedisClient
	config config.RateLimitConfig
}

func NewLimiter(redisClient storage.RedisClient, config config.RateLimitConfig) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: config,
	}
}

func (l *Limiter) AllowRecord(ctx context.Context, userID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:record:%s", userID)
	return l.checkSlidingWindow(ctx, key, l.config.RecordsPerMin, 60)
}

func (l *Limiter) AllowNearby(ctx context.Context, sessionID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:nearby:%s", sessionID)
	return l.checkSlidingWindow(ctx, key, l.config.NearbyPerMin, 60)
}

// AllowSessionCreation checks if an IP can open a new viewing session
func (l *Limiter) AllowSessionCreation(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:ip:%s:sessions", ip)

	count, err := l.redis.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check session creation rate limit: %w", err)
	}

	// Set expiration on first increment (1 hour)
	if count == 1 {
		l.redis.Expire(ctx, key, time.Hour)
	}

	return count <= int64(l.config.SessionsPerIPPerHour), nil
}

// AllowIPRequest checks if an IP can make a request
func (l *Limiter) AllowIPRequest(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:ip:%s:requests", ip)
	return l.checkSlidingWindow(ctx, key, l.config.RequestsPerMinute, 60)
}

// checkSlidingWindow implements a sliding window rate limiter using sorted sets
func (l *Limiter) checkSlidingWindow(ctx context.Context, key string, maxCount int, windowSec int) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - int64(windowSec)*int64(time.Second)

	// Remove old entries outside the window
	if err := l.redis.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", windowStart)); err != nil {
		return false, fmt.Errorf("failed to clean old entries: %w", err)
	}

	// Count entries in current window
	count, err := l.redis.ZCard(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to count entries: %w", err)
	}

	if count >= int64(maxCount) {
		return false, nil
	}

	// Add new entry
	if err := l.redis.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: fmt.Sprintf("%d", now),
	}); err != nil {
		return false, fmt.Errorf("failed to record request: %w", err)
	}

	l.redis.Expire(ctx, key, time.Duration(windowSec)*time.Second)

	return true, nil
}

// ResetLimits resets all rate limits for a user (use with caution)
func (l *Limiter) ResetLimits(ctx context.Context, userID string) error {
	keys := []string{
		fmt.Sprintf("ratelimit:record:%s", userID),
		fmt.Sprintf("ratelimit:nearby:%s", userID),
	}

	for _, key := range keys {
		if err := l.redis.Del(ctx, key); err != nil {
			return err
		}
	}

	return nil
}

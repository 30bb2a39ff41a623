package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/latitudexlabs/keycloak-events/pkg/httputil"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
)

// CallLimitConfig configures the per-organization call limiter
type CallLimitConfig struct {
	// WindowDuration is the period the plan call limit applies to.
	WindowDuration time.Duration
	// Prefix namespaces the redis keys.
	Prefix string
}

// DefaultCallLimitConfig matches the billing cycle granularity
func DefaultCallLimitConfig() *CallLimitConfig {
	return &CallLimitConfig{
		WindowDuration: 30 * 24 * time.Hour,
		Prefix:         "calllimit",
	}
}

// CallLimiter enforces the subscription_plan_call_limit attribute with a
// Redis counter shared across instances. Redis errors fail open so a
// cache outage cannot take the API surface down with it.
type CallLimiter struct {
	redis  *redis.Client
	config *CallLimitConfig
	logger *observability.Logger
}

// NewCallLimiter creates a Redis-backed call limiter
func NewCallLimiter(redisClient *redis.Client, config *CallLimitConfig, logger *observability.Logger) *CallLimiter {
	if config == nil {
		config = DefaultCallLimitConfig()
	}
	return &CallLimiter{redis: redisClient, config: config, logger: logger}
}

// Allow counts one call for the organization against its plan limit
func (l *CallLimiter) Allow(ctx context.Context, orgID string, limit int) (bool, error) {
	key := fmt.Sprintf("%s:%s", l.config.Prefix, orgID)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

// Remaining returns the calls left in the current window
func (l *CallLimiter) Remaining(ctx context.Context, orgID string, limit int) (int, error) {
	key := fmt.Sprintf("%s:%s", l.config.Prefix, orgID)

	count, err := l.redis.Get(ctx, key).Int()
	if err == redis.Nil {
		return limit, nil
	} else if err != nil {
		return 0, err
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter for an organization
func (l *CallLimiter) Reset(ctx context.Context, orgID string) error {
	key := fmt.Sprintf("%s:%s", l.config.Prefix, orgID)
	return l.redis.Del(ctx, key).Err()
}

// Handler wraps org-scoped endpoints with call-limit enforcement. Must
// run after OrgResolver. A nil limiter (redis disabled) passes through.
func (l *CallLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l == nil || l.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		org := GetOrg(r)
		if org == nil {
			next.ServeHTTP(w, r)
			return
		}

		limit := planCallLimit(org.Attributes)
		allowed, err := l.Allow(r.Context(), org.ID, limit)
		if err != nil {
			l.logger.WithError(err).Warn("call limiter unavailable, failing open")
		}
		if !allowed {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			httputil.WriteError(w, http.StatusTooManyRequests, "plan call limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func planCallLimit(attrs map[string][]string) int {
	sub := orgs.ParseSubscriptionAttributes(attrs)
	limit, err := strconv.Atoi(sub.CallLimit)
	if err != nil || limit <= 0 {
		limit, _ = strconv.Atoi(orgs.DefaultCallLimit)
	}
	return limit
}

package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latitudexlabs/keycloak-events/pkg/contextkeys"
	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
)

func newTestLimiter(t *testing.T) (*CallLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewCallLimiter(client, DefaultCallLimitConfig(), logger), mr
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "org1", 3)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "org1", 3)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRemainingAndReset(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "org1", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, remaining)

	_, err = limiter.Allow(ctx, "org1", 100)
	require.NoError(t, err)

	remaining, err = limiter.Remaining(ctx, "org1", 100)
	require.NoError(t, err)
	assert.Equal(t, 99, remaining)

	require.NoError(t, limiter.Reset(ctx, "org1"))
	remaining, err = limiter.Remaining(ctx, "org1", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, remaining)
}

func TestAllowFailsOpenOnRedisError(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	mr.Close()

	allowed, err := limiter.Allow(context.Background(), "org1", 1)
	assert.Error(t, err)
	assert.True(t, allowed)
}

func limiterRequest(org *identity.Organization) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/subscription/invoices", nil)
	return r.WithContext(contextkeys.WithOrg(r.Context(), org))
}

func TestHandlerEnforcesPlanLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	org := &identity.Organization{
		ID: "org1",
		Attributes: map[string][]string{
			orgs.AttrCallLimit: {"2"},
		},
	}

	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, limiterRequest(org))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, limiterRequest(org))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

func TestHandlerDefaultsLimitWhenUnparsable(t *testing.T) {
	assert.Equal(t, 100, planCallLimit(map[string][]string{orgs.AttrCallLimit: {"not-a-number"}}))
	assert.Equal(t, 100, planCallLimit(map[string][]string{}))
	assert.Equal(t, 5000, planCallLimit(map[string][]string{orgs.AttrCallLimit: {"5000"}}))
}

func TestNilLimiterPassesThrough(t *testing.T) {
	var limiter *CallLimiter
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

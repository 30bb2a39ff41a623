// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here to
// prevent typos and make key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.AuthContext
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Type: *auth.AuthContext
	AuthKey Key = "auth_context"

	// OrgKey contains *identity.Organization resolved from the
	// authenticated user's membership.
	// Set by: middleware.OrgResolver (pkg/middleware/org.go)
	// Type: *identity.Organization
	OrgKey Key = "organization"

	// RequestIDKey contains request ID string (UUID)
	// Type: string
	RequestIDKey Key = "request_id"
)

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// WithOrg adds the resolved organization to the context
func WithOrg(ctx context.Context, org interface{}) context.Context {
	return context.WithValue(ctx, OrgKey, org)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

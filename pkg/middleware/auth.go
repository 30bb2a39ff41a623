// Package middleware provides the HTTP middleware chain: bearer-token
// authentication, organization resolution, and the per-organization
// call-limit enforcement.
package middleware

import (
	"net/http"
	"strings"

	"github.com/latitudexlabs/keycloak-events/pkg/auth"
	"github.com/latitudexlabs/keycloak-events/pkg/contextkeys"
	"github.com/latitudexlabs/keycloak-events/pkg/httputil"
)

// AuthMiddleware authenticates requests with a bearer token verified
// against the identity provider.
type AuthMiddleware struct {
	verifier auth.TokenVerifier
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithAuth(r.Context(), auth.NewAuthContext(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	httputil.WriteError(w, http.StatusUnauthorized, message, nil)
}

// GetAuthContext extracts the auth context from a request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	v := r.Context().Value(contextkeys.AuthKey)
	if v == nil {
		return nil
	}
	authCtx, ok := v.(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// RequireAccountAccess gates the self-service subscription endpoints:
// the caller needs both manage-account and view-profile on the account
// client.
func RequireAccountAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil {
			unauthorized(w, "authentication required")
			return
		}
		if !authCtx.CanManageAccount() {
			httputil.WriteForbidden(w, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUsersView gates read access to organization attributes: the
// caller needs realm-management query-users and view-users.
func RequireUsersView(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil {
			unauthorized(w, "authentication required")
			return
		}
		if !authCtx.CanQueryUsers() || !authCtx.CanViewUsers() {
			httputil.WriteForbidden(w, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUsersManage additionally needs manage-users on top of the view
// roles; it gates attribute writes and plan-status overrides.
func RequireUsersManage(next http.Handler) http.Handler {
	return RequireUsersView(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if !authCtx.CanManageUsers() {
			httputil.WriteForbidden(w, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

package middleware

import (
	"net/http"

	"github.com/latitudexlabs/keycloak-events/pkg/contextkeys"
	"github.com/latitudexlabs/keycloak-events/pkg/httputil"
	"github.com/latitudexlabs/keycloak-events/pkg/identity"
)

// OrgResolver resolves the authenticated user's organization and makes
// it available to downstream handlers. Must run after AuthMiddleware.
type OrgResolver struct {
	store identity.Store
}

// NewOrgResolver creates a new organization resolver
func NewOrgResolver(store identity.Store) *OrgResolver {
	return &OrgResolver{store: store}
}

// Handler attaches the caller's organization to the request context. An
// authenticated user with no organization is a server-side invariant
// violation, reported as 500.
func (m *OrgResolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil {
			unauthorized(w, "authentication required")
			return
		}

		org, err := m.store.OrganizationForUser(r.Context(), authCtx.UserID)
		if err != nil {
			httputil.WriteInternalError(w, "cannot resolve session organization", err)
			return
		}

		ctx := contextkeys.WithOrg(r.Context(), org)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOrg extracts the resolved organization from a request
func GetOrg(r *http.Request) *identity.Organization {
	v := r.Context().Value(contextkeys.OrgKey)
	if v == nil {
		return nil
	}
	org, ok := v.(*identity.Organization)
	if !ok {
		return nil
	}
	return org
}

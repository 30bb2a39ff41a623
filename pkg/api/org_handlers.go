package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/latitudexlabs/keycloak-events/pkg/billing"
	"github.com/latitudexlabs/keycloak-events/pkg/httputil"
	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/middleware"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
)

// OrgHandlers serves the administrative organization endpoints:
// attribute inspection and patching, default restoration, and the plan
// status override.
type OrgHandlers struct {
	store       identity.Store
	attrs       *orgs.AttributeService
	billing     *billing.Service
	logger      *observability.Logger
	orgsEnabled bool
}

// NewOrgHandlers creates a new organization handlers instance
func NewOrgHandlers(store identity.Store, attrs *orgs.AttributeService, billingSvc *billing.Service, logger *observability.Logger, orgsEnabled bool) *OrgHandlers {
	return &OrgHandlers{
		store:       store,
		attrs:       attrs,
		billing:     billingSvc,
		logger:      logger,
		orgsEnabled: orgsEnabled,
	}
}

// RegisterRoutes registers organization routes
func (h *OrgHandlers) RegisterRoutes(r *mux.Router) {
	r.Handle("/{orgId}/attributes", middleware.RequireUsersView(http.HandlerFunc(h.getAttributes))).Methods("GET")
	r.Handle("/{orgId}/attributes", middleware.RequireUsersManage(http.HandlerFunc(h.patchAttributes))).Methods("PATCH")
	r.Handle("/{orgId}/attributes/defaults", middleware.RequireUsersManage(http.HandlerFunc(h.resetAttributes))).Methods("POST")
	r.Handle("/{orgId}/plan/{status}", middleware.RequireUsersManage(http.HandlerFunc(h.setPlanStatus))).Methods("POST")
}

// resolveOrg checks the organization feature gate and loads the
// organization from the path, writing the error response itself on
// failure.
func (h *OrgHandlers) resolveOrg(w http.ResponseWriter, r *http.Request) *identity.Organization {
	if !h.orgsEnabled {
		httputil.WriteBadRequest(w, "organizations are not enabled for this realm", nil)
		return nil
	}

	orgID, err := httputil.ParsePathString(r, "orgId")
	if err != nil {
		httputil.WriteBadRequest(w, "missing organization id", err)
		return nil
	}

	org, err := h.store.GetOrganization(r.Context(), orgID)
	if err != nil {
		if identity.IsNotFound(err) {
			httputil.WriteNotFound(w, "organization not found")
			return nil
		}
		h.logger.WithError(err).Errorf("failed to load organization %s", orgID)
		httputil.WriteInternalError(w, "failed to load organization", err)
		return nil
	}
	return org
}

// getAttributes handles GET /{orgId}/attributes
func (h *OrgHandlers) getAttributes(w http.ResponseWriter, r *http.Request) {
	org := h.resolveOrg(w, r)
	if org == nil {
		return
	}

	attrs, err := h.attrs.Get(r.Context(), org.ID)
	if err != nil {
		httputil.WriteInternalError(w, "failed to load attributes", err)
		return
	}
	if attrs == nil {
		attrs = map[string][]string{}
	}
	httputil.WriteSuccess(w, attrs)
}

// patchAttributes handles PATCH /{orgId}/attributes. Every key present
// in the body replaces its whole stored value list.
func (h *OrgHandlers) patchAttributes(w http.ResponseWriter, r *http.Request) {
	org := h.resolveOrg(w, r)
	if org == nil {
		return
	}

	var patch map[string][]string
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}
	if len(patch) == 0 {
		httputil.WriteBadRequest(w, "empty attribute patch", nil)
		return
	}

	if err := h.attrs.Merge(r.Context(), org.ID, patch); err != nil {
		httputil.WriteInternalError(w, "failed to update attributes", err)
		return
	}
	httputil.WriteNoContent(w)
}

// resetAttributes handles POST /{orgId}/attributes/defaults
func (h *OrgHandlers) resetAttributes(w http.ResponseWriter, r *http.Request) {
	org := h.resolveOrg(w, r)
	if org == nil {
		return
	}

	if err := h.billing.SetDefaultAttributes(r.Context(), org.ID); err != nil {
		httputil.WriteInternalError(w, "failed to reset attributes", err)
		return
	}
	httputil.WriteNoContent(w)
}

// setPlanStatus handles POST /{orgId}/plan/{status}
func (h *OrgHandlers) setPlanStatus(w http.ResponseWriter, r *http.Request) {
	org := h.resolveOrg(w, r)
	if org == nil {
		return
	}

	status, err := httputil.ParsePathString(r, "status")
	if err != nil {
		httputil.WriteBadRequest(w, "missing status", err)
		return
	}

	if err := h.billing.SetPlanStatus(r.Context(), org.ID, strings.ToLower(status)); err != nil {
		if err == billing.ErrInvalidStatus {
			httputil.WriteBadRequest(w, err.Error(), nil)
			return
		}
		h.logger.WithError(err).Errorf("failed to set plan status for organization %s", org.ID)
		httputil.WriteInternalError(w, "failed to set plan status", err)
		return
	}
	httputil.WriteNoContent(w)
}

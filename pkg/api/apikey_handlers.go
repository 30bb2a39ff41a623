package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/latitudexlabs/keycloak-events/pkg/forward"
	"github.com/latitudexlabs/keycloak-events/pkg/httputil"
	"github.com/latitudexlabs/keycloak-events/pkg/middleware"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
)

// APIKeyHandlers relays API-key management calls for the caller's
// organization to the upstream organization-management service.
type APIKeyHandlers struct {
	forwarder *forward.Forwarder
	logger    *observability.Logger
}

// NewAPIKeyHandlers creates a new API-key handlers instance
func NewAPIKeyHandlers(forwarder *forward.Forwarder, logger *observability.Logger) *APIKeyHandlers {
	return &APIKeyHandlers{
		forwarder: forwarder,
		logger:    logger,
	}
}

// RegisterRoutes registers API-key passthrough routes
func (h *APIKeyHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate-key", h.generateKey).Methods("POST")
	r.HandleFunc("/keys", h.listKeys).Methods("GET")
	r.HandleFunc("/keys/{keyLabel}", h.deleteKey).Methods("DELETE")
	r.HandleFunc("/api-usage", h.apiUsage).Methods("POST")
}

// generateKey handles POST /generate-key
func (h *APIKeyHandlers) generateKey(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)
	h.forwarder.GenerateKey(w, r, org.ID)
}

// listKeys handles GET /keys
func (h *APIKeyHandlers) listKeys(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)
	h.forwarder.ListKeys(w, r, org.ID)
}

// deleteKey handles DELETE /keys/{keyLabel}
func (h *APIKeyHandlers) deleteKey(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)

	keyLabel, err := httputil.ParsePathString(r, "keyLabel")
	if err != nil {
		httputil.WriteBadRequest(w, "missing key label", err)
		return
	}
	h.forwarder.DeleteKey(w, r, org.ID, keyLabel)
}

// apiUsage handles POST /api-usage
func (h *APIKeyHandlers) apiUsage(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)
	h.forwarder.APIUsage(w, r, org.ID)
}

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/latitudexlabs/keycloak-events/pkg/httputil"
	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
)

// Lifecycle event types accepted on the events endpoint.
const (
	EventUserAdded   = "USER_ADDED"
	EventUserRemoved = "USER_REMOVED"
)

// EventHandlers receives user lifecycle events pushed by the identity
// server and dispatches them to the registered handlers.
type EventHandlers struct {
	dispatcher *orgs.Dispatcher
	logger     *observability.Logger
}

// NewEventHandlers creates a new event handlers instance
func NewEventHandlers(dispatcher *orgs.Dispatcher, logger *observability.Logger) *EventHandlers {
	return &EventHandlers{dispatcher: dispatcher, logger: logger}
}

// RegisterRoutes registers event ingestion routes
func (h *EventHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/events", h.receiveEvent).Methods("POST")
}

// LifecycleEventRequest is the wire form of a pushed lifecycle event
type LifecycleEventRequest struct {
	Type  string `json:"type"`
	Realm struct {
		Name                 string `json:"name"`
		OrganizationsEnabled bool   `json:"organizations_enabled"`
	} `json:"realm"`
	User struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"user"`
}

// receiveEvent handles POST /events. Provisioning failures never
// surface here; the event is acknowledged once dispatched.
func (h *EventHandlers) receiveEvent(w http.ResponseWriter, r *http.Request) {
	var req LifecycleEventRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.User.ID == "" {
		httputil.WriteBadRequest(w, "user id is required", nil)
		return
	}

	event := orgs.UserEvent{
		Realm: identity.Realm{
			Name:                 req.Realm.Name,
			OrganizationsEnabled: req.Realm.OrganizationsEnabled,
		},
		User: identity.User{
			ID:        req.User.ID,
			Email:     req.User.Email,
			FirstName: req.User.FirstName,
			LastName:  req.User.LastName,
		},
	}

	switch strings.ToUpper(req.Type) {
	case EventUserAdded:
		h.dispatcher.UserAdded(r.Context(), event)
	case EventUserRemoved:
		h.dispatcher.UserRemoved(r.Context(), event)
	default:
		httputil.WriteBadRequest(w, "unsupported event type", nil)
		return
	}

	httputil.WriteNoContent(w)
}

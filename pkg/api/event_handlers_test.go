package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
)

func newEventRouter(t *testing.T) (*mux.Router, *identity.MemoryStore) {
	t.Helper()
	store := identity.NewMemoryStore()
	attrs := orgs.NewAttributeService(store)
	logger := testLogger()

	dispatcher := orgs.NewDispatcher(orgs.NewProvisioner(store, attrs, logger, nil))

	router := mux.NewRouter()
	NewEventHandlers(dispatcher, logger).RegisterRoutes(router)
	return router, store
}

func postEvent(router *mux.Router, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func TestReceiveUserAddedEventProvisionsOrganization(t *testing.T) {
	router, store := newEventRouter(t)

	rec := postEvent(router, `{
		"type": "USER_ADDED",
		"realm": {"name": "master", "organizations_enabled": true},
		"user": {"id": "u1", "email": "alice@example.com", "first_name": "Alice", "last_name": "Adams"}
	}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	org, err := store.GetOrganizationByName(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, store.Members(org.ID), "u1")

	sub := orgs.ParseSubscriptionAttributes(org.Attributes)
	assert.Equal(t, orgs.PlanFree, sub.PlanName)
}

func TestReceiveEventFeatureDisabledRealm(t *testing.T) {
	router, store := newEventRouter(t)

	rec := postEvent(router, `{
		"type": "USER_ADDED",
		"realm": {"name": "master", "organizations_enabled": false},
		"user": {"id": "u1", "email": "alice@example.com"}
	}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	organizations, err := store.ListOrganizations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, organizations)
}

func TestReceiveEventValidation(t *testing.T) {
	router, _ := newEventRouter(t)

	rec := postEvent(router, `{"type": "USER_ADDED", "user": {"id": ""}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postEvent(router, `{"type": "PASSWORD_RESET", "user": {"id": "u1"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postEvent(router, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiveUserRemovedEventIsAccepted(t *testing.T) {
	router, _ := newEventRouter(t)

	rec := postEvent(router, `{
		"type": "user_removed",
		"realm": {"name": "master", "organizations_enabled": true},
		"user": {"id": "u1"}
	}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

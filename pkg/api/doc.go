// Package api exposes the REST surface: organization attribute
// administration, self-service subscription lifecycle, invoice access,
// and API-key passthrough to the organization-management service.
//
// Handler groups register themselves on a shared gorilla/mux router.
// Admin endpoints are scoped by an explicit organization id in the path
// and require user-administration roles; self-service endpoints resolve
// the caller's organization from the bearer token and require account
// roles.
package api

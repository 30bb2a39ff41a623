package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/latitudexlabs/keycloak-events/pkg/billing"
	"github.com/latitudexlabs/keycloak-events/pkg/forward"
	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/middleware"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
)

// Server represents our API server
type Server struct {
	router *mux.Router

	store      identity.Store
	attrs      *orgs.AttributeService
	billing    *billing.Service
	reconcile  *billing.Reconciler
	forwarder  *forward.Forwarder
	dispatcher *orgs.Dispatcher

	authMW      *middleware.AuthMiddleware
	orgResolver *middleware.OrgResolver
	callLimiter *middleware.CallLimiter

	logger  *observability.Logger
	metrics *observability.Metrics

	// orgsEnabled gates the organization feature for the whole realm.
	orgsEnabled bool
}

// ServerOptions collects the collaborators a Server needs.
type ServerOptions struct {
	Store       identity.Store
	Attrs       *orgs.AttributeService
	Billing     *billing.Service
	Reconciler  *billing.Reconciler
	Forwarder   *forward.Forwarder
	Dispatcher  *orgs.Dispatcher
	AuthMW      *middleware.AuthMiddleware
	OrgResolver *middleware.OrgResolver
	CallLimiter *middleware.CallLimiter
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	OrgsEnabled bool
}

// NewServer creates a new API server and sets up all routes.
func NewServer(opts ServerOptions) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		store:       opts.Store,
		attrs:       opts.Attrs,
		billing:     opts.Billing,
		reconcile:   opts.Reconciler,
		forwarder:   opts.Forwarder,
		dispatcher:  opts.Dispatcher,
		authMW:      opts.AuthMW,
		orgResolver: opts.OrgResolver,
		callLimiter: opts.CallLimiter,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		orgsEnabled: opts.OrgsEnabled,
	}
	s.setupRoutes()
	return s
}

// Router returns the configured root router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(s.metrics.HTTPMiddleware(routeTemplate))
	}

	// Admin endpoints, scoped by explicit organization id.
	admin := s.router.PathPrefix("/api/v1/orgs").Subrouter()
	admin.Use(s.authMW.Handler)

	orgHandlers := NewOrgHandlers(s.store, s.attrs, s.billing, s.logger, s.orgsEnabled)
	orgHandlers.RegisterRoutes(admin)

	// Lifecycle events pushed by the identity server, behind the
	// user-administration roles.
	events := s.router.PathPrefix("/api/v1").Subrouter()
	events.Use(s.authMW.Handler)
	events.Use(middleware.RequireUsersManage)

	if s.dispatcher != nil {
		eventHandlers := NewEventHandlers(s.dispatcher, s.logger)
		eventHandlers.RegisterRoutes(events)
	}

	// Self-service endpoints, organization resolved from the bearer
	// token.
	self := s.router.PathPrefix("/api/v1/me").Subrouter()
	self.Use(s.authMW.Handler)
	self.Use(middleware.RequireAccountAccess)
	self.Use(s.orgResolver.Handler)
	if s.callLimiter != nil {
		self.Use(s.callLimiter.Handler)
	}

	subHandlers := NewSubscriptionHandlers(s.store, s.billing, s.reconcile, s.logger)
	subHandlers.RegisterRoutes(self)

	if s.forwarder != nil && s.forwarder.Enabled() {
		keyHandlers := NewAPIKeyHandlers(s.forwarder, s.logger)
		keyHandlers.RegisterRoutes(self)
	}
}

// routeTemplate returns the mux route template for metrics labels,
// falling back to the raw path for unmatched requests.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

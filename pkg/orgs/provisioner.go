package orgs

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
)

// UserEvent carries the realm and user of a lifecycle event.
type UserEvent struct {
	Realm identity.Realm
	User  identity.User
}

// UserChangedHandler reacts to user lifecycle events.
type UserChangedHandler interface {
	OnUserAdded(ctx context.Context, event UserEvent)
	OnUserRemoved(ctx context.Context, event UserEvent)
}

// Dispatcher fans a lifecycle event out to the registered handlers.
type Dispatcher struct {
	handlers []UserChangedHandler
}

// NewDispatcher creates a dispatcher over the given handlers
func NewDispatcher(handlers ...UserChangedHandler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

// UserAdded dispatches a "user added" event
func (d *Dispatcher) UserAdded(ctx context.Context, event UserEvent) {
	for _, h := range d.handlers {
		h.OnUserAdded(ctx, event)
	}
}

// UserRemoved dispatches a "user removed" event
func (d *Dispatcher) UserRemoved(ctx context.Context, event UserEvent) {
	for _, h := range d.handlers {
		h.OnUserRemoved(ctx, event)
	}
}

// EnsureResult is the outcome of EnsureOrganization: the organization the
// user now belongs to, and whether this call created it.
type EnsureResult struct {
	Org     *identity.Organization
	Created bool
}

// Provisioner guarantees every new user ends up owning exactly one
// organization. It implements UserChangedHandler; provisioning failures
// are logged and swallowed so they can never abort the surrounding
// user-creation flow.
type Provisioner struct {
	store   identity.Store
	attrs   *AttributeService
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewProvisioner creates a Provisioner
func NewProvisioner(store identity.Store, attrs *AttributeService, logger *observability.Logger, metrics *observability.Metrics) *Provisioner {
	return &Provisioner{store: store, attrs: attrs, logger: logger, metrics: metrics}
}

// OnUserAdded ensures an organization exists for the user.
func (p *Provisioner) OnUserAdded(ctx context.Context, event UserEvent) {
	if !event.Realm.OrganizationsEnabled {
		p.logger.Debugf("organization feature not enabled for realm %s", event.Realm.Name)
		return
	}

	result, err := p.EnsureOrganization(ctx, event.User)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ProvisioningErrorsTotal.Inc()
		}
		p.logger.WithError(err).Warnf("organization provisioning failed for user %s", event.User.Email)
		return
	}
	switch {
	case result.Org == nil:
		p.logger.Debugf("organization named %s already exists but has no matching alias", event.User.Email)
	case result.Created:
		p.logger.Debugf("created organization %s (%s) for user %s", result.Org.Name, result.Org.ID, event.User.Email)
	default:
		p.logger.Debugf("user %s already has organization %s", event.User.Email, result.Org.Name)
	}
}

// OnUserRemoved is a no-op: organization deletion is the identity
// store's concern.
func (p *Provisioner) OnUserRemoved(ctx context.Context, event UserEvent) {}

// EnsureOrganization resolves or creates the user's organization,
// idempotently. Concurrent first-login races resolve through the
// duplicate-name fallback: the loser finds the winner's organization by
// alias and joins it instead of erroring.
func (p *Provisioner) EnsureOrganization(ctx context.Context, user identity.User) (*EnsureResult, error) {
	existing, err := p.store.OrganizationForUser(ctx, user.ID)
	if err == nil {
		// Re-entrant invocation; re-adding the member is a no-op.
		if err := p.store.AddMember(ctx, existing.ID, user.ID); err != nil {
			return nil, err
		}
		return &EnsureResult{Org: existing}, nil
	}
	if !identity.IsNotFound(err) {
		return nil, err
	}

	org, err := p.store.CreateOrganization(ctx, user.Email, uuid.New().String())
	if identity.IsDuplicateName(err) {
		if p.metrics != nil {
			p.metrics.ProvisioningRacesTotal.Inc()
		}
		// Another request already created an organization with this
		// display name; join it instead of failing the event. The alias
		// lookup covers stores that default the alias to the name; the
		// name lookup covers the random-token alias written above.
		winner, lookupErr := p.store.GetOrganizationByAlias(ctx, user.Email)
		if identity.IsNotFound(lookupErr) {
			winner, lookupErr = p.store.GetOrganizationByName(ctx, user.Email)
		}
		if identity.IsNotFound(lookupErr) {
			return &EnsureResult{}, nil
		}
		if lookupErr != nil {
			return nil, lookupErr
		}
		if err := p.store.AddMember(ctx, winner.ID, user.ID); err != nil {
			return nil, err
		}
		return &EnsureResult{Org: winner}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := p.attrs.Merge(ctx, org.ID, DefaultSubscriptionAttributes().ToMap()); err != nil {
		return nil, err
	}
	if domains := domainsForEmail(user.Email); len(domains) > 0 {
		if err := p.store.SetDomains(ctx, org.ID, domains); err != nil {
			return nil, err
		}
	}
	if err := p.store.AddMember(ctx, org.ID, user.ID); err != nil {
		return nil, err
	}

	created, err := p.store.GetOrganization(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.OrgsProvisionedTotal.Inc()
	}
	return &EnsureResult{Org: created, Created: true}, nil
}

// domainsForEmail derives the verified domain set from the email. An
// email without an "@" yields no domains; provisioning still proceeds.
func domainsForEmail(email string) []identity.Domain {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return nil
	}
	return []identity.Domain{{Name: email[at+1:], Verified: true}}
}

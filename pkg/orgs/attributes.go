package orgs

import (
	"context"
	"strings"
	"sync"

	"github.com/latitudexlabs/keycloak-events/pkg/identity"
)

// Attribute keys used by the subscription lifecycle.
const (
	AttrPlanName     = "subscription_plan_name"
	AttrPlanID       = "subscription_plan_id"
	AttrBillingCycle = "subscription_plan_billing_cycle"
	AttrCallLimit    = "subscription_plan_call_limit"
	AttrSubscription = "subscription_id"
)

// Well-known plan names. Plans other than these come from the payment
// gateway.
const (
	PlanFree       = "free-plan"
	PlanEnterprise = "enterprise-plan"
	PlanAdmin      = "admin"
)

// Plan lifecycle statuses carried as the optional second element of
// subscription_plan_name.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Defaults applied at provisioning time and on full reset.
const (
	DefaultBillingCycle = "monthly"
	DefaultCallLimit    = "100"
)

// SubscriptionAttributes is the typed record behind the five attribute
// keys. Status is empty when the plan name carries no explicit status;
// readers treat that as active.
type SubscriptionAttributes struct {
	PlanName       string
	Status         string
	PlanID         string
	BillingCycle   string
	CallLimit      string
	SubscriptionID string
}

// DefaultSubscriptionAttributes returns the free-plan placeholder set
// written at provisioning time and restored on cancellation.
func DefaultSubscriptionAttributes() SubscriptionAttributes {
	return SubscriptionAttributes{
		PlanName:       PlanFree,
		PlanID:         "",
		BillingCycle:   DefaultBillingCycle,
		CallLimit:      DefaultCallLimit,
		SubscriptionID: "",
	}
}

// ParseSubscriptionAttributes reads the subscription record out of a raw
// attribute bag. Missing keys stay zero-valued; the bag may be partially
// populated for organizations provisioned by older code.
func ParseSubscriptionAttributes(attrs map[string][]string) SubscriptionAttributes {
	var sub SubscriptionAttributes
	if v := attrs[AttrPlanName]; len(v) > 0 {
		sub.PlanName = v[0]
		if len(v) > 1 {
			sub.Status = v[1]
		}
	}
	if v := attrs[AttrPlanID]; len(v) > 0 {
		sub.PlanID = v[0]
	}
	if v := attrs[AttrBillingCycle]; len(v) > 0 {
		sub.BillingCycle = v[0]
	}
	if v := attrs[AttrCallLimit]; len(v) > 0 {
		sub.CallLimit = v[0]
	}
	if v := attrs[AttrSubscription]; len(v) > 0 {
		sub.SubscriptionID = v[0]
	}
	return sub
}

// ToMap serializes the record into its attribute-bag form. The plan name
// list carries the status as a second element only when one is set;
// subscription_plan_name never has more than two elements.
func (s SubscriptionAttributes) ToMap() map[string][]string {
	planName := []string{s.PlanName}
	if s.Status != "" {
		planName = append(planName, s.Status)
	}
	return map[string][]string{
		AttrPlanName:     planName,
		AttrPlanID:       {s.PlanID},
		AttrBillingCycle: {s.BillingCycle},
		AttrCallLimit:    {s.CallLimit},
		AttrSubscription: {s.SubscriptionID},
	}
}

// Locked reports whether the organization's plan is exempt from
// self-service create/cancel transitions.
func (s SubscriptionAttributes) Locked() bool {
	return strings.EqualFold(s.PlanName, PlanEnterprise) || strings.EqualFold(s.PlanName, PlanAdmin)
}

// Free reports whether the organization is on the free plan. An absent
// plan name counts as free.
func (s SubscriptionAttributes) Free() bool {
	return s.PlanName == "" || strings.EqualFold(s.PlanName, PlanFree)
}

// HasSubscription reports whether a gateway subscription is bound to the
// organization. "" and "0" both mean none.
func (s SubscriptionAttributes) HasSubscription() bool {
	return s.SubscriptionID != "" && s.SubscriptionID != "0"
}

// EffectiveStatus returns the lifecycle status, defaulting to active
// when the plan name carries none.
func (s SubscriptionAttributes) EffectiveStatus() string {
	if s.Status == "" {
		return StatusActive
	}
	return s.Status
}

// AttributeService is the typed adapter over an organization's attribute
// bag. The underlying store offers no compare-and-swap, so the
// read-then-overwrite merge is serialized per organization with a keyed
// mutex. Two service instances against the same store can still race;
// that mirrors the upstream deployment model of one writer per org.
type AttributeService struct {
	store identity.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAttributeService creates an AttributeService over the given store
func NewAttributeService(store identity.Store) *AttributeService {
	return &AttributeService{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *AttributeService) orgLock(orgID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[orgID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[orgID] = l
	}
	return l
}

// Get returns the full attribute bag for an organization.
func (s *AttributeService) Get(ctx context.Context, orgID string) (map[string][]string, error) {
	return s.store.GetAttributes(ctx, orgID)
}

// Merge fetches the current bag, replaces the whole value list for every
// key present in patch, and writes the bag back. There is no per-element
// merge: a patched key's old list is discarded entirely.
func (s *AttributeService) Merge(ctx context.Context, orgID string, patch map[string][]string) error {
	l := s.orgLock(orgID)
	l.Lock()
	defer l.Unlock()

	current, err := s.store.GetAttributes(ctx, orgID)
	if err != nil {
		return err
	}
	if current == nil {
		current = make(map[string][]string)
	}
	for key, values := range patch {
		current[key] = append([]string(nil), values...)
	}
	return s.store.SetAttributes(ctx, orgID, current)
}

// Subscription returns the typed subscription record for an organization.
func (s *AttributeService) Subscription(ctx context.Context, orgID string) (SubscriptionAttributes, error) {
	attrs, err := s.store.GetAttributes(ctx, orgID)
	if err != nil {
		return SubscriptionAttributes{}, err
	}
	return ParseSubscriptionAttributes(attrs), nil
}

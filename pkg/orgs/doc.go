// Package orgs provides organization auto-provisioning and the typed view
// over the subscription attributes stored in the identity store's generic
// attribute bag.
//
// # Attribute schema
//
// Every provisioned organization carries five attribute keys:
//
//	subscription_plan_name          [planName] or [planName, status]
//	subscription_plan_id            [gatewayPlanID], "" when none
//	subscription_plan_billing_cycle [cycle], defaults "monthly"
//	subscription_plan_call_limit    [limit], defaults "100"
//	subscription_id                 [gatewaySubscriptionID], "" or "0" when none
//
// The attribute bag is the only persistence mechanism available to this
// service; SubscriptionAttributes is the typed record serialized to and
// from it at the store boundary.
package orgs

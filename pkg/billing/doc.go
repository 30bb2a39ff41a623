// Package billing owns the subscription state machine and its
// reconciliation with the payment gateway.
//
// # State machine
//
// An organization is Free (plan name free-plan or absent, no gateway
// subscription), PendingOrActive (a non-free plan name is present), or
// Locked (enterprise-plan or admin, exempt from self-service
// transitions). Creating a subscription is two-phase: the gateway
// subscription is created first and the local attributes only change
// when the payment signature is verified, mirroring asynchronous
// payment confirmation. Cancellation resets all five subscription
// attributes to the free-plan defaults, but only when the gateway
// confirms the cancelled status.
package billing

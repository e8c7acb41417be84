// Package orgs holds tenant records: the organization, its
// subscription plan and its subscription status. The usage limiter
// reads these to decide whether metered consumption is allowed; the
// billing package prices overages per plan.
package orgs

// Package api implements the CoachDesk HTTP API.
//
// The server exposes the permission resolver and usage limiter to the
// CRM backend over JSON. All routes under /v1 require a Bearer API
// key; /healthz and /metrics are open.
//
// # Routes
//
// Permissions and assignments:
//
//	GET    /v1/permissions/check?permission=...[&user_id=...]
//	GET    /v1/me/role
//	PUT    /v1/users/{user_id}/role
//	GET    /v1/clients/{client_id}/access
//	POST   /v1/assignments
//	DELETE /v1/assignments
//	GET    /v1/assignments/{coach_id}
//
// Usage:
//
//	GET  /v1/usage/check?resource=...&amount=N
//	POST /v1/usage/increment
//	POST /v1/usage/costs
//	GET  /v1/usage/summary
//	GET  /v1/usage/alerts
//
// API keys:
//
//	POST   /v1/keys
//	GET    /v1/keys
//	DELETE /v1/keys/{key_id}
//
// # Conventions
//
// Check endpoints always answer 200 with a boolean or a full check
// result in the body; HTTP status codes signal transport and
// authorization problems, not decision outcomes. Mutating counter
// endpoints answer 202 because recording is fire-and-forget.
//
// Middleware order is request ID, panic recovery, CORS, body cap,
// metrics, rate limiting, then per-route auth and org resolution. See
// pkg/middleware for the gates themselves.
package api

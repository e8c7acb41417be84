// Package middleware provides HTTP middleware for authentication,
// authorization, usage enforcement, and rate limiting.
//
// # Middleware Components
//
// AuthMiddleware: API-key authentication
//
//	authMw := middleware.NewAuthMiddleware(keyStore, logger, false)
//	router.Use(authMw.Handler)
//	// Extracts the Bearer key, validates it, attaches AuthContext
//
// RequirePermission: RBAC gate on a single permission
//
//	router.Handle("/team", middleware.RequirePermission(resolver, rbac.PermViewTeam)(handler))
//
// OrgContextMiddleware: resolves {org_id}/{org_slug} route variables
//
//	router.Use(middleware.OrgContextMiddleware(orgStore))
//
// EnforceUsage: usage-limit gate on mutating requests
//
//	router.Handle("/clients", middleware.EnforceUsage(limiter, usage.ResourceClients)(createClient))
//	// Denied checks return 429 with the full check result
//
// RateLimitMiddleware / DistributedRateLimitMiddleware: request rate
// limiting, in-process or Redis-backed. Redis errors fail open.
//
// # Ordering
//
// Middleware order matters. The intended chain is:
//
//	1. Observability (request logging, metrics)
//	2. RateLimit (cheap rejection before any DB work)
//	3. Auth (resolve the API key)
//	4. OrgContext (resolve the organization)
//	5. RequirePermission / EnforceUsage (per-route gates)
//
// # Rate Limiting
//
// Default (anonymous): 100 req/min, 10 burst
// Per-user: 1000 req/min, 50 burst
//
// # Related Packages
//
//   - pkg/auth: API key validation
//   - pkg/orgs: organization lookup
//   - pkg/rbac: permission checking
//   - pkg/usage: limit checking
package middleware

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/coachdesk/coachdesk/pkg/auth"
	"github.com/coachdesk/coachdesk/pkg/observability"
	"github.com/coachdesk/coachdesk/pkg/rbac"
)

type contextKey string

const authContextKey contextKey = "coachdesk.auth"

// AuthContext is the authenticated identity attached to a request.
type AuthContext struct {
	UserID         string
	OrganizationID string
	KeyID          string
}

// KeyValidator resolves a raw API key to its record.
type KeyValidator interface {
	ValidateKey(ctx context.Context, rawKey string) (*auth.APIKey, error)
}

// AuthMiddleware authenticates requests via Bearer API keys.
type AuthMiddleware struct {
	keys     KeyValidator
	logger   *observability.Logger
	optional bool
}

// NewAuthMiddleware creates authentication middleware. When optional is
// true, requests without a key pass through unauthenticated.
func NewAuthMiddleware(keys KeyValidator, logger *observability.Logger, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		keys:     keys,
		logger:   logger,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			unauthorizedResponse(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		key, err := m.keys.ValidateKey(r.Context(), parts[1])
		if err != nil {
			m.logger.WithError(err).Debug("api key rejected")
			unauthorizedResponse(w, "invalid or expired api key")
			return
		}

		authCtx := &AuthContext{
			UserID:         key.UserID,
			OrganizationID: key.OrganizationID,
			KeyID:          key.ID,
		}
		ctx := context.WithValue(r.Context(), authContextKey, authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts the authenticated identity from a request.
// It returns nil for unauthenticated requests.
func GetAuthContext(r *http.Request) *AuthContext {
	authCtx, ok := r.Context().Value(authContextKey).(*AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// WithAuthContext attaches an identity to a context. Intended for
// tests and internal callers.
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

// RequirePermission gates a handler on an RBAC permission for the
// authenticated user. Denials are 403; unauthenticated requests 401.
func RequirePermission(resolver *rbac.Resolver, permission rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r)
			if authCtx == nil {
				unauthorizedResponse(w, "authentication required")
				return
			}

			if err := resolver.RequirePermission(r.Context(), authCtx.UserID, permission); err != nil {
				forbiddenResponse(w, err.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

func forbiddenResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

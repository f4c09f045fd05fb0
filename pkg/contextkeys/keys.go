// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/tenantgate/tenantgate/pkg/contextkeys"
//   ctx = contextkeys.WithTenant(ctx, id)
//   id, ok := contextkeys.Tenant(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// TenantKey contains the tenant identifier resolved from the request host
	// Set by: tenant.Middleware (pkg/tenant/middleware.go)
	// Required by: auth service, SSO handlers, admin handlers
	// Type: string
	TenantKey Key = "tenant_id"

	// AuthKey contains *auth.Principal
	// Set by: auth.Middleware (pkg/auth/middleware.go)
	// Required by: admin endpoints
	// Type: *auth.Principal
	AuthKey Key = "auth_principal"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware, observability layer
	// Used by: Logger, request tracing
	// Type: string
	RequestIDKey Key = "request_id"
)

// WithTenant adds the resolved tenant identifier to the context
func WithTenant(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TenantKey, id)
}

// Tenant retrieves the resolved tenant identifier from the context
func Tenant(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(TenantKey).(string)
	return id, ok
}

// WithAuth adds the authenticated principal to the context
func WithAuth(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, principal)
}

// WithRequestID adds the request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request ID from the context
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

package tenant

import (
	"context"

	"github.com/tenantgate/tenantgate/pkg/contextkeys"
)

// WithIdentifier attaches the resolved tenant identifier to the context. The
// identifier is request-scoped: it lives exactly as long as the request
// context and can never leak into a concurrently-handled request.
func WithIdentifier(ctx context.Context, id string) context.Context {
	return contextkeys.WithTenant(ctx, id)
}

// FromContext returns the tenant identifier resolved for this request, if any
func FromContext(ctx context.Context) (string, bool) {
	id, ok := contextkeys.Tenant(ctx)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// IsSuperAdmin reports whether the request was resolved to the super-admin
// scope.
func IsSuperAdmin(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	return ok && id == SuperAdmin
}

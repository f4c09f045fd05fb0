package tenant

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/tenantgate/tenantgate/pkg/contextkeys"
	"github.com/tenantgate/tenantgate/pkg/observability"
)

// Middleware resolves the tenant for each request and attaches it to the
// request context, preferring the X-Forwarded-Host header over the transport
// host so the service works behind a reverse proxy. An unresolved host is
// passed through untagged; downstream handlers decide whether that is fatal.
func Middleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := r.Header.Get("X-Forwarded-Host")
			if host == "" {
				host = r.Host
			}

			ctx := contextkeys.WithRequestID(r.Context(), uuid.NewString())

			if id, ok := resolver.Resolve(host); ok {
				ctx = WithIdentifier(ctx, id)
			} else {
				observability.FromContext(ctx).
					WithField("host", host).
					Warn("could not resolve tenant from host")
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

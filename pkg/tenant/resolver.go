// Package tenant derives a tenant identity from request metadata and carries
// it on the request context.
//
// Every inbound request maps to exactly one tenant: requests for
// {label}.{baseDomain} resolve to tenant {label}, while requests for the base
// domain itself (or the loopback literal) resolve to the reserved super-admin
// scope. The resolved identifier lives only on the request context, so
// concurrent requests can never observe each other's tenant.
package tenant

import (
	"net"
	"strings"
)

// SuperAdmin is the reserved identifier for the super-admin scope, resolved
// when a request targets the base domain directly.
const SuperAdmin = "SUPERADMIN"

// Resolver maps a request's effective host to a tenant identifier
type Resolver struct {
	baseDomain string
	baseLabels []string
}

// NewResolver creates a resolver for the given base domain (e.g. "localhost"
// or "app.example.com").
func NewResolver(baseDomain string) *Resolver {
	normalized := strings.ToLower(strings.TrimSuffix(baseDomain, "."))
	return &Resolver{
		baseDomain: normalized,
		baseLabels: strings.Split(normalized, "."),
	}
}

// Resolve maps the externally-visible host to a tenant identifier. It returns
// SuperAdmin for the base domain or loopback, the leading label for a
// subdomain of the base domain, and ok=false when the host does not belong to
// the configured domain. Resolution is pure; an unresolved host is not itself
// an error.
func (r *Resolver) Resolve(host string) (string, bool) {
	host = strings.ToLower(stripPort(strings.TrimSpace(host)))
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", false
	}

	if host == r.baseDomain || host == "127.0.0.1" {
		return SuperAdmin, true
	}

	labels := strings.Split(host, ".")
	if len(labels) <= len(r.baseLabels) {
		return "", false
	}

	// Trailing labels must match the base domain positionally.
	offset := len(labels) - len(r.baseLabels)
	for i, base := range r.baseLabels {
		if labels[offset+i] != base {
			return "", false
		}
	}

	return labels[0], true
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

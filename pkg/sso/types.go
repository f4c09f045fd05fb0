package sso

import (
	"context"
	"net/http"

	"github.com/tenantgate/tenantgate/pkg/auth"
)

// Identity is the external identity asserted by an IdP after a successful
// protocol exchange. Email is the only required field; it is the join key
// into the local user table.
type Identity struct {
	Email     string
	FirstName string
	LastName  string
	Provider  auth.ProviderKind
}

// Provider is one SSO protocol variant. Both operations are scoped to the
// tenant whose configuration they use.
type Provider interface {
	// Kind returns the protocol this provider implements
	Kind() auth.ProviderKind

	// BeginLogin returns the absolute URL the browser should be sent to in
	// order to authenticate against the tenant's IdP.
	BeginLogin(ctx context.Context, tenant *auth.Tenant) (string, error)

	// HandleCallback consumes the IdP's return leg and produces the
	// asserted identity.
	HandleCallback(ctx context.Context, tenant *auth.Tenant, r *http.Request) (*Identity, error)
}

// configFor loads the enabled config for one provider kind, mapping the
// store's not-found into the protocol-level not-configured error.
func configFor(ctx context.Context, store auth.SSOConfigStore, tenantID int64, kind auth.ProviderKind) (*auth.SSOConfig, error) {
	config, err := store.FindSSOConfig(ctx, tenantID, kind)
	if err != nil {
		if err == auth.ErrNotFound {
			return nil, auth.ErrProviderNotConfigured(kind)
		}
		return nil, err
	}
	if !config.Enabled {
		return nil, auth.ErrProviderDisabled(kind)
	}
	return config, nil
}

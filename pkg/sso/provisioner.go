package sso

import (
	"context"

	"github.com/tenantgate/tenantgate/pkg/auth"
)

// placeholderNames labels provisioned accounts whose IdP supplied no name
// claims.
var placeholderNames = map[auth.ProviderKind][2]string{
	auth.ProviderJWT:   {"SSO", "User"},
	auth.ProviderOAuth: {"OAuth", "User"},
	auth.ProviderSAML:  {"SAML", "User"},
}

// UserProvisioner handles JIT (Just-In-Time) user provisioning for verified
// SSO identities.
type UserProvisioner struct {
	users auth.UserStore
}

// NewUserProvisioner creates a new user provisioner
func NewUserProvisioner(users auth.UserStore) *UserProvisioner {
	return &UserProvisioner{users: users}
}

// FindOrCreate returns the local account for identity, creating it on first
// login, and reports whether this call provisioned a new account. Creation
// is idempotent per email: concurrent first logins converge on a single
// record via the store's insert-if-absent, and only the race winner reports
// created. Provisioned accounts are END_USER, active, tenant-bound, and
// carry the SSO password sentinel so password login stays closed for them.
func (p *UserProvisioner) FindOrCreate(ctx context.Context, tenant *auth.Tenant, identity *Identity) (*auth.User, bool, error) {
	existing, err := p.users.FindUserByEmail(ctx, identity.Email)
	if err == nil {
		return existing, false, nil
	}
	if err != auth.ErrNotFound {
		return nil, false, err
	}

	firstName, lastName := identity.FirstName, identity.LastName
	if firstName == "" && lastName == "" {
		names := placeholderNames[identity.Provider]
		firstName, lastName = names[0], names[1]
	}

	return p.users.CreateUserIfAbsent(ctx, &auth.User{
		Email:        identity.Email,
		PasswordHash: auth.SSOPasswordSentinel,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         auth.RoleEndUser,
		Active:       true,
		TenantID:     tenant.ID,
	})
}

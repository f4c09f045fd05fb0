package auth

import (
	"context"
	"errors"
)

// ErrNotFound is returned by store lookups when no record matches
var ErrNotFound = errors.New("not found")

// UserStore is the persistence collaborator for user accounts. Email is
// globally unique across tenants.
type UserStore interface {
	FindUserByID(ctx context.Context, id int64) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsersByRole(ctx context.Context, role Role) ([]*User, error)
	ListUsersByTenantAndRole(ctx context.Context, tenantID int64, role Role) ([]*User, error)

	// CreateUser persists a new user; a duplicate email fails with a
	// *Error carrying CodeDuplicateEmail.
	CreateUser(ctx context.Context, user *User) error

	// CreateUserIfAbsent atomically inserts the user unless one with the
	// same email already exists, returning the winning record either way
	// and whether this call's insert won. Concurrent first logins for the
	// same email must yield one user and exactly one true.
	CreateUserIfAbsent(ctx context.Context, user *User) (*User, bool, error)

	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id int64) error
}

// TenantStore is the persistence collaborator for tenants
type TenantStore interface {
	FindTenantByID(ctx context.Context, id int64) (*Tenant, error)
	FindTenantBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	CreateTenant(ctx context.Context, tenant *Tenant) error
}

// SSOConfigStore is the persistence collaborator for per-tenant SSO
// configuration, keyed by (tenant, provider).
type SSOConfigStore interface {
	FindSSOConfig(ctx context.Context, tenantID int64, provider ProviderKind) (*SSOConfig, error)
	ListEnabledSSOConfigs(ctx context.Context, tenantID int64) ([]*SSOConfig, error)
	SaveSSOConfig(ctx context.Context, config *SSOConfig) error
}

// Store aggregates the persistence collaborators the identity boundary needs
type Store interface {
	UserStore
	TenantStore
	SSOConfigStore
}

package auth

import "time"

// Role is the closed set of user roles. Access rules are role-specific and
// never threshold-based; there is no privilege ordering between roles.
type Role string

const (
	RoleSuperAdmin    Role = "SUPER_ADMIN"
	RoleCustomerAdmin Role = "CUSTOMER_ADMIN"
	RoleEndUser       Role = "END_USER"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCustomerAdmin, RoleEndUser:
		return true
	}
	return false
}

// SSOPasswordSentinel marks accounts provisioned through SSO; it is never a
// valid bcrypt hash, so password login always fails for these accounts.
const SSOPasswordSentinel = "SSO_USER"

// Tenant represents an isolated customer organization, discriminated by its
// subdomain label.
type Tenant struct {
	ID        int64     `json:"id"`
	Subdomain string    `json:"subdomain"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents a user account bound to a tenant
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt hash or SSOPasswordSentinel
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	TenantID     int64     `json:"tenant_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsSSOOnly reports whether the account was provisioned through SSO and has
// no usable password.
func (u *User) IsSSOOnly() bool {
	return u.PasswordHash == SSOPasswordSentinel
}

// FullName returns the display name for the user
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// ProviderKind identifies an SSO protocol variant
type ProviderKind string

const (
	ProviderJWT   ProviderKind = "JWT"
	ProviderOAuth ProviderKind = "OAUTH"
	ProviderSAML  ProviderKind = "SAML"
)

// SSOConfig holds the per-tenant configuration for one SSO provider. At most
// one enabled config per (tenant, provider) pair is meaningful.
type SSOConfig struct {
	ID       int64        `json:"id"`
	TenantID int64        `json:"tenant_id"`
	Provider ProviderKind `json:"provider"`
	Enabled  bool         `json:"enabled"`

	// JWT provider fields
	JWTTokenEndpoint string `json:"jwt_token_endpoint,omitempty"`
	JWTSecret        string `json:"-"` // shared HS256 secret
	JWTCertificate   string `json:"jwt_certificate,omitempty"` // PEM X.509 for RS256

	// OAuth2 provider fields
	OAuthAuthorizationURL string `json:"oauth_authorization_url,omitempty"`
	OAuthTokenURL         string `json:"oauth_token_url,omitempty"`
	OAuthUserInfoURL      string `json:"oauth_user_info_url,omitempty"`
	OAuthClientID         string `json:"oauth_client_id,omitempty"`
	OAuthClientSecret     string `json:"-"`
	OAuthRedirectURI      string `json:"oauth_redirect_uri,omitempty"`
	OAuthScopes           string `json:"oauth_scopes,omitempty"`

	// SAML provider fields
	SAMLSSOURL      string `json:"saml_sso_url,omitempty"`
	SAMLACSURL      string `json:"saml_acs_url,omitempty"`
	SAMLSPEntityID  string `json:"saml_sp_entity_id,omitempty"`
	SAMLCertificate string `json:"saml_certificate,omitempty"` // IdP signing cert, PEM

	// IdPEntityID is the issuer; the OAuth variant derives its userinfo
	// fallback endpoint from it.
	IdPEntityID string `json:"idp_entity_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal is the authenticated identity attached to a request after a
// bearer token is validated.
type Principal struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	TenantID int64  `json:"tenant_id"`
}

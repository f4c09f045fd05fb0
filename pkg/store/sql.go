package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/tenantgate/tenantgate/pkg/auth"
)

// SQL is a Postgres-backed implementation of auth.Store. The users table
// carries a unique constraint on email; CreateUserIfAbsent relies on it to
// stay race-free under concurrent first logins.
type SQL struct {
	db *sql.DB
}

// NewSQL creates a SQL store over an open database handle
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

const userColumns = "id, email, password_hash, first_name, last_name, role, active, tenant_id, created_at, updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*auth.User, error) {
	user := &auth.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName,
		&user.LastName, &user.Role, &user.Active, &user.TenantID,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// FindUserByID implements auth.UserStore
func (s *SQL) FindUserByID(ctx context.Context, id int64) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

// FindUserByEmail implements auth.UserStore
func (s *SQL) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, email)
	return scanUser(row)
}

func (s *SQL) listUsers(ctx context.Context, query string, args ...interface{}) ([]*auth.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListUsersByRole implements auth.UserStore
func (s *SQL) ListUsersByRole(ctx context.Context, role auth.Role) ([]*auth.User, error) {
	return s.listUsers(ctx, `
		SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id
	`, role)
}

// ListUsersByTenantAndRole implements auth.UserStore
func (s *SQL) ListUsersByTenantAndRole(ctx context.Context, tenantID int64, role auth.Role) ([]*auth.User, error) {
	return s.listUsers(ctx, `
		SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND role = $2 ORDER BY id
	`, tenantID, role)
}

// CreateUser implements auth.UserStore
func (s *SQL) CreateUser(ctx context.Context, user *auth.User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, role, active, tenant_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.Active, user.TenantID).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicateEmail(user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// CreateUserIfAbsent implements auth.UserStore. ON CONFLICT DO NOTHING makes
// the insert atomic per email; when another request won the race, the
// winner's row is fetched instead of surfacing an error.
func (s *SQL) CreateUserIfAbsent(ctx context.Context, user *auth.User) (*auth.User, bool, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, role, active, tenant_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (email) DO NOTHING
		RETURNING id, created_at, updated_at
	`, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.Active, user.TenantID).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err == nil {
		copied := *user
		return &copied, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to provision user: %w", err)
	}

	// Lost the race: the conflicting row already exists.
	existing, err := s.FindUserByEmail(ctx, user.Email)
	return existing, false, err
}

// UpdateUser implements auth.UserStore
func (s *SQL) UpdateUser(ctx context.Context, user *auth.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, active = $3, updated_at = NOW()
		WHERE id = $4
	`, user.FirstName, user.LastName, user.Active, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRowAffected(result)
}

// DeleteUser implements auth.UserStore
func (s *SQL) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowAffected(result)
}

const tenantColumns = "id, subdomain, name, active, created_at, updated_at"

func scanTenant(row interface{ Scan(...interface{}) error }) (*auth.Tenant, error) {
	tenant := &auth.Tenant{}
	err := row.Scan(&tenant.ID, &tenant.Subdomain, &tenant.Name, &tenant.Active,
		&tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return tenant, nil
}

// FindTenantByID implements auth.TenantStore
func (s *SQL) FindTenantByID(ctx context.Context, id int64) (*auth.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants WHERE id = $1
	`, id)
	return scanTenant(row)
}

// FindTenantBySubdomain implements auth.TenantStore
func (s *SQL) FindTenantBySubdomain(ctx context.Context, subdomain string) (*auth.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1
	`, subdomain)
	return scanTenant(row)
}

// CreateTenant implements auth.TenantStore
func (s *SQL) CreateTenant(ctx context.Context, tenant *auth.Tenant) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tenants (subdomain, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, tenant.Subdomain, tenant.Name, tenant.Active).
		Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.NewError(auth.CodeDuplicateTenant, "tenant subdomain already exists: "+tenant.Subdomain)
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

const ssoConfigColumns = `id, tenant_id, provider, enabled,
	jwt_token_endpoint, jwt_secret, jwt_certificate,
	oauth_authorization_url, oauth_token_url, oauth_user_info_url,
	oauth_client_id, oauth_client_secret, oauth_redirect_uri, oauth_scopes,
	saml_sso_url, saml_acs_url, saml_sp_entity_id, saml_certificate,
	idp_entity_id, created_at, updated_at`

func scanSSOConfig(row interface{ Scan(...interface{}) error }) (*auth.SSOConfig, error) {
	config := &auth.SSOConfig{}
	err := row.Scan(&config.ID, &config.TenantID, &config.Provider, &config.Enabled,
		&config.JWTTokenEndpoint, &config.JWTSecret, &config.JWTCertificate,
		&config.OAuthAuthorizationURL, &config.OAuthTokenURL, &config.OAuthUserInfoURL,
		&config.OAuthClientID, &config.OAuthClientSecret, &config.OAuthRedirectURI, &config.OAuthScopes,
		&config.SAMLSSOURL, &config.SAMLACSURL, &config.SAMLSPEntityID, &config.SAMLCertificate,
		&config.IdPEntityID, &config.CreatedAt, &config.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return config, nil
}

// FindSSOConfig implements auth.SSOConfigStore
func (s *SQL) FindSSOConfig(ctx context.Context, tenantID int64, provider auth.ProviderKind) (*auth.SSOConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ssoConfigColumns+` FROM sso_configs WHERE tenant_id = $1 AND provider = $2
	`, tenantID, provider)
	return scanSSOConfig(row)
}

// ListEnabledSSOConfigs implements auth.SSOConfigStore
func (s *SQL) ListEnabledSSOConfigs(ctx context.Context, tenantID int64) ([]*auth.SSOConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ssoConfigColumns+` FROM sso_configs
		WHERE tenant_id = $1 AND enabled = true
		ORDER BY provider
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*auth.SSOConfig
	for rows.Next() {
		config, err := scanSSOConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	return configs, rows.Err()
}

// SaveSSOConfig implements auth.SSOConfigStore
func (s *SQL) SaveSSOConfig(ctx context.Context, config *auth.SSOConfig) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sso_configs (
			tenant_id, provider, enabled,
			jwt_token_endpoint, jwt_secret, jwt_certificate,
			oauth_authorization_url, oauth_token_url, oauth_user_info_url,
			oauth_client_id, oauth_client_secret, oauth_redirect_uri, oauth_scopes,
			saml_sso_url, saml_acs_url, saml_sp_entity_id, saml_certificate,
			idp_entity_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
		ON CONFLICT (tenant_id, provider) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			jwt_token_endpoint = EXCLUDED.jwt_token_endpoint,
			jwt_secret = EXCLUDED.jwt_secret,
			jwt_certificate = EXCLUDED.jwt_certificate,
			oauth_authorization_url = EXCLUDED.oauth_authorization_url,
			oauth_token_url = EXCLUDED.oauth_token_url,
			oauth_user_info_url = EXCLUDED.oauth_user_info_url,
			oauth_client_id = EXCLUDED.oauth_client_id,
			oauth_client_secret = EXCLUDED.oauth_client_secret,
			oauth_redirect_uri = EXCLUDED.oauth_redirect_uri,
			oauth_scopes = EXCLUDED.oauth_scopes,
			saml_sso_url = EXCLUDED.saml_sso_url,
			saml_acs_url = EXCLUDED.saml_acs_url,
			saml_sp_entity_id = EXCLUDED.saml_sp_entity_id,
			saml_certificate = EXCLUDED.saml_certificate,
			idp_entity_id = EXCLUDED.idp_entity_id,
			updated_at = NOW()
		RETURNING id
	`, config.TenantID, config.Provider, config.Enabled,
		config.JWTTokenEndpoint, config.JWTSecret, config.JWTCertificate,
		config.OAuthAuthorizationURL, config.OAuthTokenURL, config.OAuthUserInfoURL,
		config.OAuthClientID, config.OAuthClientSecret, config.OAuthRedirectURI, config.OAuthScopes,
		config.SAMLSSOURL, config.SAMLACSURL, config.SAMLSPEntityID, config.SAMLCertificate,
		config.IdPEntityID).Scan(&config.ID)
	if err != nil {
		return fmt.Errorf("failed to save SSO config: %w", err)
	}
	return nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantgate/tenantgate/pkg/auth"
)

func newSQLTest(t *testing.T) (*SQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQL(db), mock
}

func userRows(user *auth.User) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "first_name", "last_name",
		"role", "active", "tenant_id", "created_at", "updated_at",
	}).AddRow(user.ID, user.Email, user.PasswordHash, user.FirstName,
		user.LastName, user.Role, user.Active, user.TenantID, now, now)
}

func TestSQL_FindUserByEmail(t *testing.T) {
	store, mock := newSQLTest(t)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("ada@acme.com").
			WillReturnRows(userRows(&auth.User{
				ID: 1, Email: "ada@acme.com", Role: auth.RoleEndUser, Active: true, TenantID: 7,
			}))

		user, err := store.FindUserByEmail(context.Background(), "ada@acme.com")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, auth.RoleEndUser, user.Role)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("ghost@acme.com").
			WillReturnError(sql.ErrNoRows)

		_, err := store.FindUserByEmail(context.Background(), "ghost@acme.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_CreateUser(t *testing.T) {
	t.Run("assigns id and timestamps", func(t *testing.T) {
		store, mock := newSQLTest(t)
		now := time.Now()
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("ada@acme.com", "hash", "Ada", "Lovelace", auth.RoleEndUser, true, int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(11), now, now))

		user := &auth.User{
			Email: "ada@acme.com", PasswordHash: "hash",
			FirstName: "Ada", LastName: "Lovelace",
			Role: auth.RoleEndUser, Active: true, TenantID: 7,
		}
		require.NoError(t, store.CreateUser(context.Background(), user))
		assert.Equal(t, int64(11), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to duplicate email", func(t *testing.T) {
		store, mock := newSQLTest(t)
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505"})

		err := store.CreateUser(context.Background(), &auth.User{Email: "dup@acme.com"})
		assert.Equal(t, auth.CodeDuplicateEmail, auth.CodeOf(err, ""))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQL_CreateUserIfAbsent(t *testing.T) {
	t.Run("insert wins", func(t *testing.T) {
		store, mock := newSQLTest(t)
		now := time.Now()
		mock.ExpectQuery(`(?s)INSERT INTO users.+ON CONFLICT \(email\) DO NOTHING`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(5), now, now))

		user, created, err := store.CreateUserIfAbsent(context.Background(), &auth.User{Email: "sso@acme.com"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(5), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict refetches the winner", func(t *testing.T) {
		store, mock := newSQLTest(t)
		mock.ExpectQuery(`(?s)INSERT INTO users.+ON CONFLICT \(email\) DO NOTHING`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("sso@acme.com").
			WillReturnRows(userRows(&auth.User{ID: 3, Email: "sso@acme.com", Role: auth.RoleEndUser}))

		user, created, err := store.CreateUserIfAbsent(context.Background(), &auth.User{Email: "sso@acme.com"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(3), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors surface", func(t *testing.T) {
		store, mock := newSQLTest(t)
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(errors.New("connection reset"))

		_, _, err := store.CreateUserIfAbsent(context.Background(), &auth.User{Email: "sso@acme.com"})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQL_UpdateUser(t *testing.T) {
	t.Run("updates existing row", func(t *testing.T) {
		store, mock := newSQLTest(t)
		mock.ExpectExec(`UPDATE users`).
			WithArgs("Ada", "Lovelace", true, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.UpdateUser(context.Background(), &auth.User{
			ID: 1, FirstName: "Ada", LastName: "Lovelace", Active: true,
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected is not found", func(t *testing.T) {
		store, mock := newSQLTest(t)
		mock.ExpectExec(`UPDATE users`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.UpdateUser(context.Background(), &auth.User{ID: 999})
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQL_DeleteUser(t *testing.T) {
	store, mock := newSQLTest(t)
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.DeleteUser(context.Background(), 1))
	assert.ErrorIs(t, store.DeleteUser(context.Background(), 2), auth.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_ListUsersByTenantAndRole(t *testing.T) {
	store, mock := newSQLTest(t)
	rows := userRows(&auth.User{ID: 1, Email: "a@acme.com", Role: auth.RoleEndUser, TenantID: 7})
	now := time.Now()
	rows.AddRow(int64(2), "b@acme.com", "hash", "", "", auth.RoleEndUser, true, int64(7), now, now)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE tenant_id = \$1 AND role = \$2`).
		WithArgs(int64(7), auth.RoleEndUser).
		WillReturnRows(rows)

	users, err := store.ListUsersByTenantAndRole(context.Background(), 7, auth.RoleEndUser)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_Tenants(t *testing.T) {
	t.Run("find by subdomain", func(t *testing.T) {
		store, mock := newSQLTest(t)
		now := time.Now()
		mock.ExpectQuery(`SELECT .+ FROM tenants WHERE subdomain = \$1`).
			WithArgs("acme").
			WillReturnRows(sqlmock.NewRows([]string{"id", "subdomain", "name", "active", "created_at", "updated_at"}).
				AddRow(int64(7), "acme", "Acme Corp", true, now, now))

		tenant, err := store.FindTenantBySubdomain(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, int64(7), tenant.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("create duplicate subdomain", func(t *testing.T) {
		store, mock := newSQLTest(t)
		mock.ExpectQuery(`INSERT INTO tenants`).
			WillReturnError(&pq.Error{Code: "23505"})

		err := store.CreateTenant(context.Background(), &auth.Tenant{Subdomain: "acme"})
		assert.Equal(t, auth.CodeDuplicateTenant, auth.CodeOf(err, ""))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func ssoConfigRows(cfg *auth.SSOConfig) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "provider", "enabled",
		"jwt_token_endpoint", "jwt_secret", "jwt_certificate",
		"oauth_authorization_url", "oauth_token_url", "oauth_user_info_url",
		"oauth_client_id", "oauth_client_secret", "oauth_redirect_uri", "oauth_scopes",
		"saml_sso_url", "saml_acs_url", "saml_sp_entity_id", "saml_certificate",
		"idp_entity_id", "created_at", "updated_at",
	}).AddRow(cfg.ID, cfg.TenantID, cfg.Provider, cfg.Enabled,
		cfg.JWTTokenEndpoint, cfg.JWTSecret, cfg.JWTCertificate,
		cfg.OAuthAuthorizationURL, cfg.OAuthTokenURL, cfg.OAuthUserInfoURL,
		cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.OAuthRedirectURI, cfg.OAuthScopes,
		cfg.SAMLSSOURL, cfg.SAMLACSURL, cfg.SAMLSPEntityID, cfg.SAMLCertificate,
		cfg.IdPEntityID, now, now)
}

func TestSQL_SSOConfigs(t *testing.T) {
	t.Run("find by tenant and provider", func(t *testing.T) {
		store, mock := newSQLTest(t)
		mock.ExpectQuery(`(?s)SELECT .+ FROM sso_configs WHERE tenant_id = \$1 AND provider = \$2`).
			WithArgs(int64(7), auth.ProviderJWT).
			WillReturnRows(ssoConfigRows(&auth.SSOConfig{
				ID: 1, TenantID: 7, Provider: auth.ProviderJWT, Enabled: true,
				JWTTokenEndpoint: "https://idp.acme.com/token",
			}))

		cfg, err := store.FindSSOConfig(context.Background(), 7, auth.ProviderJWT)
		require.NoError(t, err)
		assert.Equal(t, "https://idp.acme.com/token", cfg.JWTTokenEndpoint)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing config", func(t *testing.T) {
		store, mock := newSQLTest(t)
		mock.ExpectQuery(`(?s)SELECT .+ FROM sso_configs`).
			WillReturnError(sql.ErrNoRows)

		_, err := store.FindSSOConfig(context.Background(), 7, auth.ProviderSAML)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("save upserts and returns id", func(t *testing.T) {
		store, mock := newSQLTest(t)
		mock.ExpectQuery(`(?s)INSERT INTO sso_configs .+ ON CONFLICT \(tenant_id, provider\) DO UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

		cfg := &auth.SSOConfig{TenantID: 7, Provider: auth.ProviderSAML, Enabled: true}
		require.NoError(t, store.SaveSSOConfig(context.Background(), cfg))
		assert.Equal(t, int64(9), cfg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQL_ListEnabledSSOConfigs(t *testing.T) {
	store, mock := newSQLTest(t)
	rows := ssoConfigRows(&auth.SSOConfig{ID: 1, TenantID: 7, Provider: auth.ProviderJWT, Enabled: true})
	mock.ExpectQuery(`(?s)SELECT .+ FROM sso_configs\s+WHERE tenant_id = \$1 AND enabled = true`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	configs, err := store.ListEnabledSSOConfigs(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, auth.ProviderJWT, configs[0].Provider)
	assert.NoError(t, mock.ExpectationsWereMet())
}

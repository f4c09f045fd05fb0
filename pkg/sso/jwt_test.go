package sso

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantgate/tenantgate/pkg/auth"
	"github.com/tenantgate/tenantgate/pkg/store"
)

func saveConfig(t *testing.T, s *store.Memory, config *auth.SSOConfig) {
	t.Helper()
	require.NoError(t, s.SaveSSOConfig(context.Background(), config))
}

func jwtTestTenant() *auth.Tenant {
	return &auth.Tenant{ID: 1, Subdomain: "acme", Name: "Acme Corp", Active: true}
}

func TestJWTProvider_BeginLogin(t *testing.T) {
	ctx := context.Background()
	tenant := jwtTestTenant()

	t.Run("redirects to the token endpoint", func(t *testing.T) {
		configs := store.NewMemory()
		saveConfig(t, configs, &auth.SSOConfig{
			TenantID:         tenant.ID,
			Provider:         auth.ProviderJWT,
			Enabled:          true,
			JWTTokenEndpoint: "https://idp.test/token",
			JWTSecret:        "shared-secret",
		})

		target, err := NewJWTProvider(configs).BeginLogin(ctx, tenant)
		require.NoError(t, err)
		assert.Equal(t, "https://idp.test/token", target)
	})

	t.Run("no config", func(t *testing.T) {
		_, err := NewJWTProvider(store.NewMemory()).BeginLogin(ctx, tenant)
		require.Error(t, err)
		assert.Equal(t, auth.CodeProviderNotConfigured, auth.CodeOf(err, ""))
	})

	t.Run("disabled config", func(t *testing.T) {
		configs := store.NewMemory()
		saveConfig(t, configs, &auth.SSOConfig{
			TenantID:         tenant.ID,
			Provider:         auth.ProviderJWT,
			Enabled:          false,
			JWTTokenEndpoint: "https://idp.test/token",
		})

		_, err := NewJWTProvider(configs).BeginLogin(ctx, tenant)
		require.Error(t, err)
		assert.Equal(t, auth.CodeProviderDisabled, auth.CodeOf(err, ""))
	})

	t.Run("enabled but no endpoint", func(t *testing.T) {
		configs := store.NewMemory()
		saveConfig(t, configs, &auth.SSOConfig{
			TenantID: tenant.ID,
			Provider: auth.ProviderJWT,
			Enabled:  true,
		})

		_, err := NewJWTProvider(configs).BeginLogin(ctx, tenant)
		require.Error(t, err)
		assert.Equal(t, auth.CodeProviderNotConfigured, auth.CodeOf(err, ""))
	})
}

func TestJWTProvider_HandleCallback(t *testing.T) {
	ctx := context.Background()
	tenant := jwtTestTenant()

	newProvider := func(t *testing.T) *JWTProvider {
		configs := store.NewMemory()
		saveConfig(t, configs, &auth.SSOConfig{
			TenantID:         tenant.ID,
			Provider:         auth.ProviderJWT,
			Enabled:          true,
			JWTTokenEndpoint: "https://idp.test/token",
			JWTSecret:        "shared-secret",
		})
		return NewJWTProvider(configs)
	}

	t.Run("token in id_token query parameter", func(t *testing.T) {
		token := signHS256(t, "shared-secret", jwt.MapClaims{
			"email":      "ada@acme.com",
			"first_name": "Ada",
			"last_name":  "Lovelace",
		})
		r := httptest.NewRequest("GET", "/sso/jwt/callback?id_token="+token, nil)

		identity, err := newProvider(t).HandleCallback(ctx, tenant, r)
		require.NoError(t, err)
		assert.Equal(t, "ada@acme.com", identity.Email)
		assert.Equal(t, "Ada", identity.FirstName)
		assert.Equal(t, "Lovelace", identity.LastName)
		assert.Equal(t, auth.ProviderJWT, identity.Provider)
	})

	t.Run("token as trailing path segment", func(t *testing.T) {
		token := signHS256(t, "shared-secret", jwt.MapClaims{"email": "ada@acme.com"})
		r := httptest.NewRequest("GET", "/sso/jwt/callback/"+token, nil)

		identity, err := newProvider(t).HandleCallback(ctx, tenant, r)
		require.NoError(t, err)
		assert.Equal(t, "ada@acme.com", identity.Email)
	})

	t.Run("missing token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/sso/jwt/callback", nil)

		_, err := newProvider(t).HandleCallback(ctx, tenant, r)
		require.Error(t, err)
		assert.Equal(t, auth.CodeMissingToken, auth.CodeOf(err, ""))
	})

	t.Run("bad signature", func(t *testing.T) {
		token := signHS256(t, "other-secret", jwt.MapClaims{"email": "ada@acme.com"})
		r := httptest.NewRequest("GET", "/sso/jwt/callback?id_token="+token, nil)

		_, err := newProvider(t).HandleCallback(ctx, tenant, r)
		require.Error(t, err)
		assert.Equal(t, auth.CodeInvalidSignature, auth.CodeOf(err, ""))
	})

	t.Run("token without email claim", func(t *testing.T) {
		token := signHS256(t, "shared-secret", jwt.MapClaims{"sub": "42"})
		r := httptest.NewRequest("GET", "/sso/jwt/callback?id_token="+token, nil)

		_, err := newProvider(t).HandleCallback(ctx, tenant, r)
		require.Error(t, err)
		assert.Equal(t, auth.CodeInvalidClaims, auth.CodeOf(err, ""))
	})

	t.Run("no config at callback time", func(t *testing.T) {
		token := signHS256(t, "shared-secret", jwt.MapClaims{"email": "ada@acme.com"})
		r := httptest.NewRequest("GET", "/sso/jwt/callback?id_token="+token, nil)

		_, err := NewJWTProvider(store.NewMemory()).HandleCallback(ctx, tenant, r)
		require.Error(t, err)
		assert.Equal(t, auth.CodeProviderNotConfigured, auth.CodeOf(err, ""))
	})
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"query parameter", "/sso/jwt/callback?id_token=abc", "abc"},
		{"trailing segment", "/sso/jwt/callback/abc", "abc"},
		{"trailing segment with slash", "/sso/jwt/callback/abc/", "abc"},
		{"query wins over path", "/sso/jwt/callback/xyz?id_token=abc", "abc"},
		{"bare callback path", "/sso/jwt/callback", ""},
		{"unrelated path", "/sso/saml/callback", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			assert.Equal(t, tt.want, tokenFromRequest(r))
		})
	}
}

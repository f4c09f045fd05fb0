package sso

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tenantgate/tenantgate/pkg/auth"
)

// jwtCallbackPath is the path prefix the trailing-segment token form hangs
// off of.
const jwtCallbackPath = "/sso/jwt/callback"

// JWTProvider implements the JWT-assertion handoff: the browser is sent to
// the IdP's token endpoint and returns with a signed compact token carrying
// the identity claims.
type JWTProvider struct {
	configs  auth.SSOConfigStore
	verifier *SignatureVerifier
}

// NewJWTProvider creates the JWT-assertion provider
func NewJWTProvider(configs auth.SSOConfigStore) *JWTProvider {
	return &JWTProvider{
		configs:  configs,
		verifier: NewSignatureVerifier(),
	}
}

// Kind implements Provider
func (p *JWTProvider) Kind() auth.ProviderKind {
	return auth.ProviderJWT
}

// BeginLogin implements Provider
func (p *JWTProvider) BeginLogin(ctx context.Context, tenant *auth.Tenant) (string, error) {
	config, err := configFor(ctx, p.configs, tenant.ID, auth.ProviderJWT)
	if err != nil {
		return "", err
	}
	if config.JWTTokenEndpoint == "" {
		return "", auth.ErrProviderNotConfigured(auth.ProviderJWT)
	}
	return config.JWTTokenEndpoint, nil
}

// HandleCallback implements Provider. The token arrives either as an
// id_token query parameter or as a trailing path segment.
func (p *JWTProvider) HandleCallback(ctx context.Context, tenant *auth.Tenant, r *http.Request) (*Identity, error) {
	config, err := configFor(ctx, p.configs, tenant.ID, auth.ProviderJWT)
	if err != nil {
		return nil, err
	}

	token := tokenFromRequest(r)
	if token == "" {
		return nil, auth.NewError(auth.CodeMissingToken, "no token in callback request")
	}

	claims, err := p.verifier.VerifyToken(token, config)
	if err != nil {
		return nil, err
	}

	email := stringClaim(claims, "email")
	if email == "" {
		return nil, auth.NewError(auth.CodeInvalidClaims, "token carries no email claim")
	}

	return &Identity{
		Email:     email,
		FirstName: stringClaim(claims, "first_name"),
		LastName:  stringClaim(claims, "last_name"),
		Provider:  auth.ProviderJWT,
	}, nil
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("id_token"); token != "" {
		return token
	}
	if rest, ok := strings.CutPrefix(r.URL.Path, jwtCallbackPath+"/"); ok {
		return strings.Trim(rest, "/")
	}
	return ""
}

func stringClaim(claims jwt.MapClaims, name string) string {
	value, _ := claims[name].(string)
	return value
}

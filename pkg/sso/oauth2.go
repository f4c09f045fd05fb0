package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tenantgate/tenantgate/pkg/auth"
	"golang.org/x/oauth2"
)

const defaultOAuthScopes = "openid profile email"

// OAuth2Provider implements the authorization-code flow against a
// tenant-configured IdP.
type OAuth2Provider struct {
	configs    auth.SSOConfigStore
	idpTimeout time.Duration
}

// NewOAuth2Provider creates the OAuth2 provider. idpTimeout bounds the
// outbound token-exchange and userinfo calls.
func NewOAuth2Provider(configs auth.SSOConfigStore, idpTimeout time.Duration) *OAuth2Provider {
	return &OAuth2Provider{
		configs:    configs,
		idpTimeout: idpTimeout,
	}
}

// Kind implements Provider
func (p *OAuth2Provider) Kind() auth.ProviderKind {
	return auth.ProviderOAuth
}

func (p *OAuth2Provider) oauthConfig(config *auth.SSOConfig) *oauth2.Config {
	scopes := config.OAuthScopes
	if scopes == "" {
		scopes = defaultOAuthScopes
	}
	return &oauth2.Config{
		ClientID:     config.OAuthClientID,
		ClientSecret: config.OAuthClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  config.OAuthAuthorizationURL,
			TokenURL: config.OAuthTokenURL,
		},
		RedirectURL: config.OAuthRedirectURI,
		Scopes:      strings.Fields(scopes),
	}
}

// BeginLogin implements Provider
func (p *OAuth2Provider) BeginLogin(ctx context.Context, tenant *auth.Tenant) (string, error) {
	config, err := configFor(ctx, p.configs, tenant.ID, auth.ProviderOAuth)
	if err != nil {
		return "", err
	}
	if config.OAuthAuthorizationURL == "" || config.OAuthClientID == "" {
		return "", auth.ErrProviderNotConfigured(auth.ProviderOAuth)
	}
	return p.oauthConfig(config).AuthCodeURL(uuid.NewString()), nil
}

// HandleCallback implements Provider
func (p *OAuth2Provider) HandleCallback(ctx context.Context, tenant *auth.Tenant, r *http.Request) (*Identity, error) {
	// IdP-reported errors pass through with their code intact.
	if idpErr := r.URL.Query().Get("error"); idpErr != "" {
		return nil, auth.NewError("oauth_"+idpErr, "authorization denied by identity provider")
	}

	config, err := configFor(ctx, p.configs, tenant.ID, auth.ProviderOAuth)
	if err != nil {
		return nil, err
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return nil, auth.NewError(auth.CodeTokenExchangeFailed, "no authorization code in callback")
	}

	ctx, cancel := context.WithTimeout(ctx, p.idpTimeout)
	defer cancel()

	oauthConfig := p.oauthConfig(config)
	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, auth.WrapError(auth.CodeTokenExchangeFailed, "authorization code exchange failed", err)
	}

	userInfo, err := p.fetchUserInfo(ctx, oauthConfig, config, token)
	if err != nil {
		return nil, err
	}

	email, _ := userInfo["email"].(string)
	if email == "" {
		return nil, auth.NewError(auth.CodeMissingEmail, "userinfo response carries no email")
	}

	firstName, _ := userInfo["given_name"].(string)
	lastName, _ := userInfo["family_name"].(string)
	return &Identity{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Provider:  auth.ProviderOAuth,
	}, nil
}

func (p *OAuth2Provider) fetchUserInfo(ctx context.Context, oauthConfig *oauth2.Config, config *auth.SSOConfig, token *oauth2.Token) (map[string]interface{}, error) {
	userInfoURL := config.OAuthUserInfoURL
	if userInfoURL == "" {
		if config.IdPEntityID == "" {
			return nil, auth.ErrProviderNotConfigured(auth.ProviderOAuth)
		}
		userInfoURL = strings.TrimSuffix(config.IdPEntityID, "/") + "/userinfo"
	}

	resp, err := oauthConfig.Client(ctx, token).Get(userInfoURL)
	if err != nil {
		return nil, auth.WrapError(auth.CodeUserInfoFetchFailed, "userinfo request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, auth.WrapError(auth.CodeUserInfoFetchFailed, "userinfo request rejected",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var userInfo map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, auth.WrapError(auth.CodeUserInfoFetchFailed, "failed to decode userinfo response", err)
	}
	return userInfo, nil
}

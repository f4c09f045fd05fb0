package sso

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/tenantgate/tenantgate/pkg/auth"
	"github.com/tenantgate/tenantgate/pkg/httputil"
	"github.com/tenantgate/tenantgate/pkg/observability"
	"github.com/tenantgate/tenantgate/pkg/tenant"
)

const loginErrorPath = "/login.html?error="

// protocolCodes translates provider-level error codes into the per-protocol
// redirect codes the login page keys off. Codes not in the table pass through
// verbatim; anything unclassified falls back to "<prefix>_error".
var protocolCodes = map[auth.ProviderKind]map[string]string{
	auth.ProviderJWT: {
		auth.CodeProviderNotConfigured: "jwt_not_configured",
		auth.CodeProviderDisabled:      "jwt_disabled",
	},
	auth.ProviderOAuth: {
		auth.CodeProviderNotConfigured: "oauth_not_configured",
		auth.CodeProviderDisabled:      "oauth_not_configured",
	},
	auth.ProviderSAML: {
		auth.CodeProviderNotConfigured: "saml_not_configured",
		auth.CodeProviderDisabled:      "saml_not_configured",
	},
}

// The callback leg overrides two protocols: a missing OAuth config surfaces
// as its own code so the login page can distinguish a broken return URL from
// a never-enabled provider, and the JWT callback collapses absent and
// disabled into jwt_disabled.
var callbackCodes = map[auth.ProviderKind]map[string]string{
	auth.ProviderJWT: {
		auth.CodeProviderNotConfigured: "jwt_disabled",
		auth.CodeProviderDisabled:      "jwt_disabled",
	},
	auth.ProviderOAuth: {
		auth.CodeProviderNotConfigured: "oauth_config_not_found",
		auth.CodeProviderDisabled:      "oauth_config_not_found",
	},
}

var protocolFallback = map[auth.ProviderKind]string{
	auth.ProviderJWT:   "jwt_error",
	auth.ProviderOAuth: "oauth_error",
	auth.ProviderSAML:  "saml_error",
}

// passthroughCodes are protocol-agnostic codes surfaced to the login page
// unchanged.
var passthroughCodes = map[string]bool{
	auth.CodeMissingToken:        true,
	auth.CodeInvalidSignature:    true,
	auth.CodeInvalidClaims:       true,
	auth.CodeMissingResponse:     true,
	auth.CodeInvalidResponse:     true,
	auth.CodeMissingEmail:        true,
	auth.CodeTokenExchangeFailed: true,
}

// postLoginFailure is the code used when the identity was established but
// provisioning, access validation, or session issuance failed.
var postLoginFailure = map[auth.ProviderKind]string{
	auth.ProviderJWT:   "jwt_error",
	auth.ProviderOAuth: "oauth_auth_failed",
	auth.ProviderSAML:  "saml_auth_failed",
}

// Handlers exposes the SSO login and callback endpoints. Every failure on
// the browser-facing flows redirects back to the login page with a stable
// error code; internal detail stays in the logs.
type Handlers struct {
	service     *auth.Service
	jwt         *JWTProvider
	oauth       *OAuth2Provider
	saml        *SAMLProvider
	provisioner *UserProvisioner
	audit       *auth.AuditLogger
	metrics     *observability.Metrics
}

// NewHandlers wires the three protocol providers over the shared service
func NewHandlers(service *auth.Service, jwt *JWTProvider, oauth *OAuth2Provider, saml *SAMLProvider) *Handlers {
	return &Handlers{
		service:     service,
		jwt:         jwt,
		oauth:       oauth,
		saml:        saml,
		provisioner: NewUserProvisioner(service.Store()),
		audit:       auth.NewAuditLogger(),
	}
}

// WithMetrics attaches SSO login metrics; the handlers run unmetered
// without it.
func (h *Handlers) WithMetrics(metrics *observability.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// RegisterRoutes registers the SSO routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/sso/jwt/login", h.login(h.jwt)).Methods(http.MethodGet)
	router.HandleFunc("/sso/jwt/callback", h.callback(h.jwt)).Methods(http.MethodGet)
	// Trailing-segment token form: /sso/jwt/callback/<token>
	router.PathPrefix("/sso/jwt/callback/").HandlerFunc(h.callback(h.jwt)).Methods(http.MethodGet)

	router.HandleFunc("/sso/oauth/login", h.login(h.oauth)).Methods(http.MethodGet)
	router.HandleFunc("/sso/oauth/callback", h.callback(h.oauth)).Methods(http.MethodGet)

	router.HandleFunc("/sso/saml/login", h.login(h.saml)).Methods(http.MethodGet)
	router.HandleFunc("/sso/saml/callback", h.callback(h.saml)).Methods(http.MethodPost)
	router.HandleFunc("/sso/saml/metadata", h.samlMetadata).Methods(http.MethodGet)

	router.HandleFunc("/api/sso/providers", h.listProviders).Methods(http.MethodGet)
}

// login redirects the browser to the tenant's IdP for one protocol
func (h *Handlers) login(provider Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := observability.FromContext(ctx).WithField("provider", string(provider.Kind()))

		t, err := h.service.CurrentTenant(ctx)
		if err != nil {
			log.WithError(err).Warn("sso login on unresolved tenant")
			h.redirectError(w, r, provider.Kind(), err)
			return
		}

		target, err := provider.BeginLogin(ctx, t)
		if err != nil {
			log.WithError(err).Warn("sso login initiation failed")
			h.redirectError(w, r, provider.Kind(), err)
			return
		}

		http.Redirect(w, r, target, http.StatusFound)
	}
}

// callback consumes the IdP return leg, provisions the user, validates
// tenant access, and establishes the browser session.
func (h *Handlers) callback(provider Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := observability.FromContext(ctx).WithField("provider", string(provider.Kind()))

		t, err := h.service.CurrentTenant(ctx)
		if err != nil {
			log.WithError(err).Warn("sso callback on unresolved tenant")
			h.redirectError(w, r, provider.Kind(), err)
			return
		}

		method := strings.ToLower(string(provider.Kind()))

		identity, err := provider.HandleCallback(ctx, t, r)
		if err != nil {
			log.WithError(err).Warn("sso callback rejected")
			h.metrics.RecordLogin(method, false)
			h.audit.RecordRequest(r, auth.AuditEvent{
				Action: auth.ActionSSOLogin,
				Status: auth.AuditFailure,
				Error:  err.Error(),
			})
			h.redirectCallbackError(w, r, provider.Kind(), err)
			return
		}

		log = log.WithField("email", identity.Email)

		user, created, err := h.provisioner.FindOrCreate(ctx, t, identity)
		if err != nil {
			log.WithError(err).Error("sso user provisioning failed")
			h.metrics.RecordLogin(method, false)
			h.redirectPostLoginError(w, r, provider.Kind())
			return
		}
		if created {
			log.Info("user provisioned just-in-time")
			h.metrics.RecordProvisionedUser(method)
		}

		userTenant, err := h.service.Store().FindTenantByID(ctx, user.TenantID)
		if err != nil {
			log.WithError(err).Error("failed to load user tenant")
			h.redirectPostLoginError(w, r, provider.Kind())
			return
		}

		resolved, _ := tenant.FromContext(ctx)
		if err := auth.ValidateTenantAccess(user.Role, userTenant.Subdomain, resolved); err != nil {
			log.WithError(err).Warn("sso login rejected by tenant access rules")
			h.metrics.RecordLogin(method, false)
			h.audit.RecordRequest(r, auth.AuditEvent{
				Action:   auth.ActionSSOLogin,
				Status:   auth.AuditDenied,
				Email:    user.Email,
				UserID:   user.ID,
				TenantID: user.TenantID,
				Error:    err.Error(),
			})
			h.redirectPostLoginError(w, r, provider.Kind())
			return
		}

		token, err := h.service.Sessions().Issue(user)
		if err != nil {
			log.WithError(err).Error("session issuance failed")
			h.metrics.RecordLogin(method, false)
			h.redirectPostLoginError(w, r, provider.Kind())
			return
		}

		log.WithField("role", string(user.Role)).Info("sso login succeeded")
		h.metrics.RecordLogin(method, true)
		h.audit.RecordRequest(r, auth.AuditEvent{
			Action:   auth.ActionSSOLogin,
			Status:   auth.AuditSuccess,
			Email:    user.Email,
			UserID:   user.ID,
			TenantID: user.TenantID,
		})

		http.SetCookie(w, h.service.Sessions().Cookie(token))
		http.Redirect(w, r, auth.DashboardPath(user.Role), http.StatusFound)
	}
}

// samlMetadata serves the SP EntityDescriptor for the current tenant
func (h *Handlers) samlMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := h.service.CurrentTenant(ctx)
	if err != nil {
		httputil.WriteNotFoundError(w, "tenant not found")
		return
	}

	metadata, err := h.saml.Metadata(ctx, t)
	if err != nil {
		if auth.CodeOf(err, "") == auth.CodeProviderNotConfigured || auth.CodeOf(err, "") == auth.CodeProviderDisabled {
			httputil.WriteNotFoundError(w, "SAML is not configured for this tenant")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/samlmetadata+xml")
	w.Write(metadata)
}

// listProviders reports the enabled SSO protocols for the current tenant in
// stable order.
func (h *Handlers) listProviders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := h.service.CurrentTenant(ctx)
	if err != nil {
		httputil.WriteNotFoundError(w, "tenant not found")
		return
	}

	configs, err := h.service.Store().ListEnabledSSOConfigs(ctx, t.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	providers := make([]string, 0, len(configs))
	for _, config := range configs {
		providers = append(providers, string(config.Provider))
	}
	httputil.WriteSuccess(w, map[string][]string{"providers": providers})
}

// redirectError maps a flow error to its login-page code
func (h *Handlers) redirectError(w http.ResponseWriter, r *http.Request, kind auth.ProviderKind, err error) {
	http.Redirect(w, r, loginErrorPath+h.errorCode(kind, err, protocolCodes[kind]), http.StatusFound)
}

func (h *Handlers) redirectCallbackError(w http.ResponseWriter, r *http.Request, kind auth.ProviderKind, err error) {
	table := protocolCodes[kind]
	if override, ok := callbackCodes[kind]; ok {
		table = override
	}
	http.Redirect(w, r, loginErrorPath+h.errorCode(kind, err, table), http.StatusFound)
}

func (h *Handlers) errorCode(kind auth.ProviderKind, err error, table map[string]string) string {
	code := auth.CodeOf(err, protocolFallback[kind])
	if mapped, ok := table[code]; ok {
		return mapped
	}
	if passthroughCodes[code] || strings.HasPrefix(code, "oauth_") {
		return code
	}
	return protocolFallback[kind]
}

func (h *Handlers) redirectPostLoginError(w http.ResponseWriter, r *http.Request, kind auth.ProviderKind) {
	http.Redirect(w, r, loginErrorPath+postLoginFailure[kind], http.StatusFound)
}

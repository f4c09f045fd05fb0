package auth

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tenantgate/tenantgate/pkg/httputil"
)

// Handlers exposes the password authentication endpoints
type Handlers struct {
	service *Service
	audit   *AuditLogger
}

// NewHandlers creates the authentication handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service, audit: NewAuditLogger()}
}

// RegisterRoutes registers the password authentication routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/auth/login", h.login).Methods("POST")
	router.HandleFunc("/api/auth/login-cookie", h.loginCookie).Methods("POST")
	router.HandleFunc("/api/auth/register", h.register).Methods("POST")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	result, ok := h.doLogin(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, result)
}

// loginCookie behaves like login but additionally establishes a browser
// session by setting the AUTH_TOKEN cookie.
func (h *Handlers) loginCookie(w http.ResponseWriter, r *http.Request) {
	result, ok := h.doLogin(w, r)
	if !ok {
		return
	}
	http.SetCookie(w, h.service.Sessions().Cookie(result.Token))
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) doLogin(w http.ResponseWriter, r *http.Request) (*LoginResult, bool) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return nil, false
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return nil, false
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.audit.RecordRequest(r, AuditEvent{
			Action: ActionPasswordLogin,
			Status: AuditFailure,
			Email:  req.Email,
			Error:  err.Error(),
		})
		writeAuthError(w, err)
		return nil, false
	}

	h.audit.RecordRequest(r, AuditEvent{
		Action:   ActionPasswordLogin,
		Status:   AuditSuccess,
		Email:    result.Email,
		UserID:   result.UserID,
		TenantID: result.TenantID,
	})
	return result, true
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.audit.RecordRequest(r, AuditEvent{
			Action: ActionRegister,
			Status: AuditFailure,
			Email:  req.Email,
			Error:  err.Error(),
		})
		writeAuthError(w, err)
		return
	}

	h.audit.RecordRequest(r, AuditEvent{
		Action:   ActionRegister,
		Status:   AuditSuccess,
		Email:    user.Email,
		UserID:   user.ID,
		TenantID: user.TenantID,
	})

	httputil.WriteCreated(w, map[string]interface{}{
		"message": fmt.Sprintf("user registered successfully with ID: %d", user.ID),
		"userId":  user.ID,
	})
}

// writeAuthError maps the error taxonomy onto HTTP statuses
func writeAuthError(w http.ResponseWriter, err error) {
	switch CodeOf(err, "") {
	case CodeUnauthorizedAccess:
		httputil.WriteUnauthorized(w, err.Error())
	case CodeTenantNotFound:
		httputil.WriteNotFoundError(w, err.Error())
	case CodeDuplicateEmail:
		httputil.WriteConflict(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}

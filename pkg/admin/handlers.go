package admin

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tenantgate/tenantgate/pkg/auth"
	"github.com/tenantgate/tenantgate/pkg/httputil"
	"github.com/tenantgate/tenantgate/pkg/observability"
	"golang.org/x/crypto/bcrypt"
)

// reservedSubdomain can never be claimed by a customer tenant
const reservedSubdomain = "superadmin"

// Handlers exposes the admin user management endpoints
type Handlers struct {
	store auth.Store
	authn *auth.Middleware
	audit *auth.AuditLogger
}

// NewHandlers creates the admin handlers
func NewHandlers(store auth.Store, authn *auth.Middleware) *Handlers {
	return &Handlers{store: store, authn: authn, audit: auth.NewAuditLogger()}
}

// RegisterRoutes registers the admin routes with their role guards
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	superAdmin := h.authn.RequireRole(auth.RoleSuperAdmin)
	customerAdmin := h.authn.RequireRole(auth.RoleCustomerAdmin)

	router.Handle("/api/super-admin/customer-admins",
		superAdmin(http.HandlerFunc(h.listCustomerAdmins))).Methods("GET")
	router.Handle("/api/super-admin/customer-admins",
		superAdmin(http.HandlerFunc(h.createCustomerAdmin))).Methods("POST")
	router.Handle("/api/super-admin/users/{id:[0-9]+}",
		superAdmin(http.HandlerFunc(h.updateUser))).Methods("PUT")
	router.Handle("/api/super-admin/users/{id:[0-9]+}",
		superAdmin(http.HandlerFunc(h.deleteUser))).Methods("DELETE")

	router.Handle("/api/customer-admin/end-users",
		customerAdmin(http.HandlerFunc(h.listEndUsers))).Methods("GET")
	router.Handle("/api/customer-admin/end-users",
		customerAdmin(http.HandlerFunc(h.createEndUser))).Methods("POST")
	router.Handle("/api/customer-admin/end-users/{id:[0-9]+}",
		customerAdmin(http.HandlerFunc(h.updateEndUser))).Methods("PUT")
	router.Handle("/api/customer-admin/end-users/{id:[0-9]+}",
		customerAdmin(http.HandlerFunc(h.deleteEndUser))).Methods("DELETE")
}

// listCustomerAdmins handles GET /api/super-admin/customer-admins
func (h *Handlers) listCustomerAdmins(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsersByRole(r.Context(), auth.RoleCustomerAdmin)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

type createCustomerAdminRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	TenantSubdomain string `json:"tenantSubdomain"`
	TenantName      string `json:"tenantName"`
}

// createCustomerAdmin handles POST /api/super-admin/customer-admins. An
// unknown tenant subdomain is created on the fly so onboarding a customer
// and its first admin is a single call.
func (h *Handlers) createCustomerAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createCustomerAdminRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.TenantSubdomain == "" {
		httputil.WriteBadRequest(w, "email, password and tenantSubdomain are required")
		return
	}
	if req.TenantSubdomain == reservedSubdomain {
		httputil.WriteBadRequest(w, "subdomain is reserved")
		return
	}

	tenant, err := h.store.FindTenantBySubdomain(ctx, req.TenantSubdomain)
	if errors.Is(err, auth.ErrNotFound) {
		name := req.TenantName
		if name == "" {
			name = req.TenantSubdomain
		}
		tenant = &auth.Tenant{
			Subdomain: req.TenantSubdomain,
			Name:      name,
			Active:    true,
		}
		if err := h.store.CreateTenant(ctx, tenant); err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		observability.FromContext(ctx).
			WithField("subdomain", tenant.Subdomain).
			Info("tenant created for new customer admin")
		h.audit.RecordRequest(r, auth.AuditEvent{
			Action:   auth.ActionTenantCreate,
			Status:   auth.AuditSuccess,
			TenantID: tenant.ID,
		})
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	user := &auth.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         auth.RoleCustomerAdmin,
		Active:       true,
		TenantID:     tenant.ID,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		if auth.CodeOf(err, "") == auth.CodeDuplicateEmail {
			httputil.WriteConflict(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	h.audit.RecordRequest(r, auth.AuditEvent{
		Action:   auth.ActionUserCreate,
		Status:   auth.AuditSuccess,
		Email:    user.Email,
		UserID:   user.ID,
		TenantID: user.TenantID,
	})
	httputil.WriteCreated(w, user)
}

type updateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Active    *bool   `json:"active"`
}

func applyUserUpdate(user *auth.User, req updateUserRequest) {
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
}

// updateUser handles PUT /api/super-admin/users/{id}
func (h *Handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.store.FindUserByID(ctx, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req updateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	applyUserUpdate(user, req)

	if err := h.store.UpdateUser(ctx, user); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// deleteUser handles DELETE /api/super-admin/users/{id}
func (h *Handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.audit.RecordRequest(r, auth.AuditEvent{
		Action: auth.ActionUserDelete,
		Status: auth.AuditSuccess,
		UserID: id,
	})
	httputil.WriteNoContent(w)
}

// listEndUsers handles GET /api/customer-admin/end-users
func (h *Handlers) listEndUsers(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	users, err := h.store.ListUsersByTenantAndRole(r.Context(), principal.TenantID, auth.RoleEndUser)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

type createEndUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// createEndUser handles POST /api/customer-admin/end-users; the new account
// always lands in the caller's tenant.
func (h *Handlers) createEndUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, _ := auth.PrincipalFromContext(ctx)

	var req createEndUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	user := &auth.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         auth.RoleEndUser,
		Active:       true,
		TenantID:     principal.TenantID,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		if auth.CodeOf(err, "") == auth.CodeDuplicateEmail {
			httputil.WriteConflict(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	h.audit.RecordRequest(r, auth.AuditEvent{
		Action:   auth.ActionUserCreate,
		Status:   auth.AuditSuccess,
		Email:    user.Email,
		UserID:   user.ID,
		TenantID: user.TenantID,
	})
	httputil.WriteCreated(w, user)
}

// ownEndUser loads the target user and rejects anything outside the caller's
// tenant or above the END_USER role.
func (h *Handlers) ownEndUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}

	user, err := h.store.FindUserByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	if user.TenantID != principal.TenantID || user.Role != auth.RoleEndUser {
		httputil.WriteForbidden(w, "user belongs to another tenant")
		return nil, false
	}
	return user, true
}

// updateEndUser handles PUT /api/customer-admin/end-users/{id}
func (h *Handlers) updateEndUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.ownEndUser(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	applyUserUpdate(user, req)

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// deleteEndUser handles DELETE /api/customer-admin/end-users/{id}
func (h *Handlers) deleteEndUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.ownEndUser(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteUser(r.Context(), user.ID); err != nil {
		writeStoreError(w, err)
		return
	}
	h.audit.RecordRequest(r, auth.AuditEvent{
		Action:   auth.ActionUserDelete,
		Status:   auth.AuditSuccess,
		Email:    user.Email,
		UserID:   user.ID,
		TenantID: user.TenantID,
	})
	httputil.WriteNoContent(w)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return httputil.ParsePathInt64OrError(w, r, "id")
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrNotFound) {
		httputil.WriteNotFoundError(w, "user not found")
		return
	}
	httputil.WriteInternalError(w, err)
}

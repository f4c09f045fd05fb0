package auth

import (
	"context"
	"errors"

	"github.com/tenantgate/tenantgate/pkg/observability"
	"github.com/tenantgate/tenantgate/pkg/tenant"
	"golang.org/x/crypto/bcrypt"
)

// superAdminSubdomain is the reserved subdomain of the tenant that owns
// super-admin accounts.
const superAdminSubdomain = "superadmin"

// LoginResult is the payload returned after a successful password login
type LoginResult struct {
	Token       string `json:"token"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	RedirectURL string `json:"redirectUrl"`
	UserID      int64  `json:"userId"`
	TenantID    int64  `json:"tenantId"`
}

// RegisterRequest carries a self-registration submission
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Service implements password login and self-registration against the
// resolved tenant scope.
type Service struct {
	store    Store
	sessions *SessionIssuer
	metrics  *observability.Metrics
}

// NewService creates an authentication service
func NewService(store Store, sessions *SessionIssuer) *Service {
	return &Service{store: store, sessions: sessions}
}

// WithMetrics attaches login metrics; the service runs unmetered without it
func (s *Service) WithMetrics(metrics *observability.Metrics) *Service {
	s.metrics = metrics
	return s
}

// Sessions exposes the session issuer shared with the SSO callback path
func (s *Service) Sessions() *SessionIssuer {
	return s.sessions
}

// Store exposes the persistence collaborator
func (s *Service) Store() Store {
	return s.store
}

// CurrentTenant loads the persistent tenant record for the identifier
// resolved on the request context. The super-admin scope maps to the
// reserved "superadmin" tenant row.
func (s *Service) CurrentTenant(ctx context.Context) (*Tenant, error) {
	id, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, NewError(CodeTenantNotFound, "no tenant context found")
	}

	subdomain := id
	if id == tenant.SuperAdmin {
		subdomain = superAdminSubdomain
	}

	t, err := s.store.FindTenantBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTenantNotFound(subdomain)
		}
		return nil, err
	}
	return t, nil
}

// Login validates credentials and the role-vs-subdomain rule, then mints a
// bearer token. SSO-only accounts can never log in with a password.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	result, err := s.login(ctx, email, password)
	s.metrics.RecordLogin("password", err == nil)
	return result, err
}

func (s *Service) login(ctx context.Context, email, password string) (*LoginResult, error) {
	log := observability.FromContext(ctx).WithField("email", email)

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorizedAccess("invalid credentials")
		}
		return nil, err
	}

	if !user.Active {
		return nil, ErrUnauthorizedAccess("account is disabled")
	}

	if user.IsSSOOnly() {
		return nil, ErrUnauthorizedAccess("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorizedAccess("invalid credentials")
	}

	userTenant, err := s.store.FindTenantByID(ctx, user.TenantID)
	if err != nil {
		return nil, err
	}

	resolved, _ := tenant.FromContext(ctx)
	if err := ValidateTenantAccess(user.Role, userTenant.Subdomain, resolved); err != nil {
		log.WithError(err).Warn("login rejected by tenant access rules")
		return nil, err
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}

	log.WithField("role", user.Role).Info("password login succeeded")

	return &LoginResult{
		Token:       token,
		Email:       user.Email,
		Role:        string(user.Role),
		RedirectURL: DashboardPath(user.Role),
		UserID:      user.ID,
		TenantID:    userTenant.ID,
	}, nil
}

// Register creates an END_USER account under the resolved tenant.
// Registration is rejected on the super-admin scope.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if tenant.IsSuperAdmin(ctx) {
		return nil, ErrUnauthorizedAccess("cannot register users via the superadmin domain")
	}

	t, err := s.CurrentTenant(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrDuplicateEmail(req.Email)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         RoleEndUser,
		Active:       true,
		TenantID:     t.ID,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).
		WithField("email", user.Email).
		Info("end user registered")

	return user, nil
}

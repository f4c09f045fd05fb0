package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthCookieName is the cookie carrying the bearer token for browser sessions
const AuthCookieName = "AUTH_TOKEN"

// Dashboard paths by role; every login flow funnels into this mapping after
// access validation passes.
var dashboardByRole = map[Role]string{
	RoleSuperAdmin:    "/super-admin-dashboard.html",
	RoleCustomerAdmin: "/customer-admin-dashboard.html",
	RoleEndUser:       "/end-user-dashboard.html",
}

// DashboardPath returns the post-login redirect target for a role
func DashboardPath(role Role) string {
	if path, ok := dashboardByRole[role]; ok {
		return path
	}
	return "/login.html"
}

// SessionIssuer turns a validated (user, tenant) pair into a bearer token and
// the role-based post-login redirect. Tokens are HS256-signed JWTs carrying
// user id, email, role, and tenant id.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionIssuer creates a session issuer with the given signing secret and
// token lifetime.
func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{secret: []byte(secret), ttl: ttl}
}

type sessionClaims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID int64  `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Issue mints a bearer token for the user. Callers must have passed
// ValidateTenantAccess first; no token is ever minted for a rejected
// combination.
func (s *SessionIssuer) Issue(user *User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Email:    user.Email,
		Role:     string(user.Role),
		TenantID: user.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and verifies a bearer token, returning the authenticated
// principal.
func (s *SessionIssuer) Validate(tokenString string) (*Principal, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil {
		return nil, fmt.Errorf("invalid session subject: %w", err)
	}

	role := Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("invalid session role: %s", claims.Role)
	}

	return &Principal{
		UserID:   userID,
		Email:    claims.Email,
		Role:     role,
		TenantID: claims.TenantID,
	}, nil
}

// Cookie wraps a bearer token in the browser session cookie: HTTP-only,
// secure, path-scoped to the whole site, expiring with the token.
func (s *SessionIssuer) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	}
}

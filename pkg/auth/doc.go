// Package auth implements the authentication core of the identity boundary:
// user and tenant models, password login, self-registration, session tokens,
// and the tenant access rules shared by every login path.
//
// # Roles
//
// The role set is closed and login scopes are role-specific, never
// threshold-based:
//
//	SUPER_ADMIN    - may only log in on the super-admin scope
//	CUSTOMER_ADMIN - may log in on the super-admin scope or their own subdomain
//	END_USER       - may only log in on their own tenant subdomain
//
// ValidateTenantAccess enforces these rules before any token is issued, for
// both password and SSO logins:
//
//	if err := auth.ValidateTenantAccess(user.Role, ownSubdomain, resolved); err != nil {
//		// rejected: role may not log in under the resolved scope
//	}
//
// # Sessions
//
// SessionIssuer mints HS256-signed bearer tokens carrying user id, email,
// role, and tenant id:
//
//	issuer := auth.NewSessionIssuer(secret, 24*time.Hour)
//	token, err := issuer.Issue(user)
//
// Every successful login lands on the dashboard for its role; the mapping is
// shared between the password and SSO flows.
//
// # Error Taxonomy
//
// Failures carry stable short codes (see errors.go). The SSO handlers turn
// them into login-page redirects; the API handlers map them onto HTTP
// statuses.
package auth

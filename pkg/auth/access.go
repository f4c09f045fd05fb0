package auth

import (
	"fmt"

	"github.com/tenantgate/tenantgate/pkg/tenant"
)

// accessRule decides whether a role may log in under a resolved tenant
// identifier, given the subdomain of the tenant that owns the account.
type accessRule struct {
	allowed func(resolved, own string) bool
	reason  func(own string) string
}

// The login rule set, applied identically to password and SSO logins and
// always before any session or token is issued.
var accessRules = map[Role]accessRule{
	RoleSuperAdmin: {
		allowed: func(resolved, _ string) bool {
			return resolved == tenant.SuperAdmin
		},
		reason: func(_ string) string {
			return "super admin can only login via the superadmin domain"
		},
	},
	RoleCustomerAdmin: {
		allowed: func(resolved, own string) bool {
			return resolved == tenant.SuperAdmin || resolved == own
		},
		reason: func(own string) string {
			return fmt.Sprintf("customer admin can only login via the superadmin domain or their subdomain: %s", own)
		},
	},
	RoleEndUser: {
		allowed: func(resolved, own string) bool {
			return resolved == own
		},
		reason: func(own string) string {
			return fmt.Sprintf("end user can only login via their tenant subdomain: %s", own)
		},
	},
}

// ValidateTenantAccess enforces the role-vs-subdomain rule set: SUPER_ADMIN
// only under the super-admin scope, CUSTOMER_ADMIN under the super-admin
// scope or their own subdomain, END_USER only under their own subdomain.
func ValidateTenantAccess(role Role, ownSubdomain, resolved string) error {
	rule, ok := accessRules[role]
	if !ok {
		return ErrUnauthorizedAccess(fmt.Sprintf("unknown role: %s", role))
	}
	if !rule.allowed(resolved, ownSubdomain) {
		return ErrUnauthorizedAccess(rule.reason(ownSubdomain))
	}
	return nil
}

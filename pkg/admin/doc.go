// Package admin implements the user management API: super admins manage
// customer admin accounts across tenants, customer admins manage the end
// users of their own tenant. Every route sits behind bearer authentication
// and role checks, and customer-admin operations are hard-scoped to the
// caller's tenant.
package admin

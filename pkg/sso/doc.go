// Package sso implements the tenant-scoped single sign-on flows: a
// JWT-assertion handoff, an OAuth2 authorization-code exchange, and a SAML
// redirect/POST binding. Each provider resolves its configuration from the
// tenant attached to the request and yields a verified external identity,
// which is then provisioned just-in-time into a local account.
package sso

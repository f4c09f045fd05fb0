package auth

import (
	"errors"
	"fmt"
)

// Short codes carried through to the login page on SSO failures. Frontends
// key off these strings; they are part of the wire contract.
const (
	CodeTenantNotFound        = "tenant_not_found"
	CodeProviderNotConfigured = "not_configured"
	CodeProviderDisabled      = "disabled"
	CodeInvalidSignature      = "invalid_signature"
	CodeInvalidClaims         = "invalid_token"
	CodeInvalidResponse       = "invalid_saml_response"
	CodeTokenExchangeFailed   = "oauth_auth_failed"
	CodeUserInfoFetchFailed   = "oauth_auth_failed"
	CodeUnauthorizedAccess    = "unauthorized"
	CodeDuplicateEmail        = "duplicate_email"
	CodeDuplicateTenant       = "duplicate_tenant"
	CodeMissingToken          = "missing_token"
	CodeMissingResponse       = "no_saml_response"
	CodeMissingEmail          = "no_email"
	CodeSecretMissing         = "secret_missing"
)

// Error is a classified authentication failure with a stable short code
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a classified error
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError builds a classified error with an underlying cause
func WrapError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// ErrTenantNotFound signals an unresolved or unknown subdomain
func ErrTenantNotFound(subdomain string) *Error {
	return NewError(CodeTenantNotFound, fmt.Sprintf("tenant not found: %s", subdomain))
}

// ErrProviderNotConfigured signals a disabled or incomplete SSO configuration
func ErrProviderNotConfigured(provider ProviderKind) *Error {
	return NewError(CodeProviderNotConfigured, fmt.Sprintf("%s SSO is not configured for this tenant", provider))
}

// ErrProviderDisabled signals an SSO configuration that exists but is off
func ErrProviderDisabled(provider ProviderKind) *Error {
	return NewError(CodeProviderDisabled, fmt.Sprintf("%s SSO is disabled for this tenant", provider))
}

// ErrUnauthorizedAccess signals a role/subdomain login mismatch
func ErrUnauthorizedAccess(message string) *Error {
	return NewError(CodeUnauthorizedAccess, message)
}

// ErrDuplicateEmail signals a registration or admin-create conflict
func ErrDuplicateEmail(email string) *Error {
	return NewError(CodeDuplicateEmail, fmt.Sprintf("email already exists: %s", email))
}

// CodeOf extracts the stable short code from err, or falls back
func CodeOf(err error, fallback string) string {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return fallback
}

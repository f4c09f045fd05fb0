// Package config provides application configuration management from
// environment variables, with defaults suitable for local development.
//
// # Settings
//
// Server:
//
//	TENANTGATE_HOST="0.0.0.0"
//	TENANTGATE_PORT="8080"
//	TENANTGATE_READ_TIMEOUT="15s"
//	TENANTGATE_WRITE_TIMEOUT="15s"
//	TENANTGATE_IDLE_TIMEOUT="60s"
//	TENANTGATE_SHUTDOWN_TIMEOUT="30s"
//	TENANTGATE_EXTERNAL_BASE_URL="https://example.com"
//
// Tenancy:
//
//	TENANTGATE_BASE_DOMAIN="example.com"   # {tenant}.example.com
//
// Authentication:
//
//	TENANTGATE_TOKEN_SECRET="..."          # required, signs bearer tokens
//	TENANTGATE_TOKEN_TTL="24h"
//	TENANTGATE_IDP_TIMEOUT="8s"            # outbound IdP call bound
//
// Persistence:
//
//	TENANTGATE_POSTGRES_URL="postgres://..."  # in-memory store when unset
//
// Logging:
//
//	TENANTGATE_LOG_LEVEL="info"            # debug, info, warn, error
//
// LoadConfig reads the environment and validates the result; a missing token
// secret or base domain is a startup failure.
package config

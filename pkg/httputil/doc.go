// Package httputil provides HTTP utilities for standardized request and
// response handling: JSON encoding helpers, error responses with consistent
// shape, request parsing, and common middleware (logging, panic recovery,
// body size limits).
package httputil

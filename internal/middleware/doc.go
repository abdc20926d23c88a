// Package middleware provides the HTTP middleware chain of the server:
// request IDs that double as log trace IDs, OpenTelemetry spans and request
// metrics, request deadlines and response security headers.
//
// Recommended order: RequestID, RealIP, OTel, error/logging middleware from
// internal/errors, Timeout.
package middleware

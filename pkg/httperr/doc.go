// Package httperr defines the caller-facing error type used by every HTTP
// handler in this service: validation failures carry 400, authorization
// failures 401/403, seat conflicts 409. Errors without an explicit status
// are rendered as 500 with a generic message.
package httperr

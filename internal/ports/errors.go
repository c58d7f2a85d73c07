package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Exchange / Stream Specific Errors
	ErrExchangeUnavailable = errors.New("exchange API is unavailable")
	ErrInvalidAPIKeys      = errors.New("invalid API keys or permissions")
	ErrConnectionFailed    = errors.New("failed to connect to the exchange")
	ErrRateLimited         = errors.New("API rate limit exceeded")
	ErrNotConnected        = errors.New("streaming connection is not established")
	ErrConnectionClosed    = errors.New("streaming connection closed")
	ErrStreamTerminated    = errors.New("stream terminated: reconnect attempts exhausted")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
)

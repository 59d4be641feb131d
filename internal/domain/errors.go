package domain

import "errors"

// Sentinel errors for the session operation failure classes. Callers
// classify with errors.Is; wrapped detail carries the identifiers.
var (
	// ErrNotAuthenticated means the operation requires a live session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrGroupNotFound means the backend did not confirm membership in
	// the requested group.
	ErrGroupNotFound = errors.New("group not found")

	// ErrChannelNotFound means the group exists but has no such channel.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrMetadataTimeout means the backend was too slow answering a
	// group activation or channel lookup. The underlying request is not
	// aborted, only the caller's wait.
	ErrMetadataTimeout = errors.New("group metadata request timed out")
)

// LogonFailure classifies a failed authentication attempt.
type LogonFailure int

const (
	LogonFailureUnknown LogonFailure = iota
	LogonFailureBadCredentials
	LogonFailureBadGuardCode
	LogonFailureRateLimited
	LogonFailureTokenRejected
)

// String returns a short identifier for the failure class.
func (f LogonFailure) String() string {
	switch f {
	case LogonFailureBadCredentials:
		return "bad_credentials"
	case LogonFailureBadGuardCode:
		return "bad_guard_code"
	case LogonFailureRateLimited:
		return "rate_limited"
	case LogonFailureTokenRejected:
		return "token_rejected"
	default:
		return "unknown"
	}
}

// LogonError is an authentication failure reported by the Steam client.
type LogonError struct {
	Failure LogonFailure
	Message string
}

func (e *LogonError) Error() string {
	if e.Message == "" {
		return "logon failed: " + e.Failure.String()
	}
	return "logon failed: " + e.Message
}

// Retryable reports whether the interactive login flow should re-prompt
// and try again. Rate limiting aborts the attempt immediately.
func (e *LogonError) Retryable() bool {
	return e.Failure != LogonFailureRateLimited
}

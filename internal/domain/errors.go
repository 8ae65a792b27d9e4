package domain

import (
	"errors"
	"strings"
)

// Session-level precondition errors. These abort the whole session before any
// item is attempted.
var (
	ErrInvalidURL            = errors.New("invalid URL")
	ErrDRMUnsupported        = errors.New("DRM protected platform is not supported")
	ErrInsufficientDiskSpace = errors.New("insufficient disk space")
	ErrAlreadyDownloading    = errors.New("a download session is already active")
	ErrTooSoon               = errors.New("please wait between download starts")
	ErrNoItems               = errors.New("no downloadable items resolved")
)

// FailureKind classifies an item-level failure
type FailureKind string

const (
	FailureDRMUnsupported FailureKind = "drm_unsupported"
	FailurePrivateContent FailureKind = "private_content"
	FailureAuthRequired   FailureKind = "auth_required"
	FailureRateLimited    FailureKind = "rate_limited"
	FailureTimeout        FailureKind = "timeout"
	FailureBackendError   FailureKind = "backend_error"
	FailureCancelled      FailureKind = "cancelled"
)

// Retryable reports whether an attempt with this failure kind may be retried
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureRateLimited, FailureBackendError:
		return true
	default:
		return false
	}
}

// ClassifyError maps a backend error to a failure kind by case-insensitive
// substring match against its text. Checks run in priority order: DRM and
// private/auth indicators abort immediately, a 403 is retried but flagged as
// a suspected rate limit, everything else is a generic retryable error.
func ClassifyError(err error) FailureKind {
	if err == nil {
		return FailureBackendError
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "drm"):
		return FailureDRMUnsupported
	case strings.Contains(msg, "private video"):
		return FailurePrivateContent
	case strings.Contains(msg, "login") || strings.Contains(msg, "cookie"):
		return FailureAuthRequired
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden"):
		return FailureRateLimited
	default:
		return FailureBackendError
	}
}

// maxDisplayErrorLen bounds item error messages shown to the user; the full
// error still reaches the logs.
const maxDisplayErrorLen = 100

// TruncateError returns a display-sized rendering of err
func TruncateError(err error) string {
	if err == nil {
		return ""
	}
	return Truncate(err.Error(), maxDisplayErrorLen)
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

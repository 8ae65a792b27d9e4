package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"drm", errors.New("ERROR: This video is DRM protected"), FailureDRMUnsupported},
		{"private", errors.New("ERROR: Private video. Sign in if you've been granted access"), FailurePrivateContent},
		{"login", errors.New("ERROR: This video requires login"), FailureAuthRequired},
		{"cookies", errors.New("use --cookies for authentication"), FailureAuthRequired},
		{"http 403", errors.New("HTTP Error 403: Forbidden"), FailureRateLimited},
		{"forbidden only", errors.New("access forbidden by server"), FailureRateLimited},
		{"network", errors.New("connection reset by peer"), FailureBackendError},
		{"nil", nil, FailureBackendError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestClassifyError_PriorityOrder(t *testing.T) {
	// DRM beats 403 when both substrings appear.
	err := errors.New("403 Forbidden: DRM protected stream")
	assert.Equal(t, FailureDRMUnsupported, ClassifyError(err))
}

func TestFailureKind_Retryable(t *testing.T) {
	assert.True(t, FailureRateLimited.Retryable())
	assert.True(t, FailureBackendError.Retryable())

	assert.False(t, FailureDRMUnsupported.Retryable())
	assert.False(t, FailurePrivateContent.Retryable())
	assert.False(t, FailureAuthRequired.Retryable())
	assert.False(t, FailureTimeout.Retryable())
	assert.False(t, FailureCancelled.Retryable())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcde...", Truncate("abcdefgh", 5))
	assert.Equal(t, "", TruncateError(nil))
}

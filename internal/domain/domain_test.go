package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelWrapping(t *testing.T) {
	err := fmt.Errorf("%w: %q in group 123", ErrChannelNotFound, "general")
	assert.True(t, errors.Is(err, ErrChannelNotFound))
	assert.False(t, errors.Is(err, ErrGroupNotFound))
}

func TestLogonErrorMessage(t *testing.T) {
	err := &LogonError{Failure: LogonFailureBadCredentials}
	assert.Equal(t, "logon failed: bad_credentials", err.Error())

	err = &LogonError{Failure: LogonFailureRateLimited, Message: "try again later"}
	assert.Equal(t, "logon failed: try again later", err.Error())
}

func TestLogonErrorRetryable(t *testing.T) {
	tests := []struct {
		failure LogonFailure
		want    bool
	}{
		{LogonFailureBadCredentials, true},
		{LogonFailureBadGuardCode, true},
		{LogonFailureTokenRejected, true},
		{LogonFailureUnknown, true},
		{LogonFailureRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(tt.failure.String(), func(t *testing.T) {
			err := &LogonError{Failure: tt.failure}
			assert.Equal(t, tt.want, err.Retryable())
		})
	}
}

func TestLogonErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("logging on: %w", &LogonError{Failure: LogonFailureRateLimited})
	var le *LogonError
	assert.True(t, errors.As(wrapped, &le))
	assert.Equal(t, LogonFailureRateLimited, le.Failure)
}

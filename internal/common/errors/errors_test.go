package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsAppError_ThroughWrapping(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	appErr := Wrap(cause, ErrCodeTelegramAPI, "Failed to check channel subscription")

	wrapped := fmt.Errorf("handler: %w", appErr)

	got, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeTelegramAPI, got.Code)
	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, got.IsInternal())

	_, ok = AsAppError(cause)
	assert.False(t, ok)
}

func TestAppError_Classification(t *testing.T) {
	assert.True(t, NewGiveawayNotFoundError("gw").IsNotFound())
	assert.True(t, New(ErrCodeReferralNotFound, "gone").IsNotFound())
	assert.True(t, NewValidationError("answer", "required").IsValidation())
	assert.True(t, New(ErrCodeInvalidCategory, "bad").IsValidation())
	assert.True(t, New(ErrCodeNotOwner, "no").IsUnauthorized())
	assert.True(t, New(ErrCodeTicketCodeExhausted, "full").IsInternal())
	assert.False(t, NewTryAgainError("gw").IsInternal())
}

func TestAppError_Builders(t *testing.T) {
	appErr := NewTryAgainError("gw-1").
		WithRequestID("req-1").
		WithUserID(42).
		WithContext("path", "/join")

	assert.Equal(t, "req-1", appErr.RequestID)
	assert.Equal(t, int64(42), appErr.UserID)
	assert.Equal(t, "gw-1", appErr.Details["resource"])
	assert.Equal(t, "/join", appErr.Context["path"])
	assert.Equal(t, "[TRY_AGAIN] Request is being processed, try again shortly", appErr.Error())
}

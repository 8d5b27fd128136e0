package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatchesAfterWrap(t *testing.T) {
	sentinel := NewNotFound("user not found")
	wrapped := fmt.Errorf("lookup: %w", sentinel.Wrap(errors.New("no documents")))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, NewNotFound("post not found"))
	assert.Equal(t, http.StatusNotFound, SafeCode(wrapped))
	assert.Equal(t, "user not found", SafeMessage(wrapped))
}

func TestWrapDoesNotMutateSentinel(t *testing.T) {
	sentinel := NewConflict("email already in use")
	_ = sentinel.Wrap(errors.New("E11000"))

	assert.Nil(t, sentinel.Internal)
}

func TestForeignErrorsAreInternal(t *testing.T) {
	err := errors.New("connection reset")

	assert.Equal(t, http.StatusInternalServerError, SafeCode(err))
	assert.Equal(t, "an unexpected error occurred", SafeMessage(err))

	appErr := As(err)
	assert.Equal(t, "internal_error", appErr.Type)
	assert.ErrorIs(t, appErr, err)
}

func TestUpstreamCarriesCause(t *testing.T) {
	cause := errors.New("smtp: 535 auth failed")
	err := NewUpstream("failed to send otp email", cause)

	assert.Equal(t, http.StatusBadGateway, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "535")
}

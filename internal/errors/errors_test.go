package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnauthorized(t *testing.T) {
	err := Unauthorized("token expired")
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 401, GetStatus(err))
	assert.Equal(t, "token expired", err.Error())
}

func TestValidation(t *testing.T) {
	err := Validation(422, "email already registered")
	assert.True(t, IsValidation(err))
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, 422, GetStatus(err))
}

func TestValidationf(t *testing.T) {
	err := Validationf(400, "bad field %q", "email")
	assert.True(t, IsValidation(err))
	assert.Equal(t, `bad field "email"`, err.Message)
}

func TestTransport_PreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Transport(cause, "request failed")

	assert.True(t, IsTransport(err))
	assert.Equal(t, 0, GetStatus(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "request failed: connection refused", err.Error())
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("unexpected EOF")
	err := Wrap(cause, KindUnknown, "decode response body")

	assert.True(t, IsUnknown(err))
	assert.ErrorIs(t, err, cause)
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindUnknown, "nothing"))
}

func TestKindMatchingThroughWrapping(t *testing.T) {
	inner := Unauthorized("rejected")
	outer := fmt.Errorf("establish session: %w", inner)

	assert.True(t, IsUnauthorized(outer))
	assert.Equal(t, KindUnauthorized, GetKind(outer))
	assert.Equal(t, 401, GetStatus(outer))
}

func TestGetKind_NonClientError(t *testing.T) {
	assert.Equal(t, Kind(""), GetKind(stderrors.New("plain")))
	assert.Equal(t, 0, GetStatus(stderrors.New("plain")))
}

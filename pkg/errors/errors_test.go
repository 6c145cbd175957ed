package errors

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrNotFound, "user not found")

	assert.Equal(t, ErrNotFound, err.Code)
	assert.Equal(t, "user not found", err.Error())
	assert.Nil(t, err.Cause)
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrInternal, "failed to reach store")

	assert.Equal(t, ErrInternal, err.Code)
	assert.Equal(t, "failed to reach store: connection refused", err.Error())
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrInternal, "should be nil"))
}

func TestIs(t *testing.T) {
	err := New(ErrConflict, "email already registered")

	assert.True(t, stderrors.Is(err, New(ErrConflict, "other message")))
	assert.False(t, stderrors.Is(err, New(ErrNotFound, "email already registered")))
}

func TestWithDetails(t *testing.T) {
	err := New(ErrValidation, "invalid request").WithDetails("password too short")

	assert.Equal(t, ErrValidation, err.Code)
	assert.Equal(t, "password too short", err.Details)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrValidation, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrConflict, http.StatusConflict},
		{ErrTooManyRequests, http.StatusTooManyRequests},
		{ErrInternal, http.StatusInternalServerError},
		{ErrorCode("UNKNOWN"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, New(tt.code, "msg").HTTPStatus())
		})
	}
}

func TestFromError(t *testing.T) {
	custom := New(ErrUnauthorized, "invalid credentials")
	assert.Equal(t, custom, FromError(custom))

	plain := stderrors.New("boom")
	converted := FromError(plain)
	require.NotNil(t, converted)
	assert.Equal(t, ErrInternal, converted.Code)
	assert.Equal(t, plain, stderrors.Unwrap(converted))

	assert.Nil(t, FromError(nil))
}

func TestWriteHTTPError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteHTTPError(rec, New(ErrUnauthorized, "invalid credentials"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"code":"UNAUTHORIZED","message":"invalid credentials"}}`, rec.Body.String())
}

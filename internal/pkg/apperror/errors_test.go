package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode_WrappedError(t *testing.T) {
	err := fmt.Errorf("lifecycle: accept: %w", New(ErrCodeInvalidState, "контракт уже принят"))

	assert.True(t, HasCode(err, ErrCodeInvalidState))
	assert.False(t, HasCode(err, ErrCodeNotFound))
	assert.Equal(t, ErrCodeInvalidState, CodeOf(err))
}

func TestHasCode_PlainError(t *testing.T) {
	assert.False(t, HasCode(errors.New("boom"), ErrCodeInternal))
	assert.False(t, HasCode(nil, ErrCodeInternal))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("boom")))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrCodeDatabaseError, "не удалось сохранить заказ")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
}

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNotFound:               http.StatusNotFound,
		ErrCodeForbidden:              http.StatusForbidden,
		ErrCodeInvalidTerms:           http.StatusBadRequest,
		ErrCodeInvalidState:           http.StatusConflict,
		ErrCodeRevisionsExceeded:      http.StatusConflict,
		ErrCodeNoRevisionsAvailable:   http.StatusConflict,
		ErrCodeOrderDisputed:          http.StatusLocked,
		ErrCodeNumberGenerationFailed: http.StatusServiceUnavailable,
		ErrCodeInconsistent:           http.StatusAccepted,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, string(code))
	}
}

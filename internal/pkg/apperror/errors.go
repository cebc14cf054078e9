package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound               ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden              ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest             ErrorCode = "BAD_REQUEST"
	ErrCodeConflict               ErrorCode = "CONFLICT"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation             ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError          ErrorCode = "DATABASE_ERROR"
	ErrCodeInvalidState           ErrorCode = "INVALID_STATE"
	ErrCodeInvalidTerms           ErrorCode = "INVALID_TERMS"
	ErrCodeRevisionsExceeded      ErrorCode = "REVISIONS_EXCEEDED"
	ErrCodeNoRevisionsAvailable   ErrorCode = "NO_REVISIONS_AVAILABLE"
	ErrCodeOrderDisputed          ErrorCode = "ORDER_DISPUTED"
	ErrCodeNumberGenerationFailed ErrorCode = "NUMBER_GENERATION_FAILED"
	ErrCodeInconsistent           ErrorCode = "INCONSISTENT"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInvalidTerms:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidState, ErrCodeRevisionsExceeded, ErrCodeNoRevisionsAvailable:
		return http.StatusConflict
	case ErrCodeOrderDisputed:
		return http.StatusLocked
	case ErrCodeNumberGenerationFailed:
		return http.StatusServiceUnavailable
	case ErrCodeInconsistent:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки из цепочки или пустую строку.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode проверяет, что в цепочке ошибок есть AppError с указанным кодом.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return HasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

func IsInconsistent(err error) bool {
	return HasCode(err, ErrCodeInconsistent)
}

var (
	ErrContractNotFound    = New(ErrCodeNotFound, "контракт не найден")
	ErrOrderNotFound       = New(ErrCodeNotFound, "заказ не найден")
	ErrServiceNotFound     = New(ErrCodeNotFound, "услуга не найдена")
	ErrDeliverableNotFound = New(ErrCodeNotFound, "результат работы не найден")
	ErrAttachmentNotFound  = New(ErrCodeNotFound, "вложение не найдено")
	ErrUnauthorized        = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden           = New(ErrCodeForbidden, "недостаточно прав")
	ErrOrderDisputed       = New(ErrCodeOrderDisputed, "по заказу открыт спор, действие недоступно")
	ErrNoRevisionsLeft     = New(ErrCodeNoRevisionsAvailable, "лимит доработок исчерпан")
	ErrConcurrentUpdate    = New(ErrCodeInvalidState, "запись изменена параллельным запросом")
)

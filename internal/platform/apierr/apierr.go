// Package apierr はAPI共通のエラーモデル。
// 以前は各パッケージに同型の定義を複製していたが、承認フローが
// allocations のエラーをそのまま呼び出し元へ返す必要があるため共通化した。
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeAlreadyReturned Code = "ALREADY_RETURNED"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInvalidState(msg string) *APIError {
	return &APIError{Code: CodeInvalidState, Message: msg}
}
func ErrAlreadyReturned(msg string) *APIError {
	return &APIError{Code: CodeAlreadyReturned, Message: msg}
}
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

// CodeOf returns the error code, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return CodeInternal
}

func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState, CodeAlreadyReturned:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ===== レスポンスボディ =====

type ErrDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) ErrDTO {
	var e ErrDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func BodyFrom(err error) ErrDTO {
	var api *APIError
	if errors.As(err, &api) {
		return Body(api.Code, api.Message)
	}
	return Body(CodeInternal, err.Error())
}

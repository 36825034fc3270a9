package auth

import (
	internaljwt "livechat-backend/internal/jwt"
	"livechat-backend/internal/model"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type LoginParams struct {
	Email    string
	Password string
}

type Identity struct {
	AgentID  string
	BranchID string
	Email    string
}

type AuthResult struct {
	Agent  model.AgentItem
	Tokens internaljwt.TokenResponse
}

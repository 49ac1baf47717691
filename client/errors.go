package client

import (
	"encoding/json"
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrSessionExpired is returned when the backend rejects the session or
	// the stored token has expired locally.  The session has already been
	// cleared when it is returned.
	ErrSessionExpired errors.Error = "인증이 만료되었습니다. 다시 로그인해주세요."

	// ErrMissingCredentials is returned by [Client.AdminLogin] when the email
	// or the password is empty.
	ErrMissingCredentials errors.Error = "이메일과 비밀번호를 모두 입력해주세요."
)

// loginFailedMsg is used when the backend reports a failed login without a
// message.
const loginFailedMsg = "로그인에 실패했습니다. 이메일과 비밀번호를 확인해주세요."

// APIError is a non-2xx response or an unsuccessful envelope.
type APIError struct {
	// Code is the backend's error code, if any.
	Code string

	// Message is the backend's message, or a generic one naming the status.
	Message string

	// Status is the HTTP status code.
	Status int
}

// type check
var _ error = (*APIError)(nil)

// Error implements the error interface for *APIError.
func (e *APIError) Error() (msg string) {
	return e.Message
}

// newAPIError builds an *APIError from an error response body.  Bodies that
// are not JSON are ignored.
func newAPIError(status int, body []byte) (err *APIError) {
	var data struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &data)

	msg := data.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP error! status: %d", status)
	}

	return &APIError{
		Code:    data.Code,
		Message: msg,
		Status:  status,
	}
}

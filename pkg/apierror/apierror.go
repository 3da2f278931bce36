package apierror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNetwork Kind = iota + 1
	KindBusiness
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindBusiness:
		return "business"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Codes the backend places in the envelope for well-known rejections.
const (
	CodeParam        = -1
	CodeForbidden    = -3
	CodeNotFound     = -4
	CodeInternal     = -5
	CodeBusinessRule = -10
)

var (
	ErrNetwork      = errors.New("network failure")
	ErrBusiness     = errors.New("request rejected")
	ErrUnauthorized = errors.New("session invalid")
)

// Error is the classified outcome of a failed API call.
type Error struct {
	Kind       Kind   `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"msg"`
	HTTPStatus int    `json:"-"`
	RequestID  string `json:"-"`
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	switch e.Kind {
	case KindBusiness:
		return fmt.Sprintf("business error %d: %s", e.Code, e.Message)
	case KindUnauthorized:
		if e.Message != "" {
			return "unauthorized: " + e.Message
		}
		return "unauthorized"
	default:
		msg := "network error"
		if e.HTTPStatus > 0 {
			msg = fmt.Sprintf("%s (HTTP %d)", msg, e.HTTPStatus)
		}
		if e.Message != "" {
			msg += ": " + e.Message
		}
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrBusiness:
		return e.Kind == KindBusiness
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	}
	return false
}

// New describes a business rejection together with the HTTP status a server
// should answer it with.
func New(code int, message string, status int) *Error {
	return &Error{Kind: KindBusiness, Code: code, Message: message, HTTPStatus: status}
}

func Business(code int, message string) *Error {
	return &Error{Kind: KindBusiness, Code: code, Message: message}
}

func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

func Unauthorized(message string, status int) *Error {
	return &Error{Kind: KindUnauthorized, Message: message, HTTPStatus: status}
}

// KindOf classifies any error. Errors that did not come from the gateway
// count as network failures because no usable response was obtained.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

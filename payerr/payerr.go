// Package payerr defines the error taxonomy shared by the WeChat Pay client.
//
// Every failure surfaced by the library is an *Error. Callers branch on the
// kind with errors.Is against the sentinels below, and pull the gateway's
// status code, error code and raw body out with errors.As.
package payerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind string

const (
	KindTransport     Kind = "transport"
	KindNetwork       Kind = "network"
	KindSigning       Kind = "signing"
	KindVerification  Kind = "verification"
	KindDecryption    Kind = "decryption"
	KindPayloadFormat Kind = "payload_format"
	KindConfig        Kind = "config"
)

// Sentinels for errors.Is. ErrTransport also matches network failures.
var (
	ErrTransport     = &Error{Kind: KindTransport}
	ErrNetwork       = &Error{Kind: KindNetwork}
	ErrSigning       = &Error{Kind: KindSigning}
	ErrVerification  = &Error{Kind: KindVerification}
	ErrDecryption    = &Error{Kind: KindDecryption}
	ErrPayloadFormat = &Error{Kind: KindPayloadFormat}
	ErrConfig        = &Error{Kind: KindConfig}
)

// Error is the single error type returned by this module.
type Error struct {
	Kind       Kind   `json:"kind"`
	Op         string `json:"op,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Code       string `json:"code,omitempty"`    // gateway error code, e.g. PARAM_ERROR
	Message    string `json:"message,omitempty"` // gateway or local message
	Body       []byte `json:"-"`                 // raw gateway response body
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind only, so sentinels compare equal to any error of the
// same kind. A network error is also a transport error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind == t.Kind {
		return true
	}
	return e.Kind == KindNetwork && t.Kind == KindTransport
}

// New builds an error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an error of the given kind around cause.
func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

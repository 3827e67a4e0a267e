package domain

import (
	"net/http"

	"github.com/go-faster/errors"
)

type Kind string

const (
	KindInvalidAmount       Kind = "InvalidAmount"
	KindInvalidSelection    Kind = "InvalidSelection"
	KindInvalidRequest      Kind = "InvalidRequest"
	KindGatewayUnavailable  Kind = "GatewayUnavailable"
	KindOrderCreationFailed Kind = "OrderCreationFailed"
	KindVerificationFailed  Kind = "VerificationFailed"
	KindPaymentFailed       Kind = "PaymentFailed"
	KindConfigurationError  Kind = "ConfigurationError"
	KindUserCancelled       Kind = "UserCancelled"
	KindUnauthorized        Kind = "Unauthorized"
	KindInternal            Kind = "Internal"
)

func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidAmount, KindInvalidSelection, KindInvalidRequest, KindVerificationFailed, KindPaymentFailed:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind and a caller-safe message. The wrapped cause is kept
// for logs and is never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func E(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the message safe to show outside the process.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

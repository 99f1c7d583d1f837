package monetixerr

import (
	"errors"
	"fmt"
)

// Code identifies one member of the SDK's closed error taxonomy.
type Code string

const (
	CodeNotActivated         Code = "not_activated"
	CodeInvalidConfiguration Code = "invalid_configuration"
	CodeInvalidAPIKey        Code = "invalid_api_key"
	CodeNetworkError         Code = "network_error"
	CodeInvalidResponse      Code = "invalid_response"
	CodeDecodingError        Code = "decoding_error"
	CodePurchaseFailed       Code = "purchase_failed"
	CodePurchaseCancelled    Code = "purchase_cancelled"
	CodeRestoreFailed        Code = "restore_failed"
	CodeProductNotFound      Code = "product_not_found"
	CodePaywallNotFound      Code = "paywall_not_found"
	CodeUserNotFound         Code = "user_not_found"
	CodeStoreError           Code = "store_error"
	CodeUnknownError         Code = "unknown_error"
)

// Sentinel errors, one per taxonomy code. Callers match with errors.Is.
var (
	ErrNotActivated         = &Error{Code: CodeNotActivated, Message: "monetix: SDK is not activated"}
	ErrInvalidConfiguration = &Error{Code: CodeInvalidConfiguration, Message: "monetix: invalid configuration"}
	ErrInvalidAPIKey        = &Error{Code: CodeInvalidAPIKey, Message: "monetix: invalid API key"}
	ErrNetwork              = &Error{Code: CodeNetworkError, Message: "monetix: network error"}
	ErrInvalidResponse      = &Error{Code: CodeInvalidResponse, Message: "monetix: invalid server response"}
	ErrDecoding             = &Error{Code: CodeDecodingError, Message: "monetix: response decoding failed"}
	ErrPurchaseFailed       = &Error{Code: CodePurchaseFailed, Message: "monetix: purchase failed"}
	ErrPurchaseCancelled    = &Error{Code: CodePurchaseCancelled, Message: "monetix: purchase cancelled by user"}
	ErrRestoreFailed        = &Error{Code: CodeRestoreFailed, Message: "monetix: restore failed"}
	ErrProductNotFound      = &Error{Code: CodeProductNotFound, Message: "monetix: product not found"}
	ErrPaywallNotFound      = &Error{Code: CodePaywallNotFound, Message: "monetix: paywall not found"}
	ErrUserNotFound         = &Error{Code: CodeUserNotFound, Message: "monetix: user not found"}
	ErrStore                = &Error{Code: CodeStoreError, Message: "monetix: store error"}
	ErrUnknown              = &Error{Code: CodeUnknownError, Message: "monetix: unknown error"}
)

// Error is the concrete error type carried across the SDK. It wraps an
// optional underlying cause and, for server failures, the HTTP status.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	cause      error
}

func (e *Error) Error() string {
	switch {
	case e.cause != nil && e.HTTPStatus > 0:
		return fmt.Sprintf("%s (status=%d): %v", e.Message, e.HTTPStatus, e.cause)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	case e.HTTPStatus > 0:
		return fmt.Sprintf("%s (status=%d)", e.Message, e.HTTPStatus)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same taxonomy code, so wrapped errors
// compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return e.Code == te.Code
}

// Wrap attaches a cause to the sentinel for the given code.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Message: sentinel(code).Message, cause: cause}
}

// WrapStatus attaches a cause and the HTTP status that produced it.
func WrapStatus(code Code, status int, cause error) *Error {
	return &Error{Code: code, Message: sentinel(code).Message, HTTPStatus: status, cause: cause}
}

// Server builds the generic serverError carrying an HTTP status.
func Server(status int) *Error {
	return &Error{Code: CodeUnknownError, Message: "monetix: server error", HTTPStatus: status}
}

func sentinel(code Code) *Error {
	switch code {
	case CodeNotActivated:
		return ErrNotActivated
	case CodeInvalidConfiguration:
		return ErrInvalidConfiguration
	case CodeInvalidAPIKey:
		return ErrInvalidAPIKey
	case CodeNetworkError:
		return ErrNetwork
	case CodeInvalidResponse:
		return ErrInvalidResponse
	case CodeDecodingError:
		return ErrDecoding
	case CodePurchaseFailed:
		return ErrPurchaseFailed
	case CodePurchaseCancelled:
		return ErrPurchaseCancelled
	case CodeRestoreFailed:
		return ErrRestoreFailed
	case CodeProductNotFound:
		return ErrProductNotFound
	case CodePaywallNotFound:
		return ErrPaywallNotFound
	case CodeUserNotFound:
		return ErrUserNotFound
	case CodeStoreError:
		return ErrStore
	default:
		return ErrUnknown
	}
}

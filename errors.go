package monetix

import "github.com/monetix/monetix-go/internal/pkg/monetixerr"

// Error is the concrete error type carried by every SDK failure.
type Error = monetixerr.Error

// ErrorCode identifies one member of the closed error taxonomy.
type ErrorCode = monetixerr.Code

const (
	CodeNotActivated         = monetixerr.CodeNotActivated
	CodeInvalidConfiguration = monetixerr.CodeInvalidConfiguration
	CodeInvalidAPIKey        = monetixerr.CodeInvalidAPIKey
	CodeNetworkError         = monetixerr.CodeNetworkError
	CodeInvalidResponse      = monetixerr.CodeInvalidResponse
	CodeDecodingError        = monetixerr.CodeDecodingError
	CodePurchaseFailed       = monetixerr.CodePurchaseFailed
	CodePurchaseCancelled    = monetixerr.CodePurchaseCancelled
	CodeRestoreFailed        = monetixerr.CodeRestoreFailed
	CodeProductNotFound      = monetixerr.CodeProductNotFound
	CodePaywallNotFound      = monetixerr.CodePaywallNotFound
	CodeUserNotFound         = monetixerr.CodeUserNotFound
	CodeStoreError           = monetixerr.CodeStoreError
	CodeUnknownError         = monetixerr.CodeUnknownError
)

// Sentinel errors for errors.Is matching.
var (
	ErrNotActivated         = monetixerr.ErrNotActivated
	ErrInvalidConfiguration = monetixerr.ErrInvalidConfiguration
	ErrInvalidAPIKey        = monetixerr.ErrInvalidAPIKey
	ErrNetwork              = monetixerr.ErrNetwork
	ErrInvalidResponse      = monetixerr.ErrInvalidResponse
	ErrDecoding             = monetixerr.ErrDecoding
	ErrPurchaseFailed       = monetixerr.ErrPurchaseFailed
	ErrPurchaseCancelled    = monetixerr.ErrPurchaseCancelled
	ErrRestoreFailed        = monetixerr.ErrRestoreFailed
	ErrProductNotFound      = monetixerr.ErrProductNotFound
	ErrPaywallNotFound      = monetixerr.ErrPaywallNotFound
	ErrUserNotFound         = monetixerr.ErrUserNotFound
	ErrStore                = monetixerr.ErrStore
	ErrUnknown              = monetixerr.ErrUnknown
)

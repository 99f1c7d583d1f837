package monetix

import (
	"github.com/monetix/monetix-go/internal/pkg/txsync"
	"github.com/monetix/monetix-go/models"
	"github.com/monetix/monetix-go/store"
)

// Re-export common types so callers don't have to import the subpackages.

type (
	Profile          = models.Profile
	AccessLevel      = models.AccessLevel
	Subscription     = models.Subscription
	NonSubscription  = models.NonSubscription
	Paywall          = models.Paywall
	Product          = models.Product
	AccessCheck      = models.AccessCheck
	DeviceAttributes = models.DeviceAttributes
	Value            = models.Value
	Timestamp        = models.Timestamp

	Store            = store.Store
	StoreTransaction = store.Transaction
	PurchaseOutcome  = store.PurchaseOutcome
	PurchaseState    = store.PurchaseState

	PurchaseResult = txsync.PurchaseResult
)

const (
	PurchaseCompleted = store.PurchaseCompleted
	PurchaseCancelled = store.PurchaseCancelled
	PurchasePending   = store.PurchasePending
)

// Re-export Value constructors.
var (
	StringValue = models.StringValue
	NumberValue = models.NumberValue
	BoolValue   = models.BoolValue
	ArrayValue  = models.ArrayValue
	ObjectValue = models.ObjectValue
	NullValue   = models.NullValue

	NewTimestamp = models.NewTimestamp
)

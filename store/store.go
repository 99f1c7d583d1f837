// Package store abstracts the platform purchase store. The SDK never
// authorizes payments itself: purchases, entitlement enumeration and
// transaction acknowledgement are delegated to the injected implementation,
// which wraps whatever in-app purchase machinery the host app runs on.
package store

import (
	"context"

	"github.com/monetix/monetix-go/models"
)

const (
	EnvironmentProduction = "production"
	EnvironmentSandbox    = "sandbox"
)

// Transaction is one purchase or renewal event as issued by the store. The
// SignedPayload is the store's JWS attestation; the engine rejects the
// transaction when the signature or its claims do not check out.
type Transaction struct {
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ProductID             string `json:"product_id"`
	SignedPayload         string `json:"signed_payload"`
	Environment           string `json:"environment,omitempty"`
}

// PurchaseState is the outcome class of a store purchase flow.
type PurchaseState int

const (
	// PurchaseCompleted means the store confirmed the purchase and issued
	// a transaction.
	PurchaseCompleted PurchaseState = iota
	// PurchaseCancelled means the user backed out of the confirmation UI.
	// This is not a failure.
	PurchaseCancelled
	// PurchasePending means the purchase awaits external approval (for
	// example ask-to-buy). Also not a failure.
	PurchasePending
)

// PurchaseOutcome is the result of a store purchase call. Transaction is
// set only for PurchaseCompleted.
type PurchaseOutcome struct {
	State       PurchaseState
	Transaction *Transaction
}

// Store is the platform purchase store seen by the SDK.
type Store interface {
	// Purchase runs the store's purchase flow for the product, including
	// any system confirmation UI, and blocks until it resolves.
	Purchase(ctx context.Context, productID string) (PurchaseOutcome, error)

	// CurrentEntitlements enumerates every transaction the user is
	// currently entitled to. This is the restore path; it does not touch
	// the update stream.
	CurrentEntitlements(ctx context.Context) ([]Transaction, error)

	// Updates is the long-lived stream of store-originated transactions:
	// renewals, family-sharing grants, purchases made on other devices.
	Updates() <-chan Transaction

	// Finish acknowledges the transaction to the store. A transaction must
	// be finished exactly once, and only after verification succeeded.
	Finish(ctx context.Context, transactionID string) error

	// Products resolves store metadata for the given product ids.
	Products(ctx context.Context, ids []string) ([]models.Product, error)
}

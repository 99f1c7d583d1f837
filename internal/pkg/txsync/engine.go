package txsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/monetix/monetix-go/internal/pkg/gateway"
	"github.com/monetix/monetix-go/internal/pkg/logger"
	"github.com/monetix/monetix-go/internal/pkg/monetixerr"
	"github.com/monetix/monetix-go/models"
	"github.com/monetix/monetix-go/store"
)

// Backend is the slice of the gateway the engine reports through.
type Backend interface {
	ReportPurchase(ctx context.Context, profileID string, tx gateway.TransactionReport) (*models.Profile, error)
	SyncReceipt(ctx context.Context, profileID string, tx gateway.TransactionReport) (*models.Profile, error)
	Restore(ctx context.Context, profileID string, txs []gateway.TransactionReport) (*models.Profile, error)
}

// ProfileCache receives the updated profile after a successful report.
type ProfileCache interface {
	UpdateCache(ctx context.Context, profile *models.Profile)
}

// PurchaseResult is the outcome of a purchase flow. Cancellation and
// pending approval are success-shaped results, not errors, so UIs never
// show an error dialog for a user-initiated cancellation.
type PurchaseResult struct {
	Profile             *models.Profile
	Transaction         *store.Transaction
	IsPurchaseCancelled bool
	IsPending           bool
}

// Engine owns the lifecycle of store transactions: it listens for
// store-originated updates, verifies authenticity, finishes transactions
// with the store and reports them to the backend. Per transaction the
// sequence verify -> finish -> report is strict and never reordered.
type Engine struct {
	store        store.Store
	verifier     Verifier
	backend      Backend
	cache        ProfileCache
	observerMode bool
	profileID    func() string

	mu             sync.Mutex
	listenerCancel context.CancelFunc
	listenerDone   chan struct{}
}

// New builds an engine. profileID resolves the currently active identity at
// report time, since identity may change between activation and a renewal
// arriving on the update stream.
func New(st store.Store, verifier Verifier, backend Backend, cache ProfileCache, observerMode bool, profileID func() string) *Engine {
	return &Engine{
		store:        st,
		verifier:     verifier,
		backend:      backend,
		cache:        cache,
		observerMode: observerMode,
		profileID:    profileID,
	}
}

// StartObserving begins the long-lived listener over the store's update
// stream. Calling it while a listener runs is a logged no-op.
func (e *Engine) StartObserving() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listenerCancel != nil {
		logger.Warnf("[TxSync] transaction listener already running")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.listenerCancel = cancel
	e.listenerDone = done
	go e.listen(ctx, done)
	logger.Infof("[TxSync] transaction listener started (observer_mode=%v)", e.observerMode)
}

// StopObserving cancels the listener and waits for it to exit. A
// transaction being processed completes its verify/finish sequence first;
// cancellation is only observed between transactions.
func (e *Engine) StopObserving() {
	e.mu.Lock()
	cancel := e.listenerCancel
	done := e.listenerDone
	e.listenerCancel = nil
	e.listenerDone = nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.Infof("[TxSync] transaction listener stopped")
}

func (e *Engine) listen(ctx context.Context, done chan struct{}) {
	defer close(done)
	updates := e.store.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case tx, ok := <-updates:
			if !ok {
				logger.Warnf("[TxSync] store update stream closed")
				return
			}
			e.handleUpdate(tx)
		}
	}
}

// handleUpdate processes one store-originated transaction (renewal,
// family-sharing grant, purchase from another device). It runs on a
// background context so an in-flight finish is never cut short by
// StopObserving.
func (e *Engine) handleUpdate(tx store.Transaction) {
	ctx := context.Background()

	if err := e.verifier.Verify(tx); err != nil {
		logger.Errorf("[TxSync] rejected transaction %s: %v", tx.TransactionID, err)
		return
	}
	if err := e.store.Finish(ctx, tx.TransactionID); err != nil {
		logger.Errorf("[TxSync] finish of %s failed: %v", tx.TransactionID, err)
	}
	if e.observerMode {
		logger.Debugf("[TxSync] observer mode, skipping backend report for %s", tx.TransactionID)
		return
	}

	profile, err := e.backend.SyncReceipt(ctx, e.profileID(), reportOf(tx))
	if err != nil {
		// Recoverable: the backend will see the transaction on the next
		// restore or currentEntitlements replay.
		logger.Errorf("[TxSync] receipt sync of %s failed: %v", tx.TransactionID, err)
		return
	}
	e.cache.UpdateCache(ctx, profile)
	logger.Infof("[TxSync] synced transaction %s (product %s)", tx.TransactionID, tx.ProductID)
}

// Purchase runs the store purchase flow for the product. An unverified
// transaction is never finished and never reported.
func (e *Engine) Purchase(ctx context.Context, product models.Product) (*PurchaseResult, error) {
	outcome, err := e.store.Purchase(ctx, product.VendorProductID)
	if err != nil {
		return nil, monetixerr.Wrap(monetixerr.CodeStoreError, err)
	}

	switch outcome.State {
	case store.PurchaseCancelled:
		logger.Infof("[TxSync] purchase of %s cancelled by user", product.VendorProductID)
		return &PurchaseResult{IsPurchaseCancelled: true}, nil
	case store.PurchasePending:
		logger.Infof("[TxSync] purchase of %s pending external approval", product.VendorProductID)
		return &PurchaseResult{IsPending: true}, nil
	}

	tx := outcome.Transaction
	if tx == nil {
		return nil, monetixerr.Wrap(monetixerr.CodePurchaseFailed, fmt.Errorf("store returned no transaction for %s", product.VendorProductID))
	}
	if err := e.verifier.Verify(*tx); err != nil {
		return nil, monetixerr.Wrap(monetixerr.CodePurchaseFailed, fmt.Errorf("verification of %s failed: %w", tx.TransactionID, err))
	}
	if err := e.store.Finish(ctx, tx.TransactionID); err != nil {
		logger.Errorf("[TxSync] finish of %s failed: %v", tx.TransactionID, err)
	}
	if e.observerMode {
		return &PurchaseResult{Transaction: tx}, nil
	}

	report := reportOf(*tx)
	report.PaywallVariationID = product.PaywallVariationID
	profile, err := e.backend.ReportPurchase(ctx, e.profileID(), report)
	if err != nil {
		return nil, err
	}
	e.cache.UpdateCache(ctx, profile)
	return &PurchaseResult{Profile: profile, Transaction: tx}, nil
}

// Restore enumerates the currently-entitled transactions, verifies each and
// reports the verified set in one batch. A single unverifiable transaction
// is skipped and logged, never aborting the batch. In observer mode the
// report is suppressed and a nil profile returned.
func (e *Engine) Restore(ctx context.Context) (*models.Profile, error) {
	txs, err := e.store.CurrentEntitlements(ctx)
	if err != nil {
		return nil, monetixerr.Wrap(monetixerr.CodeRestoreFailed, err)
	}

	reports := make([]gateway.TransactionReport, 0, len(txs))
	for _, tx := range txs {
		if err := e.verifier.Verify(tx); err != nil {
			logger.Warnf("[TxSync] skipping unverifiable transaction %s in restore: %v", tx.TransactionID, err)
			continue
		}
		reports = append(reports, reportOf(tx))
	}

	if e.observerMode {
		logger.Debugf("[TxSync] observer mode, skipping restore report (%d transactions)", len(reports))
		return nil, nil
	}

	profile, err := e.backend.Restore(ctx, e.profileID(), reports)
	if err != nil {
		return nil, err
	}
	e.cache.UpdateCache(ctx, profile)
	return profile, nil
}

// ObserverMode reports whether backend reporting is suppressed.
func (e *Engine) ObserverMode() bool { return e.observerMode }

func reportOf(tx store.Transaction) gateway.TransactionReport {
	return gateway.TransactionReport{
		TransactionID:         tx.TransactionID,
		OriginalTransactionID: tx.OriginalTransactionID,
		ProductID:             tx.ProductID,
		Environment:           tx.Environment,
	}
}

// Package monetix is the Monetix subscription-entitlement SDK. It
// reconciles purchases made through the platform purchase store with the
// Monetix backend, serves a cached view of the user's entitlement profile
// and reports purchase and usage events.
//
// A Client is explicitly constructed and activated; there is no package
// global instance, so tests and multi-tenant hosts can run isolated
// clients side by side.
package monetix

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/monetix/monetix-go/internal/pkg/gateway"
	"github.com/monetix/monetix-go/internal/pkg/logger"
	"github.com/monetix/monetix-go/internal/pkg/monetixerr"
	"github.com/monetix/monetix-go/internal/pkg/outbox"
	"github.com/monetix/monetix-go/internal/pkg/profilecache"
	"github.com/monetix/monetix-go/internal/pkg/txsync"
	"github.com/monetix/monetix-go/models"
	"github.com/monetix/monetix-go/store"
)

// SDKVersion is reported with the device attributes at activation.
const SDKVersion = "1.0.0"

// LogLevel is the severity of a log record handed to a LogHandler.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// LogHandler receives every SDK log record once installed.
type LogHandler func(level LogLevel, message string)

// State is the client lifecycle state.
type State int

const (
	StateInactive State = iota
	StateActivating
	StateActive
)

// Client is the single entry point of the SDK. All public operations other
// than Activate and SetLogHandler require the client to be Active.
type Client struct {
	mu    sync.Mutex
	state State

	st     store.Store
	gw     *gateway.Client
	cache  *profilecache.Cache
	outbox *outbox.Outbox
	engine *txsync.Engine

	idMu           sync.RWMutex
	profileID      string
	customerUserID string
}

// New returns an inactive client. Call Activate before anything else.
func New() *Client {
	return &Client{}
}

// Activate validates the configuration, wires the gateway, cache, outbox
// and synchronization engine, starts the transaction listener (unless
// observer mode) and best-effort syncs device attributes to the backend.
// Activating an already-active client is a logged no-op: the first
// configuration stays in effect.
func (c *Client) Activate(ctx context.Context, cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateActive {
		logger.Warnf("[Monetix] already activated, ignoring repeated Activate")
		return nil
	}
	c.state = StateActivating

	if cfg.LogHandler != nil {
		installLogHandler(cfg.LogHandler)
	}
	if err := cfg.Validate(); err != nil {
		c.state = StateInactive
		return err
	}

	gw, err := gateway.New(gateway.Config{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		PlatformTag: cfg.PlatformTag,
	})
	if err != nil {
		c.state = StateInactive
		return err
	}

	profileID := cfg.CustomerUserID
	if profileID == "" {
		profileID = uuid.NewString()
		logger.Debugf("[Monetix] generated anonymous identity %s", profileID)
	}
	c.setIdentity(profileID, cfg.CustomerUserID)

	cacheOpts := []profilecache.Option{}
	if cfg.ProfileCacheTTL > 0 {
		cacheOpts = append(cacheOpts, profilecache.WithTTL(cfg.ProfileCacheTTL))
	}
	if cfg.CacheRedis != nil {
		cacheOpts = append(cacheOpts, profilecache.WithEntryStore(profilecache.NewRedisStore(cfg.CacheRedis, cfg.CacheRedisKey)))
	}

	c.st = cfg.Store
	c.gw = gw
	c.cache = profilecache.New(gw, cacheOpts...)
	c.outbox = outbox.New(gw, gw.Platform())
	c.engine = txsync.New(cfg.Store, txsync.NewJWSVerifier(cfg.StorePublicKey), gw, c.cache, cfg.ObserverMode, c.currentProfileID)

	if !cfg.ObserverMode {
		c.engine.StartObserving()
	}
	c.state = StateActive
	logger.Infof("[Monetix] activated (observer_mode=%v)", cfg.ObserverMode)

	// Device-attribute sync is best effort: a failure here never fails
	// activation.
	attrs := models.DeviceAttributes{
		Locale:     cfg.Locale,
		Timezone:   cfg.Timezone,
		AppVersion: cfg.AppVersion,
		SDKVersion: SDKVersion,
		Platform:   gw.Platform(),
	}
	if profile, err := gw.SyncUser(ctx, profileID, cfg.CustomerUserID, attrs); err != nil {
		logger.Warnf("[Monetix] device attribute sync failed: %v", err)
	} else {
		c.cache.UpdateCache(ctx, profile)
	}
	return nil
}

// State reports the lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetLogHandler installs h as the sink for all SDK log records. A nil h
// restores the default logger.
func (c *Client) SetLogHandler(h LogHandler) {
	installLogHandler(h)
}

func installLogHandler(h LogHandler) {
	if h == nil {
		logger.SetHandler(nil)
		return
	}
	logger.SetHandler(func(level logger.Level, message string) {
		h(LogLevel(level), message)
	})
}

// Identify links the active identity to a customer user id. The profile
// cache is invalidated before anything else so no read can observe a mixed
// identity/profile pairing.
func (c *Client) Identify(ctx context.Context, customerUserID string) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	c.cache.Invalidate(ctx)

	profile, err := c.gw.Identify(ctx, c.currentProfileID(), customerUserID)
	if err != nil {
		return err
	}
	next := profile.ProfileID
	if next == "" {
		next = customerUserID
	}
	c.setIdentity(next, customerUserID)
	c.cache.UpdateCache(ctx, profile)
	logger.Infof("[Monetix] identified as %s", customerUserID)
	return nil
}

// Logout drops the customer identity and switches to a fresh anonymous one.
// The cache is invalidated first.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	c.cache.Invalidate(ctx)

	if err := c.gw.Logout(ctx, c.currentProfileID()); err != nil {
		return err
	}
	anon := uuid.NewString()
	c.setIdentity(anon, "")
	logger.Infof("[Monetix] logged out, new anonymous identity %s", anon)
	return nil
}

// GetProfile returns the entitlement profile, served from cache while fresh
// unless forceRefresh is set.
func (c *Client) GetProfile(ctx context.Context, forceRefresh bool) (*models.Profile, error) {
	if err := c.requireActive(); err != nil {
		return nil, err
	}
	return c.cache.GetProfile(ctx, c.currentProfileID(), forceRefresh)
}

// CheckAccess is the fast boolean entitlement path, bypassing the profile
// cache entirely.
func (c *Client) CheckAccess(ctx context.Context) (*models.AccessCheck, error) {
	if err := c.requireActive(); err != nil {
		return nil, err
	}
	return c.gw.CheckAccess(ctx, c.currentProfileID())
}

// GetPaywall loads the paywall configuration for a placement.
func (c *Client) GetPaywall(ctx context.Context, placementID, locale string) (*models.Paywall, error) {
	if err := c.requireActive(); err != nil {
		return nil, err
	}
	return c.gw.GetPaywall(ctx, placementID, c.currentProfileID(), locale)
}

// GetPaywallProducts resolves the paywall's products from the store and
// stamps each with the paywall's variation id so a later purchase can be
// attributed to it.
func (c *Client) GetPaywallProducts(ctx context.Context, paywall *models.Paywall) ([]models.Product, error) {
	if err := c.requireActive(); err != nil {
		return nil, err
	}
	if paywall == nil {
		return nil, monetixerr.ErrPaywallNotFound
	}
	products, err := c.st.Products(ctx, paywall.VendorProductIDs)
	if err != nil {
		return nil, monetixerr.Wrap(monetixerr.CodeStoreError, err)
	}
	for i := range products {
		products[i].PaywallVariationID = paywall.VariationID
	}
	return products, nil
}

// MakePurchase runs the purchase flow for the product. Cancellation and
// pending approval come back as success-shaped results, never as errors.
// A paywall-sourced purchase is additionally attributed to its variation,
// best effort.
func (c *Client) MakePurchase(ctx context.Context, product models.Product) (*txsync.PurchaseResult, error) {
	if err := c.requireActive(); err != nil {
		return nil, err
	}
	result, err := c.engine.Purchase(ctx, product)
	if err != nil {
		return nil, err
	}
	if result.Transaction != nil && product.PaywallVariationID != "" && !c.engine.ObserverMode() {
		if err := c.gw.AttributePurchase(ctx, c.currentProfileID(), product.PaywallVariationID, result.Transaction.TransactionID); err != nil {
			logger.Warnf("[Monetix] paywall purchase attribution failed: %v", err)
		}
	}
	return result, nil
}

// RestorePurchases replays the store's currently-entitled transactions to
// the backend and returns the updated profile. In observer mode no report
// is made and the (possibly cached) profile is returned instead.
func (c *Client) RestorePurchases(ctx context.Context) (*models.Profile, error) {
	if err := c.requireActive(); err != nil {
		return nil, err
	}
	profile, err := c.engine.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return c.cache.GetProfile(ctx, c.currentProfileID(), false)
	}
	return profile, nil
}

// TrackEvent queues an analytics event for at-least-once delivery. The only
// possible error is calling before activation; delivery failures are
// retried by the outbox and never surface here.
func (c *Client) TrackEvent(name string, properties map[string]models.Value) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	c.outbox.Enqueue(gateway.Event{
		ProfileID:  c.currentProfileID(),
		Name:       name,
		Properties: properties,
	})
	return nil
}

// UpdateProfileAttributes replaces the profile's custom attributes and
// refreshes the cache with the returned profile.
func (c *Client) UpdateProfileAttributes(ctx context.Context, attrs map[string]models.Value) (*models.Profile, error) {
	if err := c.requireActive(); err != nil {
		return nil, err
	}
	profile, err := c.gw.UpdateAttributes(ctx, c.currentProfileID(), attrs)
	if err != nil {
		return nil, err
	}
	c.cache.UpdateCache(ctx, profile)
	return profile, nil
}

// UpdateAttribution pushes install-attribution data for the active identity.
func (c *Client) UpdateAttribution(ctx context.Context, source string, attribution models.Value) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	return c.gw.UpdateAttribution(ctx, c.currentProfileID(), source, attribution)
}

// Flush blocks until the event outbox is empty or ctx expires. Intended for
// best-effort draining before process teardown.
func (c *Client) Flush(ctx context.Context) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	return c.outbox.Flush(ctx)
}

// StopObserving cancels the background transaction listener. In-flight
// backend calls complete or time out naturally.
func (c *Client) StopObserving() {
	c.mu.Lock()
	engine := c.engine
	c.mu.Unlock()
	if engine != nil {
		engine.StopObserving()
	}
}

func (c *Client) requireActive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return monetixerr.ErrNotActivated
	}
	return nil
}

func (c *Client) setIdentity(profileID, customerUserID string) {
	c.idMu.Lock()
	c.profileID = profileID
	c.customerUserID = customerUserID
	c.idMu.Unlock()
}

func (c *Client) currentProfileID() string {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	return c.profileID
}

package monetix

import (
	"context"

	"github.com/monetix/monetix-go/internal/pkg/txsync"
	"github.com/monetix/monetix-go/models"
)

// Callback-style adapters over the blocking API. The blocking form is
// canonical; each adapter spawns a goroutine and forwards the result.

type ErrorCallback func(err error)
type ProfileCallback func(profile *models.Profile, err error)
type AccessCheckCallback func(check *models.AccessCheck, err error)
type PaywallCallback func(paywall *models.Paywall, err error)
type ProductsCallback func(products []models.Product, err error)
type PurchaseCallback func(result *txsync.PurchaseResult, err error)

func (c *Client) ActivateWithCallback(ctx context.Context, cfg Config, cb ErrorCallback) {
	go func() { cb(c.Activate(ctx, cfg)) }()
}

func (c *Client) IdentifyWithCallback(ctx context.Context, customerUserID string, cb ErrorCallback) {
	go func() { cb(c.Identify(ctx, customerUserID)) }()
}

func (c *Client) LogoutWithCallback(ctx context.Context, cb ErrorCallback) {
	go func() { cb(c.Logout(ctx)) }()
}

func (c *Client) GetProfileWithCallback(ctx context.Context, forceRefresh bool, cb ProfileCallback) {
	go func() { cb(c.GetProfile(ctx, forceRefresh)) }()
}

func (c *Client) CheckAccessWithCallback(ctx context.Context, cb AccessCheckCallback) {
	go func() { cb(c.CheckAccess(ctx)) }()
}

func (c *Client) GetPaywallWithCallback(ctx context.Context, placementID, locale string, cb PaywallCallback) {
	go func() { cb(c.GetPaywall(ctx, placementID, locale)) }()
}

func (c *Client) GetPaywallProductsWithCallback(ctx context.Context, paywall *models.Paywall, cb ProductsCallback) {
	go func() { cb(c.GetPaywallProducts(ctx, paywall)) }()
}

func (c *Client) MakePurchaseWithCallback(ctx context.Context, product models.Product, cb PurchaseCallback) {
	go func() { cb(c.MakePurchase(ctx, product)) }()
}

func (c *Client) RestorePurchasesWithCallback(ctx context.Context, cb ProfileCallback) {
	go func() { cb(c.RestorePurchases(ctx)) }()
}

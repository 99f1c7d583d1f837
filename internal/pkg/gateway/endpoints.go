package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/monetix/monetix-go/internal/pkg/monetixerr"
	"github.com/monetix/monetix-go/models"
)

// TransactionReport is the wire shape of one verified store transaction
// handed to the backend.
type TransactionReport struct {
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id,omitempty"`
	ProductID             string `json:"product_id"`
	Environment           string `json:"environment,omitempty"`
	PaywallVariationID    string `json:"paywall_variation_id,omitempty"`
}

// Event is the wire shape of one analytics event.
type Event struct {
	EventID       string                  `json:"event_id"`
	ProfileID     string                  `json:"profile_id"`
	Name          string                  `json:"event_name"`
	Properties    map[string]models.Value `json:"properties,omitempty"`
	CreatedAt     models.Timestamp        `json:"created_at"`
	SchemaVersion int                     `json:"schema_version,omitempty"`
	Platform      string                  `json:"platform,omitempty"`
}

type syncUserRequest struct {
	ProfileID      string                  `json:"profile_id"`
	CustomerUserID string                  `json:"customer_user_id,omitempty"`
	Attributes     models.DeviceAttributes `json:"attributes"`
}

type identifyRequest struct {
	ProfileID      string `json:"profile_id"`
	CustomerUserID string `json:"customer_user_id"`
}

type attributesRequest struct {
	Attributes map[string]models.Value `json:"attributes"`
}

type reportPurchaseRequest struct {
	ProfileID   string            `json:"profile_id"`
	Transaction TransactionReport `json:"transaction"`
}

type restoreRequest struct {
	ProfileID    string              `json:"profile_id"`
	Transactions []TransactionReport `json:"transactions"`
}

type attributePurchaseRequest struct {
	ProfileID     string `json:"profile_id"`
	VariationID   string `json:"variation_id"`
	TransactionID string `json:"transaction_id"`
}

type attributionRequest struct {
	Source      string       `json:"source"`
	Attribution models.Value `json:"attribution"`
}

// SyncUser registers or refreshes the profile with its device attributes.
func (c *Client) SyncUser(ctx context.Context, profileID, customerUserID string, attrs models.DeviceAttributes) (*models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, http.MethodPost, "/users/sync", nil,
		syncUserRequest{ProfileID: profileID, CustomerUserID: customerUserID, Attributes: attrs},
		&profile, monetixerr.CodeUserNotFound)
	if err != nil {
		return nil, err
	}
	profile.Normalize()
	return &profile, nil
}

// GetProfile fetches the entitlement profile.
func (c *Client) GetProfile(ctx context.Context, profileID string) (*models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(profileID)+"/profile", nil,
		nil, &profile, monetixerr.CodeUserNotFound)
	if err != nil {
		return nil, err
	}
	profile.Normalize()
	return &profile, nil
}

// UpdateAttributes replaces the profile's custom attributes and returns the
// refreshed profile.
func (c *Client) UpdateAttributes(ctx context.Context, profileID string, attrs map[string]models.Value) (*models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(profileID)+"/attributes", nil,
		attributesRequest{Attributes: attrs}, &profile, monetixerr.CodeUserNotFound)
	if err != nil {
		return nil, err
	}
	profile.Normalize()
	return &profile, nil
}

// Identify links the anonymous profile to a customer user id.
func (c *Client) Identify(ctx context.Context, profileID, customerUserID string) (*models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, http.MethodPost, "/users/identify", nil,
		identifyRequest{ProfileID: profileID, CustomerUserID: customerUserID},
		&profile, monetixerr.CodeUserNotFound)
	if err != nil {
		return nil, err
	}
	profile.Normalize()
	return &profile, nil
}

// Logout detaches the customer user id from the profile.
func (c *Client) Logout(ctx context.Context, profileID string) error {
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(profileID)+"/logout", nil,
		nil, nil, monetixerr.CodeUserNotFound)
}

// CheckAccess is the fast boolean entitlement path.
func (c *Client) CheckAccess(ctx context.Context, profileID string) (*models.AccessCheck, error) {
	var check models.AccessCheck
	err := c.do(ctx, http.MethodGet, "/access/check/"+url.PathEscape(profileID), nil,
		nil, &check, monetixerr.CodeUserNotFound)
	if err != nil {
		return nil, err
	}
	return &check, nil
}

// GetPaywall loads the paywall configuration for a placement.
func (c *Client) GetPaywall(ctx context.Context, placementID, profileID, locale string) (*models.Paywall, error) {
	query := url.Values{}
	query.Set("placement", placementID)
	query.Set("user_id", profileID)
	if locale != "" {
		query.Set("locale", locale)
	}
	var paywall models.Paywall
	err := c.do(ctx, http.MethodGet, "/paywalls/get-paywall", query,
		nil, &paywall, monetixerr.CodePaywallNotFound)
	if err != nil {
		return nil, err
	}
	return &paywall, nil
}

// AttributePurchase credits a purchase to the paywall variation it was made
// from, for A/B accounting.
func (c *Client) AttributePurchase(ctx context.Context, profileID, variationID, transactionID string) error {
	return c.do(ctx, http.MethodPost, "/paywalls/post-purchase", nil,
		attributePurchaseRequest{ProfileID: profileID, VariationID: variationID, TransactionID: transactionID},
		nil, monetixerr.CodePaywallNotFound)
}

// ReportPurchase reports one user-initiated purchase and returns the updated
// profile.
func (c *Client) ReportPurchase(ctx context.Context, profileID string, tx TransactionReport) (*models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, http.MethodPost, "/purchases/report", nil,
		reportPurchaseRequest{ProfileID: profileID, Transaction: tx},
		&profile, monetixerr.CodeUserNotFound)
	if err != nil {
		return nil, err
	}
	profile.Normalize()
	return &profile, nil
}

// SyncReceipt reports one store-originated transaction observed by the
// background listener.
func (c *Client) SyncReceipt(ctx context.Context, profileID string, tx TransactionReport) (*models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, http.MethodPost, "/purchases/sync-receipt", nil,
		reportPurchaseRequest{ProfileID: profileID, Transaction: tx},
		&profile, monetixerr.CodeUserNotFound)
	if err != nil {
		return nil, err
	}
	profile.Normalize()
	return &profile, nil
}

// Restore reports the full set of currently-entitled transactions in one
// batch and returns the updated profile.
func (c *Client) Restore(ctx context.Context, profileID string, txs []TransactionReport) (*models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, http.MethodPost, "/purchases/restore", nil,
		restoreRequest{ProfileID: profileID, Transactions: txs},
		&profile, monetixerr.CodeUserNotFound)
	if err != nil {
		return nil, err
	}
	profile.Normalize()
	return &profile, nil
}

// TrackEvent delivers one analytics event. The outbox is the only caller.
func (c *Client) TrackEvent(ctx context.Context, event Event) error {
	return c.do(ctx, http.MethodPost, "/analytics/track-event", nil,
		event, nil, monetixerr.CodeUserNotFound)
}

// UpdateAttribution pushes install-attribution data to the profile.
func (c *Client) UpdateAttribution(ctx context.Context, profileID, source string, attribution models.Value) error {
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(profileID)+"/attribution", nil,
		attributionRequest{Source: source, Attribution: attribution},
		nil, monetixerr.CodeUserNotFound)
}

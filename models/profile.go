package models

import "time"

// AccessLevel is a named entitlement (e.g. "premium") with activity and
// expiry semantics, independent of which product granted it.
type AccessLevel struct {
	ID                          string     `json:"id"`
	IsActive                    bool       `json:"is_active"`
	VendorProductID             string     `json:"vendor_product_id,omitempty"`
	ActivatedAt                 Timestamp  `json:"activated_at,omitempty"`
	RenewedAt                   *Timestamp `json:"renewed_at,omitempty"`
	ExpiresAt                   *Timestamp `json:"expires_at,omitempty"`
	IsLifetime                  bool       `json:"is_lifetime,omitempty"`
	WillRenew                   bool       `json:"will_renew,omitempty"`
	IsInGracePeriod             bool       `json:"is_in_grace_period,omitempty"`
	IsRefund                    bool       `json:"is_refund,omitempty"`
	ActiveIntroductoryOfferType string     `json:"active_introductory_offer_type,omitempty"`
	UnsubscribedAt              *Timestamp `json:"unsubscribed_at,omitempty"`
	BillingIssueDetectedAt      *Timestamp `json:"billing_issue_detected_at,omitempty"`
}

// ActiveNow reports whether the level actually grants access at now. The
// is_active flag alone is not sufficient: refunds revoke access and an
// expired level only counts while inside its grace period.
func (a AccessLevel) ActiveNow(now time.Time) bool {
	if !a.IsActive || a.IsRefund {
		return false
	}
	if a.IsLifetime {
		return true
	}
	if a.ExpiresAt == nil || a.ExpiresAt.IsZero() {
		return true
	}
	if a.ExpiresAt.After(now) {
		return true
	}
	return a.IsInGracePeriod
}

// Subscription mirrors one store subscription known to the backend.
type Subscription struct {
	StoreTransactionID          string     `json:"store_transaction_id"`
	VendorOriginalTransactionID string     `json:"vendor_original_transaction_id,omitempty"`
	VendorProductID             string     `json:"vendor_product_id"`
	IsActive                    bool       `json:"is_active"`
	WillRenew                   bool       `json:"will_renew,omitempty"`
	ActivatedAt                 Timestamp  `json:"activated_at,omitempty"`
	RenewedAt                   *Timestamp `json:"renewed_at,omitempty"`
	ExpiresAt                   *Timestamp `json:"expires_at,omitempty"`
	IsInGracePeriod             bool       `json:"is_in_grace_period,omitempty"`
	IsRefund                    bool       `json:"is_refund,omitempty"`
	IsSandbox                   bool       `json:"is_sandbox,omitempty"`
}

// NonSubscription is a one-time purchase record.
type NonSubscription struct {
	PurchaseID         string    `json:"purchase_id"`
	VendorProductID    string    `json:"vendor_product_id"`
	StoreTransactionID string    `json:"store_transaction_id,omitempty"`
	PurchasedAt        Timestamp `json:"purchased_at,omitempty"`
	IsRefund           bool      `json:"is_refund,omitempty"`
	IsConsumable       bool      `json:"is_consumable,omitempty"`
}

// Profile is the aggregate, server-sourced record of a user's access levels,
// subscriptions and one-time purchases. It is replaced wholesale on every
// successful fetch or report, never merged field by field.
type Profile struct {
	ProfileID        string                       `json:"profile_id"`
	CustomerUserID   string                       `json:"customer_user_id,omitempty"`
	AccessLevels     map[string]AccessLevel       `json:"access_levels,omitempty"`
	Subscriptions    map[string]Subscription      `json:"subscriptions,omitempty"`
	NonSubscriptions map[string][]NonSubscription `json:"non_subscriptions,omitempty"`
	CustomAttributes map[string]Value             `json:"custom_attributes,omitempty"`
	IsTestUser       bool                         `json:"is_test_user,omitempty"`
}

// Normalize fills nil collections with empty ones so callers never see a
// nil map for an optional field the server omitted.
func (p *Profile) Normalize() {
	if p.AccessLevels == nil {
		p.AccessLevels = map[string]AccessLevel{}
	}
	if p.Subscriptions == nil {
		p.Subscriptions = map[string]Subscription{}
	}
	if p.NonSubscriptions == nil {
		p.NonSubscriptions = map[string][]NonSubscription{}
	}
	if p.CustomAttributes == nil {
		p.CustomAttributes = map[string]Value{}
	}
}

// IsPremium reports whether at least one access level grants access now.
func (p *Profile) IsPremium() bool {
	return p.IsPremiumAt(time.Now())
}

// IsPremiumAt is IsPremium evaluated at an arbitrary instant.
func (p *Profile) IsPremiumAt(now time.Time) bool {
	for _, level := range p.AccessLevels {
		if level.ActiveNow(now) {
			return true
		}
	}
	return false
}

// AccessLevel returns the named level if the profile carries it.
func (p *Profile) AccessLevel(id string) (AccessLevel, bool) {
	level, ok := p.AccessLevels[id]
	return level, ok
}

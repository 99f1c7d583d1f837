package models

// Paywall describes one placement's paywall configuration as served by the
// backend, including the A/B variation the user was bucketed into.
type Paywall struct {
	PlacementID      string   `json:"placement_id"`
	Name             string   `json:"name,omitempty"`
	VariationID      string   `json:"variation_id"`
	ABTestName       string   `json:"ab_test_name,omitempty"`
	Revision         int      `json:"revision,omitempty"`
	Locale           string   `json:"locale,omitempty"`
	VendorProductIDs []string `json:"vendor_product_ids,omitempty"`
	RemoteConfig     Value    `json:"remote_config,omitempty"`
}

// Product is a purchasable product as known to the platform purchase store.
type Product struct {
	VendorProductID    string  `json:"vendor_product_id"`
	Title              string  `json:"title,omitempty"`
	Description        string  `json:"description,omitempty"`
	Price              float64 `json:"price"`
	CurrencyCode       string  `json:"currency_code,omitempty"`
	SubscriptionPeriod string  `json:"subscription_period,omitempty"`

	// PaywallVariationID carries the variation the product was offered
	// from, so a later purchase can be attributed to it.
	PaywallVariationID string `json:"paywall_variation_id,omitempty"`
}

// AccessCheck is the fast boolean entitlement answer.
type AccessCheck struct {
	ProfileID     string `json:"profile_id,omitempty"`
	HasAccess     bool   `json:"has_access"`
	AccessLevelID string `json:"access_level_id,omitempty"`
}

// DeviceAttributes are the ambient device facts synced best-effort at
// activation.
type DeviceAttributes struct {
	Locale     string `json:"locale,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
	SDKVersion string `json:"sdk_version,omitempty"`
	Platform   string `json:"platform,omitempty"`
}

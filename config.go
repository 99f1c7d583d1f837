package monetix

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/monetix/monetix-go/internal/pkg/monetixerr"
	"github.com/monetix/monetix-go/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config configures one Client. It is consumed once by Activate; later
// Activate calls leave the first configuration in effect.
type Config struct {
	// APIKey authenticates every backend request.
	APIKey string `validate:"required"`

	// BaseURL is the entitlement backend root, e.g. "https://api.monetix.io/v1".
	BaseURL string `validate:"required,url"`

	// Store is the platform purchase store implementation.
	Store store.Store `validate:"required"`

	// StorePublicKey verifies the store's signed transaction payloads.
	StorePublicKey *ecdsa.PublicKey

	// CustomerUserID names the user. Empty means an anonymous identity is
	// generated at activation.
	CustomerUserID string

	// ObserverMode suppresses backend purchase reporting: transactions are
	// still verified and finished, but another system is authoritative.
	ObserverMode bool

	// ProfileCacheTTL overrides the profile cache freshness window.
	// Zero means the 300s default.
	ProfileCacheTTL time.Duration

	// CacheRedis, when set, keeps the profile cache entry in redis instead
	// of process memory, so co-operating processes share it.
	CacheRedis    *redis.Client
	CacheRedisKey string

	// PlatformTag overrides the platform stamped on requests and events.
	PlatformTag string

	// Device attributes synced best-effort at activation.
	Locale     string
	Timezone   string
	AppVersion string

	// LogHandler, when set, receives all SDK log records.
	LogHandler LogHandler
}

// Validate checks the configuration before activation.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return monetixerr.Wrap(monetixerr.CodeInvalidConfiguration, fmt.Errorf("config validation: %w", err))
	}
	return nil
}

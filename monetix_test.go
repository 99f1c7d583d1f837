package monetix

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monetix/monetix-go/internal/pkg/gateway"
	"github.com/monetix/monetix-go/models"
	"github.com/monetix/monetix-go/store"
)

// fakeStore is a scriptable platform purchase store.
type fakeStore struct {
	mu           sync.Mutex
	outcome      store.PurchaseOutcome
	purchaseErr  error
	entitlements []store.Transaction
	updates      chan store.Transaction
	finished     []string
	products     []models.Product
}

func newFakeStore() *fakeStore {
	return &fakeStore{updates: make(chan store.Transaction, 8)}
}

func (f *fakeStore) Purchase(ctx context.Context, productID string) (store.PurchaseOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purchaseErr != nil {
		return store.PurchaseOutcome{}, f.purchaseErr
	}
	return f.outcome, nil
}

func (f *fakeStore) CurrentEntitlements(ctx context.Context) ([]store.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entitlements, nil
}

func (f *fakeStore) Updates() <-chan store.Transaction { return f.updates }

func (f *fakeStore) Finish(ctx context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, transactionID)
	return nil
}

func (f *fakeStore) Products(ctx context.Context, ids []string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.products != nil {
		return f.products, nil
	}
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, models.Product{VendorProductID: id, Price: 4.99})
	}
	return products, nil
}

// testBackend is an httptest stand-in for the entitlement backend. It serves
// whatever profile is currently installed and counts what the SDK asked for.
type testBackend struct {
	mu            sync.Mutex
	profile       models.Profile
	paywall       models.Paywall
	syncs         int
	profileGets   int
	identifies    int
	logouts       int
	reports       int
	restores      int
	attributions  int
	lastProfileID string
	identifiedAs  string
	events        []gateway.Event

	srv *httptest.Server
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b := &testBackend{
		paywall: models.Paywall{
			PlacementID:      "onboarding",
			VariationID:      "var-blue",
			VendorProductIDs: []string{"premium.monthly", "premium.yearly"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/sync", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.syncs++
		b.mu.Unlock()
		b.respondProfile(w)
	})
	mux.HandleFunc("GET /users/{id}/profile", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.profileGets++
		b.lastProfileID = r.PathValue("id")
		b.mu.Unlock()
		b.respondProfile(w)
	})
	mux.HandleFunc("POST /users/identify", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProfileID      string `json:"profile_id"`
			CustomerUserID string `json:"customer_user_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.identifies++
		b.identifiedAs = req.CustomerUserID
		b.mu.Unlock()
		b.respondProfile(w)
	})
	mux.HandleFunc("POST /users/{id}/logout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.logouts++
		b.mu.Unlock()
		respond(w, struct{}{})
	})
	mux.HandleFunc("POST /purchases/report", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.reports++
		b.mu.Unlock()
		b.respondProfile(w)
	})
	mux.HandleFunc("POST /purchases/sync-receipt", func(w http.ResponseWriter, r *http.Request) {
		b.respondProfile(w)
	})
	mux.HandleFunc("POST /purchases/restore", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.restores++
		b.mu.Unlock()
		b.respondProfile(w)
	})
	mux.HandleFunc("POST /paywalls/post-purchase", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.attributions++
		b.mu.Unlock()
		respond(w, struct{}{})
	})
	mux.HandleFunc("GET /paywalls/get-paywall", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		paywall := b.paywall
		b.mu.Unlock()
		respond(w, paywall)
	})
	mux.HandleFunc("POST /analytics/track-event", func(w http.ResponseWriter, r *http.Request) {
		var event gateway.Event
		_ = json.NewDecoder(r.Body).Decode(&event)
		b.mu.Lock()
		b.events = append(b.events, event)
		b.mu.Unlock()
		respond(w, struct{}{})
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *testBackend) respondProfile(w http.ResponseWriter) {
	b.mu.Lock()
	profile := b.profile
	b.mu.Unlock()
	respond(w, profile)
}

func (b *testBackend) setProfile(p models.Profile) {
	b.mu.Lock()
	b.profile = p
	b.mu.Unlock()
}

func respond(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func newSigningKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func signTransaction(t *testing.T, key *ecdsa.PrivateKey, tx store.Transaction) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"transaction_id":          tx.TransactionID,
		"original_transaction_id": tx.OriginalTransactionID,
		"product_id":              tx.ProductID,
		"environment":             tx.Environment,
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func profileWith(id string, levels map[string]models.AccessLevel) models.Profile {
	p := models.Profile{ProfileID: id, AccessLevels: levels}
	p.Normalize()
	return p
}

func premiumLevel(active bool, expires time.Time) map[string]models.AccessLevel {
	exp := models.Timestamp{Time: expires}
	return map[string]models.AccessLevel{
		"premium": {ID: "premium", IsActive: active, ExpiresAt: &exp},
	}
}

func activate(t *testing.T, backend *testBackend, st store.Store, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		APIKey:         "pk_test",
		BaseURL:        backend.srv.URL,
		Store:          st,
		CustomerUserID: "u1",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c := New()
	require.NoError(t, c.Activate(t.Context(), cfg))
	t.Cleanup(c.StopObserving)
	return c
}

func TestActivateValidatesConfiguration(t *testing.T) {
	c := New()
	err := c.Activate(t.Context(), Config{BaseURL: "https://api.example.com", Store: newFakeStore()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Equal(t, StateInactive, c.State())

	err = c.Activate(t.Context(), Config{APIKey: "pk", BaseURL: "not a url", Store: newFakeStore()})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Equal(t, StateInactive, c.State())
}

func TestOperationsRequireActivation(t *testing.T) {
	c := New()
	ctx := t.Context()

	_, err := c.GetProfile(ctx, false)
	assert.ErrorIs(t, err, ErrNotActivated)
	_, err = c.CheckAccess(ctx)
	assert.ErrorIs(t, err, ErrNotActivated)
	_, err = c.MakePurchase(ctx, models.Product{VendorProductID: "p"})
	assert.ErrorIs(t, err, ErrNotActivated)
	_, err = c.RestorePurchases(ctx)
	assert.ErrorIs(t, err, ErrNotActivated)
	assert.ErrorIs(t, c.Identify(ctx, "u2"), ErrNotActivated)
	assert.ErrorIs(t, c.Logout(ctx), ErrNotActivated)
	assert.ErrorIs(t, c.TrackEvent("opened", nil), ErrNotActivated)
	assert.ErrorIs(t, c.Flush(ctx), ErrNotActivated)
}

func TestActivateSeedsCacheFromDeviceSync(t *testing.T) {
	backend := newTestBackend(t)
	backend.setProfile(profileWith("u1", nil))

	c := activate(t, backend, newFakeStore(), nil)
	assert.Equal(t, StateActive, c.State())

	profile, err := c.GetProfile(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ProfileID)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.syncs)
	assert.Equal(t, 0, backend.profileGets, "fresh cache entry from sync must serve the read")
}

func TestRepeatedActivateKeepsFirstConfiguration(t *testing.T) {
	first := newTestBackend(t)
	first.setProfile(profileWith("u1", nil))
	second := newTestBackend(t)

	c := activate(t, first, newFakeStore(), nil)

	err := c.Activate(t.Context(), Config{
		APIKey:         "pk_other",
		BaseURL:        second.srv.URL,
		Store:          newFakeStore(),
		CustomerUserID: "someone-else",
	})
	require.NoError(t, err)
	assert.Equal(t, StateActive, c.State())

	_, err = c.GetProfile(t.Context(), true)
	require.NoError(t, err)

	first.mu.Lock()
	assert.Equal(t, "u1", first.lastProfileID)
	assert.Equal(t, 1, first.profileGets)
	first.mu.Unlock()

	second.mu.Lock()
	assert.Equal(t, 0, second.syncs, "second configuration must never take effect")
	assert.Equal(t, 0, second.profileGets)
	second.mu.Unlock()
}

func TestPremiumFlipsWithEntitlementChanges(t *testing.T) {
	backend := newTestBackend(t)
	backend.setProfile(profileWith("u1", nil))

	key := newSigningKey(t)
	st := newFakeStore()
	c := activate(t, backend, st, func(cfg *Config) {
		cfg.StorePublicKey = &key.PublicKey
	})

	profile, err := c.GetProfile(t.Context(), false)
	require.NoError(t, err)
	assert.False(t, profile.IsPremium(), "no access levels means no premium")

	// The backend grants premium in response to the purchase report.
	backend.setProfile(profileWith("u1", premiumLevel(true, time.Now().Add(30*24*time.Hour))))
	tx := store.Transaction{
		TransactionID:         "tx-1000",
		OriginalTransactionID: "tx-1000",
		ProductID:             "premium.monthly",
		Environment:           store.EnvironmentProduction,
	}
	tx.SignedPayload = signTransaction(t, key, tx)
	st.mu.Lock()
	st.outcome = store.PurchaseOutcome{State: store.PurchaseCompleted, Transaction: &tx}
	st.mu.Unlock()

	result, err := c.MakePurchase(t.Context(), models.Product{VendorProductID: "premium.monthly"})
	require.NoError(t, err)
	require.NotNil(t, result.Profile)
	assert.True(t, result.Profile.IsPremium())
	assert.False(t, result.IsPurchaseCancelled)

	st.mu.Lock()
	assert.Equal(t, []string{"tx-1000"}, st.finished)
	st.mu.Unlock()

	// The report's profile landed in the cache, so the read needs no fetch.
	backend.mu.Lock()
	getsBefore := backend.profileGets
	backend.mu.Unlock()
	profile, err = c.GetProfile(t.Context(), false)
	require.NoError(t, err)
	assert.True(t, profile.IsPremium())
	backend.mu.Lock()
	assert.Equal(t, getsBefore, backend.profileGets)
	assert.Equal(t, 1, backend.reports)
	backend.mu.Unlock()

	// Entitlement revoked server-side: restore replaces the cached profile.
	backend.setProfile(profileWith("u1", premiumLevel(false, time.Now().Add(-time.Hour))))
	st.mu.Lock()
	st.entitlements = nil
	st.mu.Unlock()
	profile, err = c.RestorePurchases(t.Context())
	require.NoError(t, err)
	assert.False(t, profile.IsPremium())

	profile, err = c.GetProfile(t.Context(), false)
	require.NoError(t, err)
	assert.False(t, profile.IsPremium())
}

func TestPurchaseCancellationIsNotAnError(t *testing.T) {
	backend := newTestBackend(t)
	backend.setProfile(profileWith("u1", nil))

	st := newFakeStore()
	st.outcome = store.PurchaseOutcome{State: store.PurchaseCancelled}
	c := activate(t, backend, st, nil)

	result, err := c.MakePurchase(t.Context(), models.Product{VendorProductID: "premium.monthly"})
	require.NoError(t, err)
	assert.True(t, result.IsPurchaseCancelled)
	assert.Nil(t, result.Profile)

	backend.mu.Lock()
	assert.Equal(t, 0, backend.reports)
	backend.mu.Unlock()
}

func TestIdentifySwitchesIdentity(t *testing.T) {
	backend := newTestBackend(t)
	backend.setProfile(profileWith("", nil))

	c := activate(t, backend, newFakeStore(), func(cfg *Config) {
		cfg.CustomerUserID = ""
	})

	backend.setProfile(profileWith("customer-1", nil))
	require.NoError(t, c.Identify(t.Context(), "customer-1"))

	backend.mu.Lock()
	assert.Equal(t, 1, backend.identifies)
	assert.Equal(t, "customer-1", backend.identifiedAs)
	gets := backend.profileGets
	backend.mu.Unlock()

	// Identify primes the cache with the linked profile.
	profile, err := c.GetProfile(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, "customer-1", profile.ProfileID)
	backend.mu.Lock()
	assert.Equal(t, gets, backend.profileGets)
	backend.mu.Unlock()
}

func TestLogoutStartsFreshAnonymousIdentity(t *testing.T) {
	backend := newTestBackend(t)
	backend.setProfile(profileWith("u1", nil))

	c := activate(t, backend, newFakeStore(), nil)
	require.NoError(t, c.Logout(t.Context()))

	// The next read runs under a fresh anonymous identity and must not be
	// served from the old user's cache entry.
	_, err := c.GetProfile(t.Context(), false)
	require.NoError(t, err)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.logouts)
	assert.Equal(t, 1, backend.profileGets)
	assert.NotEqual(t, "u1", backend.lastProfileID)
	_, err = uuid.Parse(backend.lastProfileID)
	assert.NoError(t, err, "anonymous identity must be a uuid")
}

func TestTrackEventDeliversThroughOutbox(t *testing.T) {
	backend := newTestBackend(t)
	backend.setProfile(profileWith("u1", nil))

	c := activate(t, backend, newFakeStore(), nil)
	require.NoError(t, c.TrackEvent("paywall_shown", map[string]models.Value{
		"placement": models.StringValue("onboarding"),
	}))

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.events, 1)
	event := backend.events[0]
	assert.Equal(t, "paywall_shown", event.Name)
	assert.Equal(t, "u1", event.ProfileID)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, 1, event.SchemaVersion)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestPaywallProductsCarryVariation(t *testing.T) {
	backend := newTestBackend(t)
	backend.setProfile(profileWith("u1", nil))

	c := activate(t, backend, newFakeStore(), nil)

	paywall, err := c.GetPaywall(t.Context(), "onboarding", "en")
	require.NoError(t, err)
	assert.Equal(t, "var-blue", paywall.VariationID)

	products, err := c.GetPaywallProducts(t.Context(), paywall)
	require.NoError(t, err)
	require.Len(t, products, 2)
	for _, p := range products {
		assert.Equal(t, "var-blue", p.PaywallVariationID)
	}

	_, err = c.GetPaywallProducts(t.Context(), nil)
	assert.ErrorIs(t, err, ErrPaywallNotFound)
}

func TestPaywallPurchaseIsAttributed(t *testing.T) {
	backend := newTestBackend(t)
	backend.setProfile(profileWith("u1", nil))

	key := newSigningKey(t)
	st := newFakeStore()
	c := activate(t, backend, st, func(cfg *Config) {
		cfg.StorePublicKey = &key.PublicKey
	})

	tx := store.Transaction{TransactionID: "tx-7", ProductID: "premium.monthly"}
	tx.SignedPayload = signTransaction(t, key, tx)
	st.mu.Lock()
	st.outcome = store.PurchaseOutcome{State: store.PurchaseCompleted, Transaction: &tx}
	st.mu.Unlock()

	_, err := c.MakePurchase(t.Context(), models.Product{
		VendorProductID:    "premium.monthly",
		PaywallVariationID: "var-blue",
	})
	require.NoError(t, err)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.reports)
	assert.Equal(t, 1, backend.attributions)
}

func TestCallbackAdapterForwardsResult(t *testing.T) {
	backend := newTestBackend(t)
	backend.setProfile(profileWith("u1", nil))

	c := activate(t, backend, newFakeStore(), nil)

	done := make(chan struct{})
	var got *models.Profile
	var gotErr error
	c.GetProfileWithCallback(t.Context(), false, func(profile *models.Profile, err error) {
		got, gotErr = profile, err
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
	require.NoError(t, gotErr)
	assert.Equal(t, "u1", got.ProfileID)
}

func TestUserNotFoundSurfacesTaxonomyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/sync" {
			respond(w, profileWith("u1", nil))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]any{"message": "no such profile"},
		})
	}))
	t.Cleanup(srv.Close)

	c := New()
	require.NoError(t, c.Activate(t.Context(), Config{
		APIKey:         "pk_test",
		BaseURL:        srv.URL,
		Store:          newFakeStore(),
		CustomerUserID: "u1",
	}))
	t.Cleanup(c.StopObserving)

	_, err := c.GetProfile(t.Context(), true)
	assert.ErrorIs(t, err, ErrUserNotFound)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus)
}

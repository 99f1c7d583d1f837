package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/monetix/monetix-go"
	"github.com/monetix/monetix-go/internal/pkg/env"
	"github.com/monetix/monetix-go/models"
	"github.com/monetix/monetix-go/store"
)

// cliStore is a stand-in purchase store: the CLI has no system purchase UI,
// so purchases cancel and the entitlement set is empty. It exists to
// exercise activation, profile reads and event tracking against a real
// backend.
type cliStore struct {
	updates chan store.Transaction
}

func newCLIStore() *cliStore {
	return &cliStore{updates: make(chan store.Transaction)}
}

func (s *cliStore) Purchase(context.Context, string) (store.PurchaseOutcome, error) {
	return store.PurchaseOutcome{State: store.PurchaseCancelled}, nil
}

func (s *cliStore) CurrentEntitlements(context.Context) ([]store.Transaction, error) {
	return nil, nil
}

func (s *cliStore) Updates() <-chan store.Transaction { return s.updates }

func (s *cliStore) Finish(context.Context, string) error { return nil }

func (s *cliStore) Products(_ context.Context, ids []string) ([]models.Product, error) {
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, models.Product{VendorProductID: id})
	}
	return products, nil
}

func main() {
	env.SetupEnvFile()

	command := "profile"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := monetix.New()
	err := client.Activate(ctx, monetix.Config{
		APIKey:         env.GetEnv("MONETIX_API_KEY", ""),
		BaseURL:        env.GetEnv("MONETIX_BASE_URL", "https://api.monetix.io/v1"),
		CustomerUserID: env.GetEnv("MONETIX_CUSTOMER_USER_ID", ""),
		Store:          newCLIStore(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "activate: %v\n", err)
		os.Exit(1)
	}
	defer client.StopObserving()

	switch command {
	case "profile":
		profile, err := client.GetProfile(ctx, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get profile: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("profile %s premium=%v access_levels=%d\n",
			profile.ProfileID, profile.IsPremium(), len(profile.AccessLevels))

	case "access":
		check, err := client.CheckAccess(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "check access: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("has_access=%v level=%s\n", check.HasAccess, check.AccessLevelID)

	case "track":
		name := "cli_ping"
		if len(os.Args) > 2 {
			name = os.Args[2]
		}
		if err := client.TrackEvent(name, map[string]monetix.Value{
			"source": monetix.StringValue("monetix-cli"),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "track: %v\n", err)
			os.Exit(1)
		}
		if err := client.Flush(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "flush: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("tracked %q\n", name)

	default:
		fmt.Fprintf(os.Stderr, "usage: monetix-cli [profile|access|track <event>]\n")
		os.Exit(2)
	}
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"craftcloud/pkg/sdk"

	"github.com/pkg/browser"
)

const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
)

var Providers = []string{ProviderStripe, ProviderPayPal}

type Package struct {
	ID       string
	Name     string
	Credits  int
	PriceUSD float64
}

var Packages = []Package{
	{ID: "pack_starter", Name: "Starter Pack", Credits: 500, PriceUSD: 5.00},
	{ID: "pack_pro", Name: "Pro Pack", Credits: 2500, PriceUSD: 20.00},
}

var (
	ErrUnknownPackage  = errors.New("unknown credit package")
	ErrUnknownProvider = errors.New("unsupported payment provider")
	ErrNoCheckoutURL   = errors.New("backend returned no checkout url")
)

// Checkouter opens a payment session. *sdk.Session satisfies it.
type Checkouter interface {
	Checkout(ctx context.Context, packageID, provider string) (*sdk.CheckoutSession, error)
}

// Store hands the user off to the payment provider. The component that
// triggers a purchase holds a *Store; nothing is published globally.
type Store struct {
	checkout Checkouter
	open     func(url string) error
	logger   *slog.Logger
}

func NewStore(checkout Checkouter, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		checkout: checkout,
		open:     browser.OpenURL,
		logger:   logger,
	}
}

// WithOpener replaces the browser launcher.
func (s *Store) WithOpener(open func(url string) error) *Store {
	s.open = open
	return s
}

func FindPackage(id string) (Package, bool) {
	for _, p := range Packages {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}

func validProvider(provider string) bool {
	for _, p := range Providers {
		if p == provider {
			return true
		}
	}
	return false
}

// Buy creates a checkout session and opens its URL. The URL is returned
// even when the browser could not be launched so callers can print it.
func (s *Store) Buy(ctx context.Context, packageID, provider string) (string, error) {
	if _, ok := FindPackage(packageID); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPackage, packageID)
	}
	if !validProvider(provider) {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	session, err := s.checkout.Checkout(ctx, packageID, provider)
	if err != nil {
		return "", fmt.Errorf("failed to initialize payment: %w", err)
	}
	if session.URL == "" {
		return "", ErrNoCheckoutURL
	}

	s.logger.Info("redirecting to payment provider", "package", packageID, "provider", provider)
	if err := s.open(session.URL); err != nil {
		s.logger.Warn("could not open browser", "error", err)
		return session.URL, fmt.Errorf("open checkout page: %w", err)
	}
	return session.URL, nil
}

package sdk

import "context"

func (s *Session) Checkout(ctx context.Context, packageID, provider string) (*CheckoutSession, error) {
	var checkout CheckoutSession
	err := s.postJSON(ctx, "/checkout", CheckoutRequest{PackageID: packageID, Provider: provider}, &checkout)
	if err != nil {
		return nil, err
	}
	return &checkout, nil
}

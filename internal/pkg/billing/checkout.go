package billing

import (
	"context"
	"fmt"

	"github.com/tooldashai/tooldash/internal/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CreateCheckoutSession prices the purchase and asks the provider for a
// hosted checkout URL the user is redirected to.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uint, credits int) (string, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "billing.CreateCheckoutSession")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int("checkout.credits", credits),
	)

	url, err := s.createCheckoutSession(ctx, userID, credits)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return url, nil
}

func (s *Service) createCheckoutSession(ctx context.Context, userID uint, credits int) (string, error) {
	if s.cfg.APIKey == "" || s.cfg.StoreID == "" || s.cfg.VariantID == "" {
		return "", fmt.Errorf("%w: missing required LEMONSQUEEZY env variables", ErrConfiguration)
	}
	if s.cfg.IsPending() && !s.cfg.IsTestUser(userID) {
		return "", ErrStoreUnavailable
	}
	if credits < MinCredits {
		return "", fmt.Errorf("%w: Minimum credit amount is %d", ErrValidation, MinCredits)
	}

	user, err := s.repo.GetUser(userID)
	if err != nil {
		return "", err
	}

	return s.client.CreateCheckout(ctx, CheckoutRequest{
		Email:       user.Email,
		UserID:      user.ID,
		Credits:     credits,
		PriceCents:  PriceInCents(credits),
		RedirectURL: s.cfg.RedirectURL,
	})
}

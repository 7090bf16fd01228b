package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/tooldashai/tooldash/internal/pkg/billing"
	"github.com/tooldashai/tooldash/internal/pkg/metrics/counter"
	"github.com/tooldashai/tooldash/internal/pkg/usercontext"
)

// WebhookDispatcher hands a stored webhook event to background processing.
type WebhookDispatcher interface {
	DispatchWebhookEvent(ctx context.Context, eventID int64, eventName string)
}

// BillingController serves checkout, balance and pricing endpoints and
// receives Lemon Squeezy webhooks.
type BillingController struct {
	svc        *billing.Service
	dispatcher WebhookDispatcher
	validate   *validator.Validate
	counters   *counter.Counters
}

// NewBillingController creates a billing controller
func NewBillingController(svc *billing.Service, dispatcher WebhookDispatcher) *BillingController {
	return &BillingController{
		svc:        svc,
		dispatcher: dispatcher,
		validate:   validator.New(),
	}
}

// SetCounters enables the Redis billing counters.
func (bc *BillingController) SetCounters(c *counter.Counters) {
	bc.counters = c
}

// CheckoutRequest is the body of POST /api/v1/checkout.
type CheckoutRequest struct {
	Credits int `json:"credits" validate:"required,gt=0"`
}

// HandleLemonSqueezyWebhook verifies, stores and dispatches a delivery. The
// provider gets its acknowledgement before the credits are applied.
func (bc *BillingController) HandleLemonSqueezyWebhook(c *fiber.Ctx) error {
	secret := bc.svc.Config().WebhookSecret
	if secret == "" {
		log.Error("[Webhook] LEMONSQUEEZY_WEBHOOK_SECRET is not set")
		return c.Status(fiber.StatusInternalServerError).SendString("Lemon Squeezy Webhook Secret not set in .env")
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	if err := billing.VerifyWebhookSignature(rawBody, c.Get(billing.SignatureHeader), secret); err != nil {
		log.Warnf("[Webhook] Rejected delivery from %s: %v", c.IP(), err)
		bc.count(c, counter.WebhooksRejected)
		return err
	}

	payload, err := billing.ParseWebhookPayload(rawBody)
	if err != nil || !payload.HasMeta() {
		return c.Status(fiber.StatusBadRequest).SendString("Data invalid")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()

	eventID, created, err := bc.svc.StoreWebhookEvent(ctx, payload.EventName(), rawBody)
	if err != nil {
		log.Errorf("[Webhook] Failed to store event %q: %v", payload.EventName(), err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to store webhook event")
	}

	bc.count(c, counter.WebhooksReceived)
	if created {
		bc.dispatcher.DispatchWebhookEvent(context.Background(), eventID, payload.EventName())
	} else {
		log.Infof("[Webhook] Duplicate delivery for event %d ignored", eventID)
		bc.count(c, counter.WebhooksDuplicate)
	}

	return c.Status(fiber.StatusOK).SendString("OK")
}

// HandleCreateCheckout starts a credit purchase for the current user.
func (bc *BillingController) HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Request body must be JSON")
	}
	if err := bc.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "credits must be a positive integer")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 20*time.Second)
	defer cancel()

	url, err := bc.svc.CreateCheckoutSession(ctx, userCtx.UserID, req.Credits)
	if err != nil {
		status := billingErrorStatus(err)
		if status >= fiber.StatusInternalServerError {
			log.Errorf("[Billing] Checkout for user %d failed: %v", userCtx.UserID, err)
		}
		return jsonError(c, status, billingErrorCode(status), billingErrorMessage(err, status))
	}

	bc.count(c, counter.CheckoutsCreated)
	return c.JSON(fiber.Map{"url": url})
}

// HandleStoreStatus reports whether checkout is currently open.
func (bc *BillingController) HandleStoreStatus(c *fiber.Ctx) error {
	return c.JSON(bc.svc.StoreStatus(usercontext.GetUserID(c)))
}

// HandleCredits returns the current user's credit balance.
func (bc *BillingController) HandleCredits(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	credits, err := bc.svc.CreditBalance(c.UserContext(), userID)
	if err != nil {
		status := billingErrorStatus(err)
		if status >= fiber.StatusInternalServerError {
			log.Errorf("[Billing] Credit lookup for user %d failed: %v", userID, err)
		}
		return jsonError(c, status, billingErrorCode(status), billingErrorMessage(err, status))
	}
	return c.JSON(fiber.Map{"credits": credits})
}

// HandleCounters returns the billing counters.
func (bc *BillingController) HandleCounters(c *fiber.Ctx) error {
	snap, err := bc.counters.Snapshot(c.UserContext())
	if err != nil {
		log.Errorf("[Billing] Failed to read counters: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Counters unavailable")
	}
	return c.JSON(fiber.Map{"counters": snap})
}

// HandlePricing previews the price of a quantity clamped to the sellable range.
func (bc *BillingController) HandlePricing(c *fiber.Ctx) error {
	credits := billing.ClampCredits(c.QueryInt("credits", billing.MinCredits))
	b := billing.ComputeBreakdown(credits)

	tiers := []TierAllocationResponse{
		newTierAllocationResponse(billing.Tiers[0], b.Tier1),
		newTierAllocationResponse(billing.Tiers[1], b.Tier2),
		newTierAllocationResponse(billing.Tiers[2], b.Tier3),
	}

	return c.JSON(PricingResponse{
		Credits:    credits,
		Tiers:      tiers,
		TotalCents: b.TotalCents,
		Total:      b.Total(),
	})
}

// HandlePricingTiers returns the volume price table.
func (bc *BillingController) HandlePricingTiers(c *fiber.Ctx) error {
	tiers := make([]TierResponse, 0, len(billing.Tiers))
	for _, t := range billing.Tiers {
		tiers = append(tiers, TierResponse{
			Name:       t.Name,
			MinCredits: t.MinCredits,
			MaxCredits: t.MaxCredits,
			UnitPrice:  t.UnitPrice(),
		})
	}
	return c.JSON(fiber.Map{
		"min_credits": billing.MinCredits,
		"max_credits": billing.MaxCredits,
		"tiers":       tiers,
	})
}

// PricingResponse is the body of GET /api/v1/pricing.
type PricingResponse struct {
	Credits    int                      `json:"credits"`
	Tiers      []TierAllocationResponse `json:"tiers"`
	TotalCents int64                    `json:"total_cents"`
	Total      float64                  `json:"total"`
}

// TierAllocationResponse is one tier line of a pricing preview.
type TierAllocationResponse struct {
	Name      string  `json:"name"`
	Credits   int     `json:"credits"`
	UnitPrice float64 `json:"unit_price"`
	Cost      float64 `json:"cost"`
}

// TierResponse is one row of the price table.
type TierResponse struct {
	Name       string  `json:"name"`
	MinCredits int     `json:"min_credits"`
	MaxCredits int     `json:"max_credits,omitempty"`
	UnitPrice  float64 `json:"unit_price"`
}

func newTierAllocationResponse(t billing.CreditTier, a billing.TierAllocation) TierAllocationResponse {
	return TierAllocationResponse{
		Name:      t.Name,
		Credits:   a.Credits,
		UnitPrice: t.UnitPrice(),
		Cost:      a.Cost(),
	}
}

func (bc *BillingController) count(c *fiber.Ctx, field string) {
	if err := bc.counters.Incr(c.UserContext(), field); err != nil {
		log.Warnf("[Billing] Failed to bump counter %s: %v", field, err)
	}
}

const storeUnavailableMessage = "Payment system is not yet available. Please try again later."

// billingErrorStatus maps billing errors to HTTP status codes.
func billingErrorStatus(err error) int {
	switch {
	case errors.Is(err, billing.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, billing.ErrStoreUnavailable):
		return fiber.StatusForbidden
	case errors.Is(err, billing.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, billing.ErrUpstream):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func billingErrorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "invalid_request"
	case fiber.StatusForbidden:
		return "store_unavailable"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusBadGateway:
		return "payment_provider_error"
	default:
		return "internal_server_error"
	}
}

// billingErrorMessage hides internal details of server-side failures.
func billingErrorMessage(err error, status int) string {
	switch status {
	case fiber.StatusForbidden:
		return storeUnavailableMessage
	case fiber.StatusBadRequest, fiber.StatusNotFound:
		return err.Error()
	case fiber.StatusBadGateway:
		return "Failed to create checkout session"
	default:
		return "Internal server error"
	}
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

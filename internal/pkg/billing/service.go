package billing

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"strings"

	"github.com/tooldashai/tooldash/app/models"
	"gorm.io/gorm"
)

// CheckoutClient creates hosted checkout sessions at the payment provider.
type CheckoutClient interface {
	CreateCheckout(ctx context.Context, in CheckoutRequest) (string, error)
}

// Service ties the billing configuration, persistence and provider client
// together. It holds no package-level state.
type Service struct {
	repo   Repository
	cfg    Config
	client CheckoutClient
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, cfg Config, client CheckoutClient) *Service {
	return &Service{repo: repo, cfg: cfg, client: client}
}

// NewServiceFromDB creates a billing service from a GORM DB handle using the
// Lemon Squeezy client.
func NewServiceFromDB(db *gorm.DB, cfg Config) *Service {
	return NewService(NewRepository(db), cfg, NewLemonSqueezyClient(cfg))
}

// Config returns the configuration the service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// WebhookEventID derives the event identifier from the raw body. A provider
// retry resends identical bytes and so maps to the same id.
func WebhookEventID(rawBody []byte) int64 {
	sum := sha256.Sum256(rawBody)
	id := int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
	if id == 0 {
		id = 1
	}
	return id
}

// StoreWebhookEvent persists a delivery idempotently. created is false when
// the same delivery was stored before.
func (s *Service) StoreWebhookEvent(ctx context.Context, eventName string, rawBody []byte) (int64, bool, error) {
	if len(rawBody) == 0 {
		return 0, false, errors.New("webhook body is required")
	}

	event := &models.WebhookEvent{
		ID:        WebhookEventID(rawBody),
		EventName: strings.TrimSpace(eventName),
		Body:      string(rawBody),
	}
	created, err := s.repo.CreateWebhookEventIfNotExists(event)
	if err != nil {
		return 0, false, err
	}
	return event.ID, created, nil
}

// GetWebhookEvent loads a stored event or returns ErrEventNotFound.
func (s *Service) GetWebhookEvent(ctx context.Context, id int64) (*models.WebhookEvent, error) {
	return s.repo.GetWebhookEvent(id)
}

// MarkWebhookProcessed flags an event processed and records the error text.
func (s *Service) MarkWebhookProcessed(ctx context.Context, id int64, processingError string) error {
	if id == 0 {
		return errors.New("webhook event id is required")
	}
	return s.repo.MarkWebhookProcessed(id, processingError)
}

// StoreStatus is the checkout availability reported to a user.
type StoreStatus struct {
	Status    string `json:"status"`
	IsPending bool   `json:"is_pending"`
}

// StoreStatus reports whether checkout is open. The test user always sees an
// approved store.
func (s *Service) StoreStatus(userID uint) StoreStatus {
	if s.cfg.IsTestUser(userID) {
		return StoreStatus{Status: StoreStatusApproved}
	}
	return StoreStatus{Status: s.cfg.StoreStatus, IsPending: s.cfg.IsPending()}
}

// CreditBalance returns the user's current credit balance.
func (s *Service) CreditBalance(ctx context.Context, userID uint) (int, error) {
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return 0, err
	}
	return user.Credits, nil
}

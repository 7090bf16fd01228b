package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/tooldashai/tooldash/internal/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Processor applies stored webhook events to user balances.
type Processor struct {
	repo Repository
}

// NewProcessor creates a processor over the billing repository.
func NewProcessor(repo Repository) *Processor {
	return &Processor{repo: repo}
}

// Process handles one stored event. Business failures are recorded on the
// event row; only infrastructure failures and a missing event are returned.
func (p *Processor) Process(ctx context.Context, eventID int64) error {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "billing.ProcessWebhookEvent")
	defer span.End()
	span.SetAttributes(attribute.Int64("webhook.event_id", eventID))

	if err := p.process(ctx, eventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (p *Processor) process(ctx context.Context, eventID int64) error {
	event, err := p.repo.GetWebhookEvent(eventID)
	if err != nil {
		return err
	}
	if event.Processed {
		log.Debugf("[Billing] Webhook event %d already processed, skipping", eventID)
		return nil
	}

	payload, err := ParseWebhookPayload([]byte(event.Body))
	if err != nil {
		return p.mark(eventID, err.Error())
	}

	switch payload.Kind() {
	case PayloadMissingMeta:
		return p.mark(eventID, msgMissingMeta)
	case PayloadMissingData:
		return p.mark(eventID, msgMissingData)
	}

	if !payload.IsOrderCreated() {
		return p.mark(eventID, "")
	}

	custom, err := payload.ParseOrderCustomData()
	if err != nil {
		return p.mark(eventID, msgInvalidCustom)
	}

	applied, err := p.repo.CreditUserForEvent(eventID, custom.UserID, custom.Credits)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return p.mark(eventID, fmt.Sprintf("User with ID %d not found", custom.UserID))
		}
		return err
	}
	if !applied {
		log.Debugf("[Billing] Webhook event %d was processed concurrently, no credits applied", eventID)
		return nil
	}
	log.Infof("[Billing] Credited %d credits to user %d (event %d)", custom.Credits, custom.UserID, eventID)
	return nil
}

func (p *Processor) mark(eventID int64, processingError string) error {
	if processingError != "" {
		log.Warnf("[Billing] Webhook event %d processed with error: %s", eventID, processingError)
	}
	return p.repo.MarkWebhookProcessed(eventID, processingError)
}

// ListPendingEventIDs returns ids of events still unprocessed after the given
// age so a sweep can re-dispatch lost jobs.
func (p *Processor) ListPendingEventIDs(ctx context.Context, olderThan time.Time, limit int) ([]int64, error) {
	events, err := p.repo.ListUnprocessedWebhookEvents(olderThan, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

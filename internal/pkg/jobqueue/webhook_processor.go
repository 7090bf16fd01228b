package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/tooldashai/tooldash/internal/pkg/billing"
)

const (
	WebhookLockKeyPrefix  = "webhook_event_lock:"
	defaultWebhookLockTTL = 5 * time.Minute
)

// EnqueueWebhookEvent schedules processing of a stored webhook event.
func (q *Queue) EnqueueWebhookEvent(ctx context.Context, eventID int64, eventName string) (*Job, error) {
	payload := WebhookEventJobPayload{EventID: eventID, EventName: eventName}
	return q.EnqueueJob(ctx, JobTypeProcessWebhookEvent, payload.ToMap())
}

// DispatchWebhookEvent hands an event to the workers. When Redis refuses the
// job the event is processed in a goroutine instead, so the caller can
// acknowledge the delivery either way.
func (q *Queue) DispatchWebhookEvent(ctx context.Context, eventID int64, eventName string) {
	_, err := q.EnqueueWebhookEvent(ctx, eventID, eventName)
	if err == nil {
		return
	}
	log.Warnf("[JobQueue] Could not enqueue webhook event %d, processing inline: %v", eventID, err)

	go func() {
		if err := q.runWebhookEvent(context.Background(), eventID); err != nil {
			log.Errorf("[JobQueue] Inline processing of webhook event %d failed: %v", eventID, err)
		}
	}()
}

func (q *Queue) processWebhookEventJob(ctx context.Context, job *Job) error {
	payload, err := WebhookEventJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("%w: invalid webhook job payload: %v", errPermanent, err)
	}
	if payload.EventID == 0 {
		return fmt.Errorf("%w: webhook job without event id", errPermanent)
	}
	return q.runWebhookEvent(ctx, payload.EventID)
}

// runWebhookEvent runs the processor under a per-event lock so two copies of
// the same job never apply concurrently.
func (q *Queue) runWebhookEvent(ctx context.Context, eventID int64) error {
	if q.webhooks == nil {
		return fmt.Errorf("%w: no webhook processor configured", errPermanent)
	}

	lockKey := WebhookLockKeyPrefix + strconv.FormatInt(eventID, 10)
	acquired, err := q.client.SetNX(ctx, lockKey, "1", q.lockTTL).Result()
	if err != nil {
		// Without Redis there is no lock; the processor is still idempotent
		// once the event row is marked.
		log.Warnf("[JobQueue] Webhook lock unavailable for event %d: %v", eventID, err)
		return q.webhooks.Process(ctx, eventID)
	}
	if !acquired {
		log.Infof("[JobQueue] Webhook event %d is already being processed, skipping", eventID)
		return nil
	}
	defer q.client.Del(context.Background(), lockKey)

	return q.webhooks.Process(ctx, eventID)
}

var errPermanent = errors.New("permanent job failure")

// isPermanent reports errors that a retry cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, errPermanent) || errors.Is(err, billing.ErrEventNotFound)
}

package counter

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// BillingCountersKey is the Redis hash holding the billing counters.
const BillingCountersKey = "billing:counters"

const (
	WebhooksReceived  = "webhooks_received"
	WebhooksDuplicate = "webhooks_duplicate"
	WebhooksRejected  = "webhooks_rejected"
	CheckoutsCreated  = "checkouts_created"
)

// Counters keeps monotonic billing counters in a Redis hash. A nil
// *Counters or one without a client ignores every call.
type Counters struct {
	client *redis.Client
}

func New(client *redis.Client) *Counters {
	return &Counters{client: client}
}

// Add increments field by delta.
func (c *Counters) Add(ctx context.Context, field string, delta int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.HIncrBy(ctx, BillingCountersKey, field, delta).Err()
}

// Incr increments field by one.
func (c *Counters) Incr(ctx context.Context, field string) error {
	return c.Add(ctx, field, 1)
}

// Snapshot returns all counters. Fields that do not parse as integers are
// skipped.
func (c *Counters) Snapshot(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	if c == nil || c.client == nil {
		return out, nil
	}

	data, err := c.client.HGetAll(ctx, BillingCountersKey).Result()
	if err != nil {
		return nil, err
	}
	for k, v := range data {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

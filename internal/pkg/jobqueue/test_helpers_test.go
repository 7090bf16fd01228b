package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type recordingProcessor struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (p *recordingProcessor) Process(ctx context.Context, eventID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, eventID)
	return p.err
}

func (p *recordingProcessor) Calls() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.calls...)
}

type staticPendingSource struct {
	ids []int64
	err error
}

func (s staticPendingSource) ListPendingEventIDs(ctx context.Context, olderThan time.Time, limit int) ([]int64, error) {
	return s.ids, s.err
}

func newTestQueue(t *testing.T, proc WebhookEventProcessor) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q := NewQueue(client, 2, proc)
	q.retryBackoff = 10 * time.Millisecond
	return q, mr
}

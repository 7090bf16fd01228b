package repository

import (
	"context"

	"github.com/tooldashai/tooldash/internal/pkg/jobqueue"
)

// queueRepository implements the QueueRepository interface
type queueRepository struct {
	queue *jobqueue.Queue
}

// NewQueueRepository creates a queue repository reading from queue
func NewQueueRepository(queue *jobqueue.Queue) QueueRepository {
	return &queueRepository{queue: queue}
}

// GetJobStats returns the per-status job counters
func (r *queueRepository) GetJobStats() (map[string]int64, error) {
	raw, err := r.queue.GetJobStats(context.Background())
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(raw))
	for status, n := range raw {
		stats[string(status)] = n
	}
	return stats, nil
}

// GetPendingCount returns the number of jobs waiting for a worker
func (r *queueRepository) GetPendingCount() (int64, error) {
	return r.queue.GetQueueSize(context.Background())
}

// GetProcessingCount returns the number of jobs currently held by workers
func (r *queueRepository) GetProcessingCount() (int64, error) {
	return r.queue.GetProcessingSize(context.Background())
}

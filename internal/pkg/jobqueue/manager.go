package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	defaultSweepInterval = 5 * time.Minute
	defaultGracePeriod   = 15 * time.Minute
	sweepBatchSize       = 100
)

// PendingWebhookSource lists stored webhook events that were never marked
// processed.
type PendingWebhookSource interface {
	ListPendingEventIDs(ctx context.Context, olderThan time.Time, limit int) ([]int64, error)
}

// Manager manages the job queue and its background sweeps
type Manager struct {
	queue         *Queue
	pending       PendingWebhookSource
	sweepInterval time.Duration
	gracePeriod   time.Duration
	sweepTicker   *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	globalMu      sync.RWMutex
)

// NewManager creates a manager for queue. pending may be nil to disable the
// webhook sweep.
func NewManager(queue *Queue, pending PendingWebhookSource) *Manager {
	return &Manager{
		queue:         queue,
		pending:       pending,
		sweepInterval: defaultSweepInterval,
		gracePeriod:   defaultGracePeriod,
		stopCh:        make(chan struct{}),
	}
}

// SetManager installs the process-wide manager.
func SetManager(m *Manager) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = m
}

// GetManager returns the process-wide manager or nil before SetManager.
func GetManager() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	if m.pending != nil {
		m.sweepTicker = time.NewTicker(m.sweepInterval)
		m.wg.Add(1)
		go m.webhookSweepWorker(m.stopCh, m.sweepTicker)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// webhookSweepWorker re-enqueues webhook events whose job was lost.
func (m *Manager) webhookSweepWorker(stopCh <-chan struct{}, ticker *time.Ticker) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started webhook sweep (interval: %s, grace: %s)", m.sweepInterval, m.gracePeriod)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Webhook sweep stopping")
			return
		case <-ticker.C:
			if _, err := m.SweepPendingWebhooks(context.Background()); err != nil {
				log.Errorf("[JobQueue Manager] Webhook sweep error: %v", err)
			}
		}
	}
}

// SweepPendingWebhooks enqueues every event still unprocessed after the
// grace period and returns how many were enqueued.
func (m *Manager) SweepPendingWebhooks(ctx context.Context) (int, error) {
	if m.pending == nil {
		return 0, nil
	}

	ids, err := m.pending.ListPendingEventIDs(ctx, time.Now().Add(-m.gracePeriod), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, id := range ids {
		if _, err := m.queue.EnqueueWebhookEvent(ctx, id, ""); err != nil {
			return enqueued, err
		}
		enqueued++
	}
	if enqueued > 0 {
		log.Warnf("[JobQueue Manager] Re-enqueued %d unprocessed webhook events", enqueued)
	}
	return enqueued, nil
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

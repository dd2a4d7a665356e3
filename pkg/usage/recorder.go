package usage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/botwire/conversation-gateway/pkg/license"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 1024

	// jobTimeout bounds each persistence attempt so a stalled
	// database cannot wedge the worker pool.
	jobTimeout = 10 * time.Second
)

// RecorderConfig configures the async usage recorder.
type RecorderConfig struct {
	Workers   int
	QueueSize int
}

// job is one unit of deferred persistence work.
type job struct {
	rec       Record
	licenseID string
}

// Recorder persists usage records asynchronously. Enqueueing never
// blocks the caller: when the queue is full the record is dropped,
// counted, and logged.
type Recorder struct {
	store    Store
	licenses license.Store
	logger   *slog.Logger

	jobs    chan job
	wg      sync.WaitGroup
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewRecorder creates a recorder and starts its worker pool.
func NewRecorder(store Store, licenses license.Store, logger *slog.Logger, cfg RecorderConfig) *Recorder {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		store:    store,
		licenses: licenses,
		logger:   logger,
		jobs:     make(chan job, cfg.QueueSize),
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}
	return r
}

// Record enqueues a usage record for persistence. When licenseID is
// non-empty the license's monthly counter is incremented alongside the
// record write. The call returns immediately.
func (r *Recorder) Record(rec Record, licenseID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.closed {
		select {
		case r.jobs <- job{rec: rec, licenseID: licenseID}:
			return
		default:
		}
	}
	r.dropped.Add(1)
	r.logger.Warn("usage record dropped",
		"user_id", rec.UserID,
		"bot_id", rec.BotID,
		"call_id", rec.CallID)
}

// Dropped reports how many records were discarded due to a full queue.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records and drains the queue. Records
// enqueued after Close are dropped and counted.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for j := range r.jobs {
		r.process(j)
	}
}

func (r *Recorder) process(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := r.store.Insert(ctx, j.rec); err != nil {
		r.logger.Error("persisting usage record failed",
			"record_id", j.rec.ID,
			"user_id", j.rec.UserID,
			"bot_id", j.rec.BotID,
			"error", err)
	}

	if j.licenseID == "" {
		return
	}
	if err := r.licenses.IncrementUsage(ctx, j.licenseID, j.rec.OccurredAt); err != nil {
		// The record write and the counter bump are not atomic; a
		// failure here under-counts the quota until reconciliation.
		r.logger.Error("incrementing license usage failed",
			"license_id", j.licenseID,
			"record_id", j.rec.ID,
			"error", err)
	}
}

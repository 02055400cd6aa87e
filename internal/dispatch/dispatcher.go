// Package dispatch runs credit check verifications off the request path.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tenantry-backend/internal/domain"
	"tenantry-backend/internal/logger"
	"tenantry-backend/internal/verifier"
)

var (
	ErrQueueFull  = errors.New("verification queue is full")
	ErrNotRunning = errors.New("verification dispatcher is not running")
)

type Task struct {
	CreditCheckID string
	Request       domain.VerificationRequest
}

// Resolver receives the result of each verification.
type Resolver interface {
	CompleteCreditCheck(ctx context.Context, id string, outcome *domain.VerificationOutcome) error
	FailCreditCheck(ctx context.Context, id string, reason string) error
}

type Dispatcher struct {
	verifier verifier.Verifier
	workers  int
	timeout  time.Duration
	queue    chan Task

	mu        sync.Mutex
	running   bool
	resolver  Resolver
	queued    map[string]struct{}
	inflight  map[string]context.CancelFunc
	cancelled map[string]struct{}
	wg        sync.WaitGroup
}

func New(v verifier.Verifier, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		verifier:  v,
		workers:   workers,
		timeout:   timeout,
		queue:     make(chan Task, queueSize),
		queued:    make(map[string]struct{}),
		inflight:  make(map[string]context.CancelFunc),
		cancelled: make(map[string]struct{}),
	}
}

// Start launches the worker pool. Workers stop when ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context, resolver Resolver) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.resolver = resolver
	d.mu.Unlock()

	logger.Info("Starting verification workers", "workers", d.workers, "verifier", d.verifier.Name())
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.runLoop(ctx, i+1)
	}
}

// Stop closes the queue and waits for in-flight verifications to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
	logger.Info("Verification workers stopped")
}

// Submit enqueues a verification without blocking.
func (d *Dispatcher) Submit(task Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	select {
	case d.queue <- task:
		d.queued[task.CreditCheckID] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

// Cancel aborts a queued or in-flight verification. It reports whether the task
// was running at the time.
func (d *Dispatcher) Cancel(creditCheckID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cancel, ok := d.inflight[creditCheckID]; ok {
		cancel()
		return true
	}
	if _, ok := d.queued[creditCheckID]; ok {
		d.cancelled[creditCheckID] = struct{}{}
	}
	return false
}

func (d *Dispatcher) runLoop(ctx context.Context, workerID int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Verification worker stopped", "worker_id", workerID)
			return
		case task, ok := <-d.queue:
			if !ok {
				return
			}
			d.runWithRecovery(ctx, workerID, task)
		}
	}
}

func (d *Dispatcher) runWithRecovery(ctx context.Context, workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Verification panicked", "worker_id", workerID, "credit_check_id", task.CreditCheckID, "panic", r)
			_ = d.resolver.FailCreditCheck(ctx, task.CreditCheckID, fmt.Sprintf("verifier panic: %v", r))
		}
	}()
	d.process(ctx, workerID, task)
}

func (d *Dispatcher) process(ctx context.Context, workerID int, task Task) {
	log := logger.WithCreditCheck(task.CreditCheckID, task.Request.ReferenceID).With("worker_id", workerID)

	taskCtx, cancel := d.begin(ctx, task.CreditCheckID)
	if taskCtx == nil {
		log.Info("Skipping cancelled verification")
		return
	}
	outcome, err := d.verifier.Verify(taskCtx, task.Request)
	cancelledByUser := errors.Is(taskCtx.Err(), context.Canceled) && ctx.Err() == nil
	d.finish(task.CreditCheckID, cancel)

	switch {
	case errors.Is(err, verifier.ErrAwaitingCallback):
		log.Info("Verification accepted; awaiting bureau callback")
	case err != nil && cancelledByUser:
		log.Info("Verification aborted by cancellation")
	case err != nil:
		log.Warn("Verification failed", "error", err)
		if ferr := d.resolver.FailCreditCheck(ctx, task.CreditCheckID, err.Error()); ferr != nil {
			log.Error("Failed to record verification failure", "error", ferr)
		}
	default:
		if cerr := d.resolver.CompleteCreditCheck(ctx, task.CreditCheckID, outcome); cerr != nil {
			log.Error("Failed to record verification result", "error", cerr)
		}
	}
}

// begin registers the task as in flight, or returns a nil context when it was
// cancelled while queued.
func (d *Dispatcher) begin(ctx context.Context, id string) (context.Context, context.CancelFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.queued, id)
	if _, ok := d.cancelled[id]; ok {
		delete(d.cancelled, id)
		return nil, nil
	}
	var taskCtx context.Context
	var cancel context.CancelFunc
	if d.timeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, d.timeout)
	} else {
		taskCtx, cancel = context.WithCancel(ctx)
	}
	d.inflight[id] = cancel
	return taskCtx, cancel
}

func (d *Dispatcher) finish(id string, cancel context.CancelFunc) {
	d.mu.Lock()
	delete(d.inflight, id)
	d.mu.Unlock()
	cancel()
}

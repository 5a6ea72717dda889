// Copyright (c) 2024 The quotasched Authors.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package quotasched admits outbound calls against a remote API at a rate
// that never exceeds the provider's published quota, draining urgent work
// ahead of passive reads and backing off when the provider reports
// throttling. It limits the rate of admission, not the number of calls in
// flight.
package quotasched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/quotasched/quotasched/clock"
	"github.com/quotasched/quotasched/future"
	"github.com/quotasched/quotasched/log"
	"github.com/quotasched/quotasched/quotas"
)

const (
	statusInitialized int32 = iota
	statusStarted
	statusStopped
)

const shutdownTimeout = time.Minute

type (
	// Scheduler is the rate-limited priority dispatcher wrapping every
	// outbound call. Construct one per credential set with NewScheduler
	// and share it by reference; there is no package-level instance.
	Scheduler interface {
		// Start launches the dispatcher loop.
		Start()
		// Stop shuts the dispatcher down. Tasks still awaiting admission
		// settle with ErrSchedulerStopped; calls already in flight finish
		// and settle their own futures.
		Stop()

		// Submit enqueues op at normal priority and returns a future
		// settled when the task reaches a terminal state.
		Submit(op Operation) future.Future
		// SubmitHigh enqueues op at high priority. Meant for user-visible
		// state-mutating calls, which should preempt passive reads.
		SubmitHigh(op Operation) future.Future
		// SubmitLow enqueues op at low priority. Meant for search and
		// bulk reads that tolerate latency.
		SubmitLow(op Operation) future.Future
	}

	schedulerImpl struct {
		status  *atomic.Int32
		options *Options

		timeSource clock.TimeSource
		limiter    quotas.Limiter
		logger     log.Logger
		metrics    *schedulerMetrics

		mu sync.Mutex
		// guarded by mu
		queue *priorityQueue
		// guarded by mu; provider throttling is a global condition, so the
		// counter is shared by all tasks and reset on any success
		consecutiveThrottles int
		// guarded by mu; armed only while the queue is blocked on quota
		capacityTimer clock.Timer
		// guarded by mu; set once the queue has been drained on shutdown
		drained bool

		notifyCh   chan struct{}
		shutdownCh chan struct{}
		shutdownWG sync.WaitGroup
	}

	schedulerMetrics struct {
		submitted  [numPriorities]tally.Counter
		admitted   [numPriorities]tally.Counter
		completed  tally.Counter
		throttled  tally.Counter
		exhausted  tally.Counter
		validation tally.Counter
		rejected   tally.Counter
		queueWait  tally.Timer
		queueDepth tally.Gauge
	}
)

// NewScheduler creates a scheduler from the given options. Returns an error
// when the configured quota windows are invalid.
func NewScheduler(options *Options) (Scheduler, error) {
	opts := options.withDefaults()

	limiter, err := quotas.NewMultiWindowLimiter(opts.Windows, opts.TimeSource)
	if err != nil {
		return nil, err
	}

	return &schedulerImpl{
		status:     atomic.NewInt32(statusInitialized),
		options:    opts,
		timeSource: opts.TimeSource,
		limiter:    limiter,
		logger:     opts.Logger,
		metrics:    newSchedulerMetrics(opts.MetricsScope),
		queue:      newPriorityQueue(),
		notifyCh:   make(chan struct{}, 1),
		shutdownCh: make(chan struct{}),
	}, nil
}

func newSchedulerMetrics(scope tally.Scope) *schedulerMetrics {
	m := &schedulerMetrics{
		completed:  scope.Counter("task_completed"),
		throttled:  scope.Counter("task_throttled"),
		exhausted:  scope.Counter("task_retries_exhausted"),
		validation: scope.Counter("task_validation_failed"),
		rejected:   scope.Counter("task_rejected"),
		queueWait:  scope.Timer("task_queue_wait"),
		queueDepth: scope.Gauge("queue_depth"),
	}
	for p := PriorityHigh; p < numPriorities; p++ {
		tagged := scope.Tagged(map[string]string{"priority": p.String()})
		m.submitted[p] = tagged.Counter("task_submitted")
		m.admitted[p] = tagged.Counter("task_admitted")
	}
	return m
}

func (s *schedulerImpl) Start() {
	if !s.status.CompareAndSwap(statusInitialized, statusStarted) {
		return
	}

	s.shutdownWG.Add(1)
	go s.dispatcherLoop()

	s.logger.Info("Dispatch scheduler started.")
}

func (s *schedulerImpl) Stop() {
	if !s.status.CompareAndSwap(statusStarted, statusStopped) {
		// a scheduler that was never started still drains its queue
		if !s.status.CompareAndSwap(statusInitialized, statusStopped) {
			return
		}
	}

	close(s.shutdownCh)
	if !awaitWaitGroup(&s.shutdownWG, shutdownTimeout) {
		s.logger.Warn("Dispatch scheduler timed out on shutdown.")
	}

	s.drainPending()
	s.logger.Info("Dispatch scheduler stopped.")
}

func (s *schedulerImpl) Submit(op Operation) future.Future {
	return s.submit(op, PriorityNormal)
}

func (s *schedulerImpl) SubmitHigh(op Operation) future.Future {
	return s.submit(op, PriorityHigh)
}

func (s *schedulerImpl) SubmitLow(op Operation) future.Future {
	return s.submit(op, PriorityLow)
}

func (s *schedulerImpl) submit(op Operation, priority Priority) future.Future {
	task, fut := newSchedTask(op, priority, s.timeSource.Now())
	if op == nil {
		task.settable.Set(nil, &ValidationError{Err: errors.New("operation is nil")})
		return fut
	}

	s.mu.Lock()
	if s.drained {
		s.mu.Unlock()
		s.metrics.rejected.Inc(1)
		task.settable.Set(nil, ErrSchedulerStopped)
		return fut
	}
	s.queue.enqueue(task)
	s.mu.Unlock()

	s.metrics.submitted[priority].Inc(1)
	s.logger.Debug("Task enqueued.",
		zap.String("task-id", task.id),
		zap.Stringer("priority", priority),
	)

	s.notify()
	return fut
}

// notify wakes the dispatcher loop. The channel holds one pending wake-up;
// further notifications coalesce.
func (s *schedulerImpl) notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

func (s *schedulerImpl) dispatcherLoop() {
	defer s.shutdownWG.Done()

	for {
		s.dispatchTasks()

		select {
		case <-s.notifyCh:
		case <-s.shutdownCh:
			return
		}
	}
}

// dispatchTasks admits queued tasks while quota capacity lasts. When the
// queue is non-empty but capacity is exhausted it arms a timer for the
// instant capacity next frees up, so the loop sleeps instead of polling.
func (s *schedulerImpl) dispatchTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capacityTimer != nil {
		s.capacityTimer.Stop()
		s.capacityTimer = nil
	}

	for !s.queue.isEmpty() {
		if !s.limiter.Allow() {
			wait := s.limiter.NextAvailable().Sub(s.timeSource.Now())
			if wait < 0 {
				wait = 0
			}
			s.capacityTimer = s.timeSource.AfterFunc(wait, s.notify)
			break
		}

		task := s.queue.dequeue()
		task.attempts++
		reservation := s.limiter.Record()

		s.metrics.admitted[task.priority].Inc(1)
		s.metrics.queueWait.Record(s.timeSource.Now().Sub(task.enqueuedAt))
		s.logger.Debug("Task admitted.",
			zap.String("task-id", task.id),
			zap.Stringer("priority", task.priority),
			zap.Int("attempt", task.attempts),
		)

		// the operation runs concurrently; only admission is rate-limited
		go s.executeTask(task, reservation)
	}

	s.metrics.queueDepth.Update(float64(s.queue.len()))
}

func (s *schedulerImpl) executeTask(task *schedTask, reservation quotas.Reservation) {
	value, err := task.op(context.Background())
	if err == nil {
		s.handleSuccess(task, value)
		return
	}

	var throttled *ThrottledError
	switch {
	case IsValidation(err):
		// nothing went out on the wire, return the quota slot
		reservation.Cancel()
		s.metrics.validation.Inc(1)
		task.settable.Set(nil, err)
	case errors.As(err, &throttled):
		s.handleThrottle(task, err, throttled)
	default:
		// transport and provider errors other than throttling are terminal
		task.settable.Set(nil, err)
	}
}

func (s *schedulerImpl) handleSuccess(task *schedTask, value interface{}) {
	s.mu.Lock()
	s.consecutiveThrottles = 0
	s.mu.Unlock()

	s.metrics.completed.Inc(1)
	task.settable.Set(value, nil)
}

// handleThrottle is the backoff controller: it computes the retry delay from
// the global consecutive-throttle counter, prefers a larger provider hint,
// and re-queues the task at the front of its tier once the delay elapses.
func (s *schedulerImpl) handleThrottle(task *schedTask, err error, throttled *ThrottledError) {
	s.mu.Lock()
	s.consecutiveThrottles++
	failures := s.consecutiveThrottles
	s.mu.Unlock()

	s.metrics.throttled.Inc(1)

	if task.attempts > s.options.MaxRetries {
		s.metrics.exhausted.Inc(1)
		s.logger.Warn("Task throttling retries exhausted.",
			zap.String("task-id", task.id),
			zap.Int("attempts", task.attempts),
			zap.Error(err),
		)
		task.settable.Set(nil, &RetryExhaustedError{Attempts: task.attempts, LastErr: err})
		return
	}

	delay := s.options.RetryPolicy.ComputeNextDelay(failures)
	if throttled.RetryAfter > delay {
		delay = throttled.RetryAfter
	}

	s.logger.Debug("Task throttled, scheduling retry.",
		zap.String("task-id", task.id),
		zap.Int("attempt", task.attempts),
		zap.Duration("delay", delay),
	)

	s.timeSource.AfterFunc(delay, func() { s.requeue(task) })
}

// requeue re-enters a throttled task at the front of its original tier so it
// retries ahead of newly arriving same-tier work.
func (s *schedulerImpl) requeue(task *schedTask) {
	s.mu.Lock()
	if s.drained {
		s.mu.Unlock()
		task.settable.Set(nil, ErrSchedulerStopped)
		return
	}
	s.queue.enqueueFront(task)
	s.mu.Unlock()

	s.notify()
}

// drainPending settles every task still awaiting admission. Called once on
// shutdown; submissions racing with it settle with ErrSchedulerStopped.
func (s *schedulerImpl) drainPending() {
	s.mu.Lock()
	s.drained = true
	if s.capacityTimer != nil {
		s.capacityTimer.Stop()
		s.capacityTimer = nil
	}
	tasks := s.queue.drain()
	s.mu.Unlock()

	for _, task := range tasks {
		task.settable.Set(nil, ErrSchedulerStopped)
	}
	if len(tasks) > 0 {
		s.logger.Info("Drained tasks still awaiting admission.", zap.Int("count", len(tasks)))
	}
}

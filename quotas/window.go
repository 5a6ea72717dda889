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

package quotas

import (
	"fmt"
	"sync"
	"time"

	"github.com/quotasched/quotasched/clock"
)

type (
	// WindowLimiter tracks calls recorded inside a single trailing window.
	// Expired entries are pruned lazily on query.
	WindowLimiter struct {
		mu         sync.Mutex
		duration   time.Duration
		maxCalls   int
		timeSource clock.TimeSource

		entries []windowEntry
		nextID  uint64
	}

	windowEntry struct {
		id         uint64
		recordedAt time.Time
	}

	windowReservation struct {
		limiter *WindowLimiter
		id      uint64
	}
)

var _ Limiter = (*WindowLimiter)(nil)

// NewWindowLimiter creates a limiter for a single trailing window.
func NewWindowLimiter(cfg WindowConfig, timeSource clock.TimeSource) (*WindowLimiter, error) {
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("window duration must be positive, got %v", cfg.Duration)
	}
	if cfg.MaxCalls <= 0 {
		return nil, fmt.Errorf("window max calls must be positive, got %v", cfg.MaxCalls)
	}
	return &WindowLimiter{
		duration:   cfg.Duration,
		maxCalls:   cfg.MaxCalls,
		timeSource: timeSource,
	}, nil
}

func (l *WindowLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.timeSource.Now())
	return len(l.entries) < l.maxCalls
}

func (l *WindowLimiter) Record() Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeSource.Now()
	l.prune(now)

	l.nextID++
	entry := windowEntry{id: l.nextID, recordedAt: now}
	l.entries = append(l.entries, entry)

	return &windowReservation{limiter: l, id: entry.id}
}

func (l *WindowLimiter) NextAvailable() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeSource.Now()
	l.prune(now)

	if len(l.entries) < l.maxCalls {
		return now
	}
	// capacity frees once enough of the oldest entries age out
	blocking := l.entries[len(l.entries)-l.maxCalls]
	return blocking.recordedAt.Add(l.duration)
}

// prune drops entries that have aged out of the window. Callers must hold mu.
func (l *WindowLimiter) prune(now time.Time) {
	live := 0
	for ; live < len(l.entries); live++ {
		if now.Sub(l.entries[live].recordedAt) < l.duration {
			break
		}
	}
	if live > 0 {
		l.entries = append(l.entries[:0], l.entries[live:]...)
	}
}

// cancel removes the entry with the given id if it is still tracked.
func (l *WindowLimiter) cancel(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// recent reservations live at the tail
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].id == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

func (r *windowReservation) Cancel() {
	r.limiter.cancel(r.id)
}

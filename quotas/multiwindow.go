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
	"errors"
	"time"

	"github.com/quotasched/quotasched/clock"
)

type (
	// MultiWindowLimiter combines several independent windows. A call is
	// admissible only if every window has capacity.
	MultiWindowLimiter struct {
		limiters []*WindowLimiter
	}

	multiReservation struct {
		reservations []Reservation
	}
)

var _ Limiter = (*MultiWindowLimiter)(nil)

// ErrNoWindows is returned when a multi-window limiter is created without
// any window configuration.
var ErrNoWindows = errors.New("at least one quota window is required")

// NewMultiWindowLimiter creates a limiter enforcing every given window.
func NewMultiWindowLimiter(cfgs []WindowConfig, timeSource clock.TimeSource) (*MultiWindowLimiter, error) {
	if len(cfgs) == 0 {
		return nil, ErrNoWindows
	}

	limiters := make([]*WindowLimiter, 0, len(cfgs))
	for _, cfg := range cfgs {
		limiter, err := NewWindowLimiter(cfg, timeSource)
		if err != nil {
			return nil, err
		}
		limiters = append(limiters, limiter)
	}
	return &MultiWindowLimiter{limiters: limiters}, nil
}

func (l *MultiWindowLimiter) Allow() bool {
	for _, limiter := range l.limiters {
		if !limiter.Allow() {
			return false
		}
	}
	return true
}

func (l *MultiWindowLimiter) Record() Reservation {
	reservations := make([]Reservation, 0, len(l.limiters))
	for _, limiter := range l.limiters {
		reservations = append(reservations, limiter.Record())
	}
	return &multiReservation{reservations: reservations}
}

// NextAvailable returns the earliest instant at which every window has
// capacity, which is the latest NextAvailable across the most constrained
// windows. Entries only leave windows through the passage of time, so the
// maximum is exact.
func (l *MultiWindowLimiter) NextAvailable() time.Time {
	var next time.Time
	for _, limiter := range l.limiters {
		if at := limiter.NextAvailable(); at.After(next) {
			next = at
		}
	}
	return next
}

func (r *multiReservation) Cancel() {
	for _, reservation := range r.reservations {
		reservation.Cancel()
	}
}

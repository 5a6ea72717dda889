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

// Package backoff computes retry delays for throttled calls.
package backoff

import (
	"math"
	"time"
)

const (
	defaultBackoffCoefficient = 2.0

	// NoMaximumInterval disables the delay cap.
	NoMaximumInterval = time.Duration(-1)
)

type (
	// RetryPolicy is the interface for computing the delay before the next
	// retry attempt.
	RetryPolicy interface {
		// ComputeNextDelay returns the delay to wait before the retry
		// following the given number of consecutive failures.
		// consecutiveFailures is 1 on first failure.
		ComputeNextDelay(consecutiveFailures int) time.Duration
	}

	// ExponentialRetryPolicy provides the implementation for retry policy
	// using an exponentially increasing delay.
	ExponentialRetryPolicy struct {
		initialInterval    time.Duration
		backoffCoefficient float64
		maximumInterval    time.Duration
	}
)

// NewExponentialRetryPolicy returns an instance of ExponentialRetryPolicy
// using the provided initialInterval.
func NewExponentialRetryPolicy(initialInterval time.Duration) *ExponentialRetryPolicy {
	return &ExponentialRetryPolicy{
		initialInterval:    initialInterval,
		backoffCoefficient: defaultBackoffCoefficient,
		maximumInterval:    NoMaximumInterval,
	}
}

// SetInitialInterval sets the initial interval used by ComputeNextDelay.
func (p *ExponentialRetryPolicy) SetInitialInterval(initialInterval time.Duration) {
	p.initialInterval = initialInterval
}

// SetBackoffCoefficient sets the coefficient used by ComputeNextDelay.
func (p *ExponentialRetryPolicy) SetBackoffCoefficient(coefficient float64) {
	p.backoffCoefficient = coefficient
}

// SetMaximumInterval caps the delay returned by ComputeNextDelay.
func (p *ExponentialRetryPolicy) SetMaximumInterval(maximumInterval time.Duration) {
	p.maximumInterval = maximumInterval
}

// ComputeNextDelay returns the next delay interval. The first failure waits
// the initial interval, each subsequent failure multiplies the delay by the
// backoff coefficient, up to the maximum interval when one is set.
func (p *ExponentialRetryPolicy) ComputeNextDelay(consecutiveFailures int) time.Duration {
	if consecutiveFailures < 1 {
		consecutiveFailures = 1
	}

	nextInterval := float64(p.initialInterval) * math.Pow(p.backoffCoefficient, float64(consecutiveFailures-1))
	if p.maximumInterval != NoMaximumInterval && nextInterval > float64(p.maximumInterval) {
		return p.maximumInterval
	}
	if nextInterval > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(nextInterval)
}

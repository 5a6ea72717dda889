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

package quotasched

import (
	"errors"
	"fmt"
	"time"
)

// ErrSchedulerStopped is returned through a task's future when the scheduler
// is stopped before the task reaches a terminal state, or when a task is
// submitted after Stop.
var ErrSchedulerStopped = errors.New("scheduler has already been stopped")

type (
	// ThrottledError is the signal that the provider rejected a call for
	// exceeding its permitted rate. Operations must return it (or wrap it)
	// for throttled calls so the scheduler can retry with backoff instead
	// of failing the task.
	ThrottledError struct {
		// Err is the underlying provider error, if any.
		Err error
		// RetryAfter is the provider-suggested retry delay. Zero means the
		// provider gave no hint.
		RetryAfter time.Duration
	}

	// ValidationError marks an operation failure that happened before any
	// network interaction. The task fails immediately, consumes no retry
	// budget and no quota.
	ValidationError struct {
		Err error
	}

	// RetryExhaustedError is returned through a task's future once every
	// permitted retry of a throttled call has been used. It wraps the last
	// throttling error.
	RetryExhaustedError struct {
		// Attempts is the total number of admissions, the initial one
		// included.
		Attempts int
		// LastErr is the throttling error from the final attempt.
		LastErr error
	}
)

func (e *ThrottledError) Error() string {
	msg := "provider throttled the call"
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s, retry after %v", msg, e.RetryAfter)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ThrottledError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("call validation failed: %v", e.Err)
	}
	return "call validation failed"
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("throttling retries exhausted after %v attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}

// IsThrottled returns true if err is, or wraps, a ThrottledError.
func IsThrottled(err error) bool {
	var throttled *ThrottledError
	return errors.As(err, &throttled)
}

// IsValidation returns true if err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

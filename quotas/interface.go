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

// Package quotas tracks how many calls have been admitted inside one or more
// trailing time windows.
package quotas

import "time"

type (
	// WindowConfig describes a single trailing quota window.
	WindowConfig struct {
		// Duration is the length of the trailing window.
		Duration time.Duration
		// MaxCalls is the number of calls that may be recorded inside the
		// window at any time.
		MaxCalls int
	}

	// Limiter answers whether there is capacity for another call right now,
	// records admitted calls, and reports when capacity next frees up.
	Limiter interface {
		// Allow returns true if a call can be recorded without exceeding
		// any window's quota.
		Allow() bool
		// Record consumes a slot in every window. It must be called exactly
		// once per call actually sent to the remote service. The returned
		// reservation can be cancelled to return the slot if the call never
		// went out on the wire.
		Record() Reservation
		// NextAvailable returns the earliest instant at which every window
		// will have capacity again. When capacity exists now, it returns
		// the current time.
		NextAvailable() time.Time
	}

	// Reservation represents a recorded call slot that can be rolled back.
	Reservation interface {
		// Cancel returns the slot to every window. Cancelling more than
		// once is a no-op.
		Cancel()
	}
)

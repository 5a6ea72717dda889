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
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quotasched/quotasched/future"
)

// Priority classifies how urgently a task should be admitted relative to
// others. High is drained before Normal, Normal before Low.
type Priority int

const (
	// PriorityHigh is used for user-visible state-mutating calls.
	PriorityHigh Priority = iota
	// PriorityNormal is the default tier.
	PriorityNormal
	// PriorityLow is used for search, bulk and batch reads that tolerate
	// latency.
	PriorityLow

	numPriorities
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// Operation is a previously-prepared asynchronous call against the remote
// service. Throttled calls must return a *ThrottledError (possibly wrapped);
// failures before any network interaction must return a *ValidationError.
type Operation func(ctx context.Context) (interface{}, error)

// schedTask is a scheduled call awaiting admission. A retried task is the
// same value re-entering its tier; attempts persists across re-enqueues.
type schedTask struct {
	id         string
	priority   Priority
	op         Operation
	enqueuedAt time.Time

	// attempts counts admissions, maintained by the dispatcher
	attempts int

	settable future.Settable
}

func newSchedTask(op Operation, priority Priority, enqueuedAt time.Time) (*schedTask, future.Future) {
	fut, settable := future.NewFuture()
	return &schedTask{
		id:         uuid.New().String(),
		priority:   priority,
		op:         op,
		enqueuedAt: enqueuedAt,
		settable:   settable,
	}, fut
}

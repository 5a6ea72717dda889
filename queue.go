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
	"github.com/emirpasic/gods/lists/doublylinkedlist"
)

// priorityQueue holds tasks awaiting admission in one FIFO lane per tier.
// It is not safe for concurrent use; the scheduler guards it with its lock.
type priorityQueue struct {
	lanes [numPriorities]*doublylinkedlist.List
}

func newPriorityQueue() *priorityQueue {
	q := &priorityQueue{}
	for i := range q.lanes {
		q.lanes[i] = doublylinkedlist.New()
	}
	return q
}

// enqueue appends the task to the tail of its tier.
func (q *priorityQueue) enqueue(t *schedTask) {
	q.lanes[t.priority].Add(t)
}

// enqueueFront puts the task at the head of its tier, ahead of newly
// arriving same-tier work. Used for throttled retries.
func (q *priorityQueue) enqueueFront(t *schedTask) {
	q.lanes[t.priority].Prepend(t)
}

// dequeue removes and returns the head of the first non-empty tier,
// checking High, then Normal, then Low. Returns nil when all are empty.
func (q *priorityQueue) dequeue() *schedTask {
	for _, lane := range q.lanes {
		if value, ok := lane.Get(0); ok {
			lane.Remove(0)
			return value.(*schedTask)
		}
	}
	return nil
}

func (q *priorityQueue) isEmpty() bool {
	for _, lane := range q.lanes {
		if !lane.Empty() {
			return false
		}
	}
	return true
}

func (q *priorityQueue) len() int {
	size := 0
	for _, lane := range q.lanes {
		size += lane.Size()
	}
	return size
}

// drain removes and returns every queued task in priority-then-FIFO order.
func (q *priorityQueue) drain() []*schedTask {
	tasks := make([]*schedTask, 0, q.len())
	for t := q.dequeue(); t != nil; t = q.dequeue() {
		tasks = append(tasks, t)
	}
	return tasks
}

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

// Package future provides a write-once container for a value that becomes
// available at some later point.
package future

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/atomic"
)

type (
	// Future represents a value that will be available at some point in the
	// future. It can only be settled once.
	Future interface {
		// Get blocks until the future is settled or the context expires.
		// If valuePtr is a non-nil pointer, the settled value is assigned
		// through it.
		Get(ctx context.Context, valuePtr interface{}) error
		// IsReady returns true if the future has been settled.
		IsReady() bool
	}

	// Settable is the producer side of a Future.
	Settable interface {
		// Set settles the future with the given value and error.
		// It panics if called more than once.
		Set(value interface{}, err error)
	}

	futureImpl struct {
		value   interface{}
		err     error
		readyCh chan struct{}
		settled atomic.Bool
	}
)

// NewFuture creates a new Future and its associated Settable.
func NewFuture() (Future, Settable) {
	f := &futureImpl{
		readyCh: make(chan struct{}),
	}
	return f, f
}

func (f *futureImpl) Get(ctx context.Context, valuePtr interface{}) error {
	select {
	case <-f.readyCh:
		return f.populate(valuePtr)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *futureImpl) IsReady() bool {
	select {
	case <-f.readyCh:
		return true
	default:
		return false
	}
}

func (f *futureImpl) Set(value interface{}, err error) {
	if !f.settled.CompareAndSwap(false, true) {
		panic("future has already been settled")
	}
	f.value = value
	f.err = err
	close(f.readyCh)
}

func (f *futureImpl) populate(valuePtr interface{}) error {
	if f.err != nil {
		return f.err
	}
	if f.value == nil || valuePtr == nil {
		return nil
	}

	rv := reflect.ValueOf(valuePtr)
	if rv.Kind() != reflect.Ptr {
		return fmt.Errorf("valuePtr must be a pointer, got %T", valuePtr)
	}

	value := reflect.ValueOf(f.value)
	elem := rv.Elem()
	if !value.Type().AssignableTo(elem.Type()) {
		return fmt.Errorf("value of type %T is not assignable to %s", f.value, elem.Type())
	}

	elem.Set(value)
	return nil
}

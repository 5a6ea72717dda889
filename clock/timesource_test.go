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

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRealTimeSourceNow(t *testing.T) {
	ts := NewRealTimeSource()

	before := time.Now()
	now := ts.Now()
	after := time.Now()

	require.False(t, now.Before(before))
	require.False(t, now.After(after))
}

func TestMockedTimeSourceAdvance(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ts := NewMockedTimeSourceAt(start)

	require.Equal(t, start, ts.Now())

	ts.Advance(time.Minute)
	require.Equal(t, start.Add(time.Minute), ts.Now())
	require.Equal(t, time.Minute, ts.Since(start))
}

func TestMockedTimeSourceAfterFunc(t *testing.T) {
	ts := NewMockedTimeSource()

	fired := make(chan struct{})
	ts.AfterFunc(time.Second, func() { close(fired) })

	ts.BlockUntil(1)
	select {
	case <-fired:
		t.Fatal("timer fired before time advanced")
	default:
	}

	ts.Advance(time.Second)
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire after time advanced")
	}
}

func TestMockedTimeSourceAfterFuncStopped(t *testing.T) {
	ts := NewMockedTimeSource()

	fired := make(chan struct{})
	timer := ts.AfterFunc(time.Second, func() { close(fired) })

	require.True(t, timer.Stop())
	ts.Advance(2 * time.Second)

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(50 * time.Millisecond):
	}
}

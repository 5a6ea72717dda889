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

// Package clock provides an injectable time abstraction so components that
// arm timers or measure durations can be tested deterministically.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type (
	// TimeSource provides an interface that packages can use instead of the
	// [time] package directly, so they can be mocked in unit tests.
	TimeSource interface {
		After(d time.Duration) <-chan time.Time
		AfterFunc(d time.Duration, f func()) Timer
		Now() time.Time
		Since(t time.Time) time.Duration
		Sleep(d time.Duration)
	}

	// Timer provides an interface for a timer created by a TimeSource.
	Timer interface {
		// Reset changes the expiration time of the timer.
		Reset(d time.Duration) bool
		// Stop prevents the timer from firing.
		Stop() bool
	}

	// MockedTimeSource provides an interface for a clock which can be manually
	// advanced through time.
	MockedTimeSource interface {
		TimeSource

		// Advance advances the fake clock to a new point in time, ensuring
		// any existing timers fire within the duration accordingly.
		Advance(d time.Duration)
		// BlockUntil will block until the fake clock has the given number
		// of timers waiting on it.
		BlockUntil(timers int)
	}

	timeSource struct {
		clock clockwork.Clock
	}

	mockedTimeSource struct {
		timeSource

		fake clockwork.FakeClock
	}
)

// NewRealTimeSource returns a time source that servers real wall-clock time.
func NewRealTimeSource() TimeSource {
	return &timeSource{clock: clockwork.NewRealClock()}
}

// NewMockedTimeSource returns a time source that rejects real wall-clock time
// and only advances on demand, for unit tests.
func NewMockedTimeSource() MockedTimeSource {
	fake := clockwork.NewFakeClock()
	return &mockedTimeSource{
		timeSource: timeSource{clock: fake},
		fake:       fake,
	}
}

// NewMockedTimeSourceAt returns a mocked time source initialized at t.
func NewMockedTimeSourceAt(t time.Time) MockedTimeSource {
	fake := clockwork.NewFakeClockAt(t)
	return &mockedTimeSource{
		timeSource: timeSource{clock: fake},
		fake:       fake,
	}
}

func (ts *timeSource) After(d time.Duration) <-chan time.Time {
	return ts.clock.After(d)
}

func (ts *timeSource) AfterFunc(d time.Duration, f func()) Timer {
	return ts.clock.AfterFunc(d, f)
}

func (ts *timeSource) Now() time.Time {
	return ts.clock.Now()
}

func (ts *timeSource) Since(t time.Time) time.Duration {
	return ts.clock.Since(t)
}

func (ts *timeSource) Sleep(d time.Duration) {
	ts.clock.Sleep(d)
}

func (ts *mockedTimeSource) Advance(d time.Duration) {
	ts.fake.Advance(d)
}

func (ts *mockedTimeSource) BlockUntil(timers int) {
	ts.fake.BlockUntil(timers)
}

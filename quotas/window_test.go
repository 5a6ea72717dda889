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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/quotasched/quotasched/clock"
)

type windowLimiterSuite struct {
	*require.Assertions
	suite.Suite

	timeSource clock.MockedTimeSource
}

func TestWindowLimiterSuite(t *testing.T) {
	s := new(windowLimiterSuite)
	suite.Run(t, s)
}

func (s *windowLimiterSuite) SetupTest() {
	s.Assertions = require.New(s.T())
	s.timeSource = clock.NewMockedTimeSource()
}

func (s *windowLimiterSuite) newLimiter(duration time.Duration, maxCalls int) *WindowLimiter {
	limiter, err := NewWindowLimiter(WindowConfig{Duration: duration, MaxCalls: maxCalls}, s.timeSource)
	s.NoError(err)
	return limiter
}

func (s *windowLimiterSuite) TestInvalidConfig() {
	_, err := NewWindowLimiter(WindowConfig{Duration: 0, MaxCalls: 1}, s.timeSource)
	s.Error(err)

	_, err = NewWindowLimiter(WindowConfig{Duration: time.Second, MaxCalls: 0}, s.timeSource)
	s.Error(err)
}

func (s *windowLimiterSuite) TestCapacityBoundary() {
	limiter := s.newLimiter(time.Second, 2)

	s.True(limiter.Allow())
	limiter.Record()
	s.True(limiter.Allow())
	limiter.Record()

	// exactly maxCalls recorded
	s.False(limiter.Allow())
}

func (s *windowLimiterSuite) TestCapacityReturnsByTimeAlone() {
	limiter := s.newLimiter(time.Second, 1)

	limiter.Record()
	s.False(limiter.Allow())

	s.timeSource.Advance(999 * time.Millisecond)
	s.False(limiter.Allow())

	// the entry ages out at exactly one window duration
	s.timeSource.Advance(time.Millisecond)
	s.True(limiter.Allow())
}

func (s *windowLimiterSuite) TestNextAvailable() {
	limiter := s.newLimiter(time.Second, 2)
	start := s.timeSource.Now()

	// capacity exists now
	s.Equal(start, limiter.NextAvailable())

	limiter.Record()
	s.timeSource.Advance(100 * time.Millisecond)
	limiter.Record()

	// both slots taken, frees when the oldest entry expires
	s.Equal(start.Add(time.Second), limiter.NextAvailable())

	s.timeSource.Advance(900 * time.Millisecond)
	s.True(limiter.Allow())
}

func (s *windowLimiterSuite) TestSlidingWindowInvariant() {
	limiter := s.newLimiter(time.Second, 3)

	// stagger records and verify the count inside the trailing second
	// never exceeds the quota
	for i := 0; i < 10; i++ {
		if limiter.Allow() {
			limiter.Record()
		}
		live := len(limiter.entries)
		s.LessOrEqual(live, 3)
		s.timeSource.Advance(250 * time.Millisecond)
	}
}

func (s *windowLimiterSuite) TestReservationCancel() {
	limiter := s.newLimiter(time.Second, 1)

	reservation := limiter.Record()
	s.False(limiter.Allow())

	reservation.Cancel()
	s.True(limiter.Allow())

	// cancelling twice is harmless
	reservation.Cancel()
	s.True(limiter.Allow())
}

func (s *windowLimiterSuite) TestReservationCancelAfterExpiry() {
	limiter := s.newLimiter(time.Second, 1)

	reservation := limiter.Record()
	s.timeSource.Advance(2 * time.Second)

	// entry already pruned, cancel is a no-op
	reservation.Cancel()
	s.True(limiter.Allow())
}

type multiWindowLimiterSuite struct {
	*require.Assertions
	suite.Suite

	timeSource clock.MockedTimeSource
}

func TestMultiWindowLimiterSuite(t *testing.T) {
	s := new(multiWindowLimiterSuite)
	suite.Run(t, s)
}

func (s *multiWindowLimiterSuite) SetupTest() {
	s.Assertions = require.New(s.T())
	s.timeSource = clock.NewMockedTimeSource()
}

func (s *multiWindowLimiterSuite) TestRequiresWindows() {
	_, err := NewMultiWindowLimiter(nil, s.timeSource)
	s.ErrorIs(err, ErrNoWindows)
}

func (s *multiWindowLimiterSuite) TestAllWindowsMustAllow() {
	limiter, err := NewMultiWindowLimiter([]WindowConfig{
		{Duration: time.Second, MaxCalls: 2},
		{Duration: 10 * time.Second, MaxCalls: 3},
	}, s.timeSource)
	s.NoError(err)

	limiter.Record()
	limiter.Record()

	// short window exhausted
	s.False(limiter.Allow())

	s.timeSource.Advance(time.Second)
	s.True(limiter.Allow())
	limiter.Record()

	// long window now exhausted even though the short one has capacity
	s.False(limiter.Allow())
}

func (s *multiWindowLimiterSuite) TestNextAvailableMostConstrained() {
	limiter, err := NewMultiWindowLimiter([]WindowConfig{
		{Duration: time.Second, MaxCalls: 1},
		{Duration: time.Minute, MaxCalls: 1},
	}, s.timeSource)
	s.NoError(err)

	start := s.timeSource.Now()
	limiter.Record()

	// both windows blocked, the long one rules
	s.Equal(start.Add(time.Minute), limiter.NextAvailable())

	s.timeSource.Advance(time.Minute)
	s.True(limiter.Allow())
}

func (s *multiWindowLimiterSuite) TestCancelRollsBackEveryWindow() {
	limiter, err := NewMultiWindowLimiter([]WindowConfig{
		{Duration: time.Second, MaxCalls: 1},
		{Duration: time.Minute, MaxCalls: 1},
	}, s.timeSource)
	s.NoError(err)

	reservation := limiter.Record()
	s.False(limiter.Allow())

	reservation.Cancel()
	s.True(limiter.Allow())
}

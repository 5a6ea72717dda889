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

package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type (
	futureSuite struct {
		suite.Suite
		*require.Assertions
	}

	testType struct {
		intField    int
		stringField string
	}
)

func TestFutureSuite(t *testing.T) {
	s := new(futureSuite)
	suite.Run(t, s)
}

func (s *futureSuite) SetupTest() {
	s.Assertions = require.New(s.T())
}

func (s *futureSuite) TestFutureSetGet() {
	var intVal int
	var listVal []string
	var testTypeVal testType

	testCases := []struct {
		futureValue interface{}
		futureErr   error
		valuePtr    interface{}
		expectErr   bool
	}{
		{
			futureValue: testType{intField: 101, stringField: "a"},
			valuePtr:    &testTypeVal,
		},
		{
			futureValue: int(101),
			valuePtr:    &intVal,
		},
		{
			futureValue: []string{"a", "b", "c"},
			valuePtr:    &listVal,
		},
		{
			futureValue: nil,
			valuePtr:    &listVal,
		},
		{
			futureValue: []string{"a"},
			valuePtr:    &intVal,
			expectErr:   true,
		},
		{
			futureValue: int(101),
			valuePtr:    101,
			expectErr:   true,
		},
		{
			futureValue: nil,
			futureErr:   errors.New("some random error"),
			valuePtr:    &intVal,
			expectErr:   true,
		},
		{
			futureValue: time.Now(),
			valuePtr:    nil,
		},
	}

	for _, tc := range testCases {
		future, settable := NewFuture()
		settable.Set(tc.futureValue, tc.futureErr)
		s.True(future.IsReady())

		err := future.Get(context.Background(), tc.valuePtr)
		if tc.expectErr {
			if tc.futureErr != nil {
				s.Equal(tc.futureErr, err)
			} else {
				s.Error(err)
			}
			continue
		}

		s.NoError(err)
		if tc.futureValue != nil && tc.valuePtr != nil {
			switch expected := tc.futureValue.(type) {
			case testType:
				s.Equal(expected, testTypeVal)
			case int:
				s.Equal(expected, intVal)
			case []string:
				s.Equal(expected, listVal)
			}
		}
	}
}

func (s *futureSuite) TestFutureGetBlocksUntilSet() {
	future, settable := NewFuture()
	s.False(future.IsReady())

	go func() {
		time.Sleep(10 * time.Millisecond)
		settable.Set(42, nil)
	}()

	var val int
	s.NoError(future.Get(context.Background(), &val))
	s.Equal(42, val)
	s.True(future.IsReady())
}

func (s *futureSuite) TestFutureGetContextExpired() {
	future, _ := NewFuture()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := future.Get(ctx, nil)
	s.Equal(context.DeadlineExceeded, err)
	s.False(future.IsReady())
}

func (s *futureSuite) TestFutureDoubleSetPanics() {
	_, settable := NewFuture()
	settable.Set(1, nil)
	s.Panics(func() { settable.Set(2, nil) })
}

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
	"time"

	"github.com/uber-go/tally"

	"github.com/quotasched/quotasched/backoff"
	"github.com/quotasched/quotasched/clock"
	"github.com/quotasched/quotasched/log"
	"github.com/quotasched/quotasched/quotas"
)

const (
	// DefaultWindowDuration is the quota window applied when none is
	// configured.
	DefaultWindowDuration = time.Minute
	// DefaultMaxCallsPerWindow is the per-window quota applied when none
	// is configured.
	DefaultMaxCallsPerWindow = 60
	// DefaultBaseBackoff is the initial retry delay after a throttled call.
	DefaultBaseBackoff = 500 * time.Millisecond
	// DefaultMaxBackoff caps the computed retry delay.
	DefaultMaxBackoff = 30 * time.Second
	// DefaultMaxRetries bounds re-admissions of a throttled task.
	DefaultMaxRetries = 3
)

// Options configures a Scheduler. The zero value of every field has a usable
// default.
type Options struct {
	// Windows are the independent trailing quota windows. A call is
	// admitted only when every window has capacity.
	Windows []quotas.WindowConfig

	// RetryPolicy computes the delay before re-admitting a throttled task.
	// The provider's retry-after hint overrides the computed delay when it
	// is larger.
	RetryPolicy backoff.RetryPolicy

	// MaxRetries bounds how many times a throttled task is re-admitted
	// after its initial attempt.
	MaxRetries int

	// TimeSource drives window expiry and backoff timers. Tests inject a
	// mocked source; production uses the real clock.
	TimeSource clock.TimeSource

	Logger       log.Logger
	MetricsScope tally.Scope
}

// withDefaults returns a copy of the options with unset fields filled in.
func (o *Options) withDefaults() *Options {
	opts := &Options{}
	if o != nil {
		*opts = *o
	}
	if len(opts.Windows) == 0 {
		opts.Windows = []quotas.WindowConfig{{
			Duration: DefaultWindowDuration,
			MaxCalls: DefaultMaxCallsPerWindow,
		}}
	}
	if opts.RetryPolicy == nil {
		policy := backoff.NewExponentialRetryPolicy(DefaultBaseBackoff)
		policy.SetMaximumInterval(DefaultMaxBackoff)
		opts.RetryPolicy = policy
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.TimeSource == nil {
		opts.TimeSource = clock.NewRealTimeSource()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.MetricsScope == nil {
		opts.MetricsScope = tally.NoopScope
	}
	return opts
}

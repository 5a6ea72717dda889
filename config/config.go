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

// Package config loads scheduler settings from yaml files.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"

	"github.com/quotasched/quotasched"
	"github.com/quotasched/quotasched/backoff"
	"github.com/quotasched/quotasched/quotas"
)

type (
	// Config holds the file-configurable parts of a scheduler. Everything
	// runtime-only, loggers and clocks included, is wired in code.
	Config struct {
		// Windows are the trailing quota windows, all of which must have
		// capacity for a call to be admitted.
		Windows []Window `yaml:"windows" validate:"nonzero"`
		// Backoff controls retry behavior for throttled calls.
		Backoff Backoff `yaml:"backoff"`
	}

	// Window is one trailing quota window.
	Window struct {
		Duration Duration `yaml:"duration" validate:"nonzero"`
		MaxCalls int      `yaml:"maxCalls" validate:"min=1"`
	}

	// Backoff holds the retry policy knobs. Zero values fall back to the
	// scheduler defaults.
	Backoff struct {
		InitialInterval Duration `yaml:"initialInterval"`
		MaximumInterval Duration `yaml:"maximumInterval"`
		MaxRetries      int      `yaml:"maxRetries" validate:"min=0"`
	}

	// Duration parses yaml scalars like "30s" or "1m" via time.ParseDuration.
	Duration time.Duration
)

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads, parses and validates the config at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %v: %w", path, err)
	}

	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %v: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %v: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the struct tags plus the constraints the tags cannot
// express, and reports every violation at once.
func (c *Config) Validate() error {
	err := validator.Validate(c)
	for i, w := range c.Windows {
		if w.Duration < 0 {
			err = multierr.Append(err, fmt.Errorf("windows[%d]: duration must be positive", i))
		}
	}
	if c.Backoff.InitialInterval < 0 {
		err = multierr.Append(err, fmt.Errorf("backoff: initialInterval must not be negative"))
	}
	if c.Backoff.MaximumInterval < 0 {
		err = multierr.Append(err, fmt.Errorf("backoff: maximumInterval must not be negative"))
	}
	if c.Backoff.MaximumInterval > 0 && c.Backoff.InitialInterval > c.Backoff.MaximumInterval {
		err = multierr.Append(err, fmt.Errorf("backoff: initialInterval exceeds maximumInterval"))
	}
	return err
}

// SchedulerOptions converts the file config into scheduler options. Unset
// backoff fields keep their zero value so the scheduler applies its defaults.
func (c *Config) SchedulerOptions() *quotasched.Options {
	opts := &quotasched.Options{
		MaxRetries: c.Backoff.MaxRetries,
	}
	for _, w := range c.Windows {
		opts.Windows = append(opts.Windows, quotas.WindowConfig{
			Duration: time.Duration(w.Duration),
			MaxCalls: w.MaxCalls,
		})
	}
	if c.Backoff.InitialInterval > 0 {
		policy := backoff.NewExponentialRetryPolicy(time.Duration(c.Backoff.InitialInterval))
		if c.Backoff.MaximumInterval > 0 {
			policy.SetMaximumInterval(time.Duration(c.Backoff.MaximumInterval))
		}
		opts.RetryPolicy = policy
	}
	return opts
}

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

// quotasched-sim runs a scheduler against a fake throttling provider and
// prints the admission metrics. It exists to observe backoff and priority
// behavior against a provider that enforces its own rate limit, without
// needing a real remote service.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/quotasched/quotasched"
	"github.com/quotasched/quotasched/config"
	"github.com/quotasched/quotasched/future"
	"github.com/quotasched/quotasched/log"
	"github.com/quotasched/quotasched/quotas"
)

func main() {
	app := buildCLI()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildCLI() *cli.App {
	app := cli.NewApp()
	app.Name = "quotasched-sim"
	app.Usage = "drive a scheduler against a fake throttling provider"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "scheduler yaml config; defaults to 10 calls/s when unset",
		},
		cli.IntFlag{
			Name:  "tasks, n",
			Value: 100,
			Usage: "tasks to submit per priority tier",
		},
		cli.Float64Flag{
			Name:  "provider-rps",
			Value: 8,
			Usage: "rate the fake provider accepts before throttling",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: 2 * time.Minute,
			Usage: "give up waiting for task completion after this long",
		},
	}
	app.Action = runSimulation
	return app
}

func runSimulation(c *cli.Context) error {
	opts, err := schedulerOptions(c.String("config"))
	if err != nil {
		return err
	}

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer zapLogger.Sync()

	scope := tally.NewTestScope("quotasched", nil)
	opts.Logger = log.NewLogger(zapLogger)
	opts.MetricsScope = scope

	scheduler, err := quotasched.NewScheduler(opts)
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	provider := newFakeProvider(c.Float64("provider-rps"))

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	tasksPerTier := c.Int("tasks")
	var g errgroup.Group
	submit := func(name string, fn func(op quotasched.Operation) future.Future) {
		g.Go(func() error {
			return awaitAll(ctx, name, tasksPerTier, provider, fn)
		})
	}
	submit("high", scheduler.SubmitHigh)
	submit("normal", scheduler.Submit)
	submit("low", scheduler.SubmitLow)

	runErr := g.Wait()
	printSnapshot(scope)
	return runErr
}

func schedulerOptions(path string) (*quotasched.Options, error) {
	if path == "" {
		return &quotasched.Options{
			Windows: []quotas.WindowConfig{{Duration: time.Second, MaxCalls: 10}},
		}, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg.SchedulerOptions(), nil
}

func awaitAll(
	ctx context.Context,
	tier string,
	count int,
	provider *fakeProvider,
	submit func(op quotasched.Operation) future.Future,
) error {
	futures := make([]future.Future, 0, count)
	for i := 0; i < count; i++ {
		futures = append(futures, submit(provider.call))
	}
	for i, fut := range futures {
		if err := fut.Get(ctx, nil); err != nil {
			return fmt.Errorf("%s task %d failed: %w", tier, i, err)
		}
	}
	return nil
}

// fakeProvider accepts calls up to its own rate and throttles the rest, the
// way a remote API enforcing a server-side limit would.
type fakeProvider struct {
	limiter *rate.Limiter
}

func newFakeProvider(rps float64) *fakeProvider {
	return &fakeProvider{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (p *fakeProvider) call(ctx context.Context) (interface{}, error) {
	reservation := p.limiter.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return nil, &quotasched.ThrottledError{RetryAfter: delay}
	}
	return "ok", nil
}

func printSnapshot(scope tally.TestScope) {
	snapshot := scope.Snapshot()

	keys := make([]string, 0, len(snapshot.Counters()))
	for key := range snapshot.Counters() {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Println("--- metrics ---")
	for _, key := range keys {
		counter := snapshot.Counters()[key]
		fmt.Printf("%v=%v\n", key, counter.Value())
	}
}

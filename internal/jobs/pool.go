// Package jobs runs batches of external commands with bounded concurrency.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
)

// Job is one external command invocation.
type Job struct {
	// Name identifies the job in logs and errors. Defaults to the command line.
	Name string
	Cmd  string
	Args []string
	Dir  string

	// Outputs are the files the job produces. When all of them already
	// exist the job is skipped.
	Outputs []string
}

func (j Job) String() string {
	if j.Name != "" {
		return j.Name
	}
	return strings.Join(append([]string{j.Cmd}, j.Args...), " ")
}

// Runner executes a single command.
type Runner interface {
	Run(ctx context.Context, j Job) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, j Job) error

func (f RunnerFunc) Run(ctx context.Context, j Job) error { return f(ctx, j) }

// ExecRunner runs jobs as child processes.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, j Job) error {
	cmd := exec.CommandContext(ctx, j.Cmd, j.Args...)
	cmd.Dir = j.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// Stats summarizes a batch.
type Stats struct {
	Ran     int64
	Skipped int64
	Retried int64
}

// Pool runs jobs on a fixed number of workers.
type Pool struct {
	Workers int
	Runner  Runner // defaults to ExecRunner{}

	// Retries is the number of additional attempts for a failing job.
	Retries int
	// RetryInterval is the first backoff delay. Defaults to 500ms.
	RetryInterval time.Duration

	// Progress, when set, is called after each job with the number of
	// finished jobs and the batch size. It may be called concurrently.
	Progress func(done, total int)
	Logger   *log.Logger
}

// Run executes every job and waits for them to finish. After the first
// failure no new jobs are started and the failure is returned.
func (p *Pool) Run(ctx context.Context, batch []Job) (Stats, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(batch) {
		workers = len(batch)
	}
	runner := p.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ran, skipped, retried, done atomic.Int64
	jobs := make(chan Job, workers*2)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if outputsExist(j.Outputs) {
					p.logf("skipping %s: outputs exist", j)
					skipped.Add(1)
				} else {
					attempts, err := p.runWithRetry(ctx, runner, j)
					if attempts > 1 {
						retried.Add(int64(attempts - 1))
					}
					if err != nil {
						select {
						case errCh <- fmt.Errorf("%s: %w", j, err):
						default:
						}
						cancel()
						continue
					}
					ran.Add(1)
				}
				n := done.Add(1)
				if p.Progress != nil {
					p.Progress(int(n), len(batch))
				}
			}
		}()
	}

feed:
	for _, j := range batch {
		select {
		case jobs <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	stats := Stats{Ran: ran.Load(), Skipped: skipped.Load(), Retried: retried.Load()}
	select {
	case err := <-errCh:
		return stats, err
	default:
	}
	// The parent context may have been cancelled.
	if err := ctx.Err(); err != nil && int(done.Load()) < len(batch) {
		return stats, err
	}
	return stats, nil
}

func (p *Pool) runWithRetry(ctx context.Context, runner Runner, j Job) (int, error) {
	interval := p.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	attempts := 0
	op := func() error {
		attempts++
		p.logf("running %s", j)
		err := runner.Run(ctx, j)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err != nil && attempts <= p.Retries {
			p.logf("%s failed (attempt %d): %v", j, attempts, err)
		}
		return err
	}
	// WithMaxRetries treats 0 as unlimited, so no retries needs StopBackOff.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if p.Retries > 0 {
		b = backoff.WithMaxRetries(&backoff.ExponentialBackOff{
			InitialInterval:     interval,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         30 * time.Second,
			MaxElapsedTime:      15 * time.Minute,
			Clock:               backoff.SystemClock,
		}, uint64(p.Retries))
	}
	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	return attempts, err
}

func (p *Pool) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// outputsExist reports whether every path exists. An empty list never does.
func outputsExist(paths []string) bool {
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// ErrCommandNotFound is returned by LookPath when a command is missing.
var ErrCommandNotFound = errors.New("command not found")

// LookPath checks that every command is on PATH.
func LookPath(cmds ...string) error {
	var missing []string
	for _, c := range cmds {
		if _, err := exec.LookPath(c); err != nil {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, strings.Join(missing, ", "))
	}
	return nil
}

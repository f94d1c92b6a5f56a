package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/snip/internal/ports"
	"github.com/forPelevin/snip/internal/types"
)

var (
	ErrJobActive    = errors.New("an export is already running")
	ErrInvalidMerge = fmt.Errorf("audio merge count must be between %d and %d", MinMerge, MaxMerge)
	ErrCanceled     = errors.New("export canceled")
)

type Request struct {
	Source     string
	Range      types.TrimRange
	AudioMerge int
	Output     string

	// TotalMs is the media length the job is expected to produce.
	TotalMs int64
}

func (r Request) Validate() error {
	if r.Source == "" {
		return errors.New("source is empty")
	}
	if r.Output == "" {
		return errors.New("output is empty")
	}
	if r.AudioMerge < MinMerge || r.AudioMerge > MaxMerge {
		return ErrInvalidMerge
	}
	return nil
}

type Result struct {
	ExitCode   int
	Err        error
	Canceled   bool
	Last       Progress
	OutputSize int64
	Stderr     string
	Elapsed    time.Duration
}

func (r Result) OK() bool { return r.Err == nil }

type Job struct {
	ID      string
	Request Request
	Args    []string
	Started time.Time

	updates chan Progress
	cancel  context.CancelFunc
	done    chan struct{}
	result  Result
}

// Updates delivers the latest progress. Intermediate values may be dropped
// when the reader is slower than the transcoder. The channel is closed once
// the job has finished and Result is available.
func (j *Job) Updates() <-chan Progress { return j.updates }

func (j *Job) Done() <-chan struct{} { return j.done }

// Result is valid once Done is closed.
func (j *Job) Result() Result {
	<-j.done
	return j.result
}

// Cancel terminates the transcoder process.
func (j *Job) Cancel() { j.cancel() }

func (j *Job) Wait() Result { return j.Result() }

func (j *Job) publish(p Progress) {
	select {
	case j.updates <- p:
		return
	default:
	}
	// Mailbox of one: replace the stale value.
	select {
	case <-j.updates:
	default:
	}
	select {
	case j.updates <- p:
	default:
	}
}

type Deps struct {
	Transcoder ports.Transcoder
	Logf       func(format string, args ...any)
}

// Coordinator runs at most one export job at a time.
type Coordinator struct {
	d Deps

	mu     sync.Mutex
	active *Job
}

func New(d Deps) *Coordinator {
	if d.Logf == nil {
		d.Logf = func(string, ...any) {}
	}
	return &Coordinator{d: d}
}

// Active returns the running job, or nil.
func (c *Coordinator) Active() *Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start validates req, removes an existing output file, spawns the
// transcoder and monitors it in the background. Spawn failures are
// returned here; failures after spawn are reported through Job.Result.
func (c *Coordinator) Start(ctx context.Context, req Request) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return nil, ErrJobActive
	}

	if err := removeExisting(req.Output); err != nil {
		return nil, err
	}

	args := BuildArgs(req.Source, req.Range, req.AudioMerge, req.Output)
	jctx, cancel := context.WithCancel(ctx)
	proc, err := c.d.Transcoder.Start(jctx, args)
	if err != nil {
		cancel()
		return nil, err
	}

	j := &Job{
		ID:      uuid.NewString(),
		Request: req,
		Args:    args,
		Started: time.Now(),
		updates: make(chan Progress, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.active = j
	c.d.Logf("export %s started: %s", j.ID, strings.Join(args, " "))

	go c.run(jctx, j, proc)
	return j, nil
}

// Shutdown cancels the active job, if any, and waits for it to exit.
func (c *Coordinator) Shutdown() {
	j := c.Active()
	if j == nil {
		return
	}
	j.Cancel()
	<-j.Done()
}

func (c *Coordinator) run(ctx context.Context, j *Job, proc ports.Process) {
	mon := NewMonitor(j.Request.TotalMs, j.publish)
	stderr := proc.Stderr()
	if err := mon.Run(stderr); err != nil {
		c.d.Logf("export %s: progress scan: %v", j.ID, err)
		_, _ = io.Copy(io.Discard, stderr)
	}
	code, waitErr := proc.Wait()

	res := Result{
		ExitCode: code,
		Last:     mon.Last(),
		Stderr:   mon.Tail(),
		Elapsed:  time.Since(j.Started),
	}
	switch {
	case ctx.Err() != nil:
		res.Canceled = true
		res.Err = ErrCanceled
	case waitErr != nil:
		res.Err = fmt.Errorf("ffmpeg wait: %w\n%s", waitErr, res.Stderr)
	case code != 0:
		res.Err = fmt.Errorf("ffmpeg exited with code %d\n%s", code, res.Stderr)
	default:
		res.Last.Fraction = 1
		if fi, err := os.Stat(j.Request.Output); err == nil {
			res.OutputSize = fi.Size()
		}
	}
	j.cancel()

	if res.Err != nil {
		c.d.Logf("export %s failed: %v", j.ID, res.Err)
	} else {
		c.d.Logf("export %s finished in %s (%d bytes)", j.ID, res.Elapsed, res.OutputSize)
	}

	c.mu.Lock()
	if c.active == j {
		c.active = nil
	}
	c.mu.Unlock()

	j.result = res
	close(j.updates)
	close(j.done)
}

func removeExisting(path string) error {
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("output %s is a directory", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove existing output: %w", err)
	}
	return nil
}

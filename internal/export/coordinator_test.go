package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forPelevin/snip/internal/ports"
	"github.com/forPelevin/snip/internal/types"
)

type fakeTranscoder struct {
	mu       sync.Mutex
	starts   [][]string
	startErr error
	// script feeds stderr and decides the exit code.
	script func(ctx context.Context, args []string, w *io.PipeWriter) int
}

func (f *fakeTranscoder) Start(ctx context.Context, args []string) (ports.Process, error) {
	f.mu.Lock()
	f.starts = append(f.starts, args)
	f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	pr, pw := io.Pipe()
	p := &fakeProcess{stderr: pr, exited: make(chan struct{})}
	go func() {
		p.code = f.script(ctx, args, pw)
		_ = pw.Close()
		close(p.exited)
	}()
	return p, nil
}

func (f *fakeTranscoder) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

type fakeProcess struct {
	stderr io.Reader
	exited chan struct{}
	code   int
}

func (p *fakeProcess) Stderr() io.Reader { return p.stderr }

func (p *fakeProcess) Wait() (int, error) {
	<-p.exited
	return p.code, nil
}

func writeOutput(args []string, data string) {
	_ = os.WriteFile(args[len(args)-1], []byte(data), 0o644)
}

func newRequest(t *testing.T) Request {
	t.Helper()
	tmp := t.TempDir()
	return Request{
		Source:     filepath.Join(tmp, "in.mp4"),
		Range:      types.TrimRange{Start: types.At(5000), End: types.At(15000)},
		AudioMerge: 2,
		Output:     filepath.Join(tmp, "out.mp4"),
		TotalMs:    10000,
	}
}

func TestStart_ReportsProgressAndResult(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscoder{script: func(_ context.Context, args []string, w *io.PipeWriter) int {
		_, _ = io.WriteString(w, "frame=1 time=00:00:02.00 bitrate=1\r")
		_, _ = io.WriteString(w, "frame=2 time=00:00:0")
		_, _ = io.WriteString(w, "6.00 bitrate=1\r")
		writeOutput(args, "fresh")
		return 0
	}}
	c := New(Deps{Transcoder: tr})

	j, err := c.Start(context.Background(), newRequest(t))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if j.ID == "" {
		t.Fatalf("expected job id")
	}

	var seen []Progress
	for p := range j.Updates() {
		seen = append(seen, p)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i].Fraction < seen[i-1].Fraction {
			t.Fatalf("progress regressed: %+v", seen)
		}
	}

	res := j.Result()
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
	if res.Last.Processed != 6000 {
		t.Fatalf("last processed = %d, want 6000", res.Last.Processed)
	}
	if res.Last.Fraction != 1 {
		t.Fatalf("final fraction = %v, want 1", res.Last.Fraction)
	}
	if res.OutputSize != int64(len("fresh")) {
		t.Fatalf("output size = %d", res.OutputSize)
	}
	if c.Active() != nil {
		t.Fatalf("expected no active job after completion")
	}
}

func TestStart_RemovesExistingOutput(t *testing.T) {
	t.Parallel()

	req := newRequest(t)
	stale := strings.Repeat("stale bytes ", 100)
	if err := os.WriteFile(req.Output, []byte(stale), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var existedAtSpawn bool
	tr := &fakeTranscoder{script: func(_ context.Context, args []string, _ *io.PipeWriter) int {
		_, err := os.Stat(args[len(args)-1])
		existedAtSpawn = err == nil
		writeOutput(args, "new")
		return 0
	}}
	c := New(Deps{Transcoder: tr})
	j, err := c.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	j.Wait()

	if existedAtSpawn {
		t.Fatalf("output still existed when the transcoder started")
	}
	b, err := os.ReadFile(req.Output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(b) != "new" {
		t.Fatalf("stale bytes survived: %q", string(b))
	}
}

func TestStart_RejectsConcurrentJob(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	tr := &fakeTranscoder{script: func(_ context.Context, _ []string, _ *io.PipeWriter) int {
		<-release
		return 0
	}}
	c := New(Deps{Transcoder: tr})

	j, err := c.Start(context.Background(), newRequest(t))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := c.Start(context.Background(), newRequest(t)); !errors.Is(err, ErrJobActive) {
		t.Fatalf("second start err = %v, want ErrJobActive", err)
	}
	if n := tr.startCount(); n != 1 {
		t.Fatalf("transcoder started %d times, want 1", n)
	}

	close(release)
	j.Wait()

	j2, err := c.Start(context.Background(), newRequest(t))
	if err != nil {
		t.Fatalf("start after completion: %v", err)
	}
	j2.Wait()
}

func TestStart_SpawnFailure(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscoder{startErr: errors.New("ffmpeg start: executable file not found")}
	c := New(Deps{Transcoder: tr})
	if _, err := c.Start(context.Background(), newRequest(t)); err == nil {
		t.Fatalf("expected spawn error")
	}
	if c.Active() != nil {
		t.Fatalf("failed spawn must not leave an active job")
	}
}

func TestStart_InvalidMerge(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscoder{}
	c := New(Deps{Transcoder: tr})
	for _, merge := range []int{0, 5, -1} {
		req := newRequest(t)
		req.AudioMerge = merge
		if _, err := c.Start(context.Background(), req); !errors.Is(err, ErrInvalidMerge) {
			t.Fatalf("merge %d: err = %v, want ErrInvalidMerge", merge, err)
		}
	}
	if tr.startCount() != 0 {
		t.Fatalf("transcoder must not start on invalid request")
	}
}

func TestStart_NonZeroExit(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscoder{script: func(_ context.Context, _ []string, w *io.PipeWriter) int {
		_, _ = io.WriteString(w, "Unknown encoder 'libx264'\n")
		return 1
	}}
	c := New(Deps{Transcoder: tr})
	j, err := c.Start(context.Background(), newRequest(t))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	res := j.Wait()
	if res.OK() {
		t.Fatalf("expected failure")
	}
	if res.ExitCode != 1 {
		t.Fatalf("exit code = %d, want 1", res.ExitCode)
	}
	if !strings.Contains(res.Err.Error(), "Unknown encoder") {
		t.Fatalf("error should carry stderr tail: %v", res.Err)
	}
}

func TestShutdown_CancelsActiveJob(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscoder{script: func(ctx context.Context, _ []string, _ *io.PipeWriter) int {
		select {
		case <-ctx.Done():
			return -1
		case <-time.After(10 * time.Second):
			return 0
		}
	}}
	c := New(Deps{Transcoder: tr})
	j, err := c.Start(context.Background(), newRequest(t))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	c.Shutdown()

	res := j.Result()
	if !res.Canceled || !errors.Is(res.Err, ErrCanceled) {
		t.Fatalf("expected canceled result, got %+v", res)
	}
	if c.Active() != nil {
		t.Fatalf("expected no active job after shutdown")
	}
}

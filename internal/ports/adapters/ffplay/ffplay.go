// Package ffplay shows the video in an ffplay window. Timing comes from a
// clock player; ffplay is restarted at the tracked position whenever
// playback resumes, seeks or switches audio stream.
package ffplay

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"github.com/forPelevin/snip/internal/domain/timecode"
	"github.com/forPelevin/snip/internal/ports/adapters/clockplayer"
	"github.com/forPelevin/snip/internal/types"
)

type Adapter struct {
	*clockplayer.Player

	bin  string
	path string
	logf func(format string, args ...any)

	mu  sync.Mutex
	cmd *exec.Cmd
}

// New fails when the ffplay binary cannot be found.
func New(bin string, info types.MediaInfo, logf func(string, ...any)) (*Adapter, error) {
	if bin == "" {
		bin = "ffplay"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("ffplay: %w", err)
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Adapter{
		Player: clockplayer.New(info, nil),
		bin:    resolved,
		path:   info.Path,
		logf:   logf,
	}, nil
}

func buildArgs(path string, posMs int64, audio int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-autoexit",
		"-window_title", "snip",
		"-ss", timecode.Format(posMs),
		"-ast", "a:" + strconv.Itoa(audio),
		path,
	}
}

func (a *Adapter) State() types.PlayerState {
	s := a.Player.State()
	if s == types.EndOfFile {
		a.stop()
	}
	return s
}

func (a *Adapter) Start() error {
	if err := a.Player.Start(); err != nil {
		return err
	}
	return a.sync()
}

func (a *Adapter) Pause() error {
	if err := a.Player.Pause(); err != nil {
		return err
	}
	a.stop()
	return nil
}

func (a *Adapter) Resume() error {
	if err := a.Player.Resume(); err != nil {
		return err
	}
	return a.sync()
}

func (a *Adapter) Seek(fraction float64) error {
	if err := a.Player.Seek(fraction); err != nil {
		return err
	}
	return a.sync()
}

func (a *Adapter) CycleAudioStream() error {
	if err := a.Player.CycleAudioStream(); err != nil {
		return err
	}
	return a.sync()
}

func (a *Adapter) Close() error {
	a.stop()
	return a.Player.Close()
}

// sync restarts ffplay at the clock position when playing, and stops it
// otherwise.
func (a *Adapter) sync() error {
	a.stop()
	if a.Player.State() != types.Playing {
		return nil
	}
	args := buildArgs(a.path, a.Player.ElapsedMs(), a.Player.AudioStream())
	cmd := exec.Command(a.bin, args...)
	if err := cmd.Start(); err != nil {
		_ = a.Player.Pause()
		return fmt.Errorf("ffplay start: %w", err)
	}
	a.logf("ffplay pid %d at %s", cmd.Process.Pid, args[7])
	a.mu.Lock()
	a.cmd = cmd
	a.mu.Unlock()
	return nil
}

func (a *Adapter) stop() {
	a.mu.Lock()
	cmd := a.cmd
	a.cmd = nil
	a.mu.Unlock()
	if cmd == nil {
		return
	}
	_ = cmd.Process.Kill()
	go func() { _ = cmd.Wait() }()
}

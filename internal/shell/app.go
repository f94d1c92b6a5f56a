// Package shell is the interactive front end: it maps keystrokes to
// playback and export actions and renders a status screen every tick.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/forPelevin/snip/internal/domain/timecode"
	"github.com/forPelevin/snip/internal/export"
	"github.com/forPelevin/snip/internal/playback"
	"github.com/forPelevin/snip/internal/types"
)

const (
	red   = "\033[1;91m"
	green = "\033[1;92m"
	reset = "\033[0m"
)

type Config struct {
	Source string
	Merge  int
	Color  bool
	Logf   func(format string, args ...any)

	// NextOutput names the file for the next export.
	NextOutput func() string

	// InitialErr is shown until the next export starts, e.g. a preview
	// window that could not be opened.
	InitialErr error
}

type App struct {
	ctx     context.Context
	cfg     Config
	session *playback.Session
	coord   *export.Coordinator

	rng   types.TrimRange
	merge int

	job      *export.Job
	progress export.Progress
	last     *export.Result
	lastOut  string
	confirm  string
	err      error
	notice   string
}

func New(ctx context.Context, cfg Config, session *playback.Session, coord *export.Coordinator) *App {
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...any) {}
	}
	merge := cfg.Merge
	if merge < export.MinMerge || merge > export.MaxMerge {
		merge = export.MinMerge
	}
	return &App{ctx: ctx, cfg: cfg, session: session, coord: coord, merge: merge, err: cfg.InitialErr}
}

func (a *App) Range() types.TrimRange { return a.rng }

func (a *App) Merge() int { return a.merge }

func (a *App) Job() *export.Job { return a.job }

// Err is the last error shown to the user.
func (a *App) Err() error { return a.err }

// Handle applies one key and reports whether the shell should exit.
func (a *App) Handle(k Key) bool {
	if a.confirm != "" {
		a.answerConfirm(k)
		return false
	}
	a.notice = ""
	switch k {
	case "q", KeyCtrlC:
		return true
	case " ":
		a.report(a.session.Toggle())
	case "s", "S":
		a.rng.Start = types.At(a.session.Elapsed())
	case "e", "E":
		a.rng.End = types.At(a.session.Elapsed())
	case "x":
		a.rng = types.TrimRange{}
	case "a":
		a.report(a.session.CycleAudioStream())
	case "1", "2", "3", "4":
		a.merge = int(k[0] - '0')
	case "+", "=":
		a.merge = min(a.merge+1, export.MaxMerge)
	case "-":
		a.merge = max(a.merge-1, export.MinMerge)
	case KeyLeft, "h":
		a.report(a.session.Step(-playback.StepLong))
	case KeyRight, "l":
		a.report(a.session.Step(playback.StepLong))
	case KeyShiftLeft, "H":
		a.report(a.session.Step(-playback.StepShort))
	case KeyShiftRight, "L":
		a.report(a.session.Step(playback.StepShort))
	case KeyEnter:
		a.requestExport()
	case "c":
		if a.job != nil {
			a.job.Cancel()
			a.notice = "canceling export"
		}
	}
	return false
}

func (a *App) report(err error) {
	if err != nil {
		a.cfg.Logf("error: %v", err)
		a.err = err
	}
}

func (a *App) requestExport() {
	if a.job != nil {
		a.report(export.ErrJobActive)
		return
	}
	out := a.cfg.NextOutput()
	if _, err := os.Stat(out); err == nil {
		a.confirm = out
		return
	}
	a.startExport(out)
}

func (a *App) answerConfirm(k Key) {
	out := a.confirm
	a.confirm = ""
	switch k {
	case "y", "Y":
		a.startExport(out)
	default:
		a.notice = "export aborted"
	}
}

func (a *App) startExport(out string) {
	req := export.Request{
		Source:     a.cfg.Source,
		Range:      a.rng,
		AudioMerge: a.merge,
		Output:     out,
		TotalMs:    a.rng.Span(a.session.Duration()),
	}
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			a.report(err)
			return
		}
	}
	j, err := a.coord.Start(a.ctx, req)
	if err != nil {
		a.report(fmt.Errorf("export: %w", err))
		return
	}
	a.job = j
	a.progress = export.Progress{}
	a.last = nil
	a.lastOut = out
	a.err = nil
}

// Poll drains pending progress without blocking and collects the result of
// a finished job.
func (a *App) Poll() {
	if a.job == nil {
		return
	}
	for {
		select {
		case p, ok := <-a.job.Updates():
			if !ok {
				res := a.job.Result()
				a.last = &res
				a.job = nil
				if res.Err != nil && !errors.Is(res.Err, export.ErrCanceled) {
					a.err = res.Err
				}
				return
			}
			a.progress = p
		default:
			return
		}
	}
}

// Close cancels a running export, waits for it and releases the player.
func (a *App) Close() error {
	a.coord.Shutdown()
	a.Poll()
	return a.session.Close()
}

func (a *App) paint(color, s string) string {
	if !a.cfg.Color {
		return s
	}
	return color + s + reset
}

func markText(m types.Mark) string {
	if !m.Set {
		return "not set"
	}
	return timecode.Format(m.Ms)
}

// Render returns the status screen. Lines end in CRLF for raw terminals.
func (a *App) Render() string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString("\r\n")
	}

	line("snip  %s", filepath.Base(a.cfg.Source))
	line("")
	line("Position: %s / %s  [%s]",
		timecode.Format(a.session.Elapsed()),
		timecode.Format(a.session.Duration()),
		a.session.State())
	line("Start:    %s", markText(a.rng.Start))
	line("End:      %s", markText(a.rng.End))
	if a.rng.Inverted() {
		line("%s", a.paint(red, "start > end"))
	}
	line("Merge audio channels: %d", a.merge)
	line("")

	switch {
	case a.confirm != "":
		line("%s exists. Overwrite? [y/N]", a.confirm)
	case a.job != nil:
		line("Progress: %.2f%%", a.progress.Fraction*100)
	case a.last != nil && a.last.Canceled:
		line("Export canceled: %s", a.lastOut)
	case a.last != nil && a.last.OK():
		line("%s", a.paint(green, fmt.Sprintf("Exported %s (%s in %s)",
			a.lastOut, humanize.Bytes(uint64(a.last.OutputSize)), a.last.Elapsed.Round(time.Millisecond))))
	}
	if a.notice != "" {
		line("%s", a.notice)
	}
	if a.err != nil {
		msg, _, _ := strings.Cut(a.err.Error(), "\n")
		line("%s", a.paint(red, "error: "+msg))
	}
	line("")
	line("space play/pause  s/e mark  x clear  a audio  1-4 merge  ←/→ 5s  shift ←/→ 1s")
	line("enter export  c cancel  q quit")
	return b.String()
}

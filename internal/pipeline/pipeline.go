package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/forPelevin/snip/internal/export"
	"github.com/forPelevin/snip/internal/playback"
	"github.com/forPelevin/snip/internal/ports"
	"github.com/forPelevin/snip/internal/ports/adapters/clockplayer"
	"github.com/forPelevin/snip/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/snip/internal/ports/adapters/ffplay"
	"github.com/forPelevin/snip/internal/shell"
	"github.com/forPelevin/snip/internal/types"
)

// ErrProbe marks an input that could not be opened as media.
var ErrProbe = errors.New("probe input")

type Config struct {
	Input  string
	Output string
	Merge  int

	// OutDir receives generated clip names when Output is empty.
	OutDir string

	// Preview opens an ffplay window; otherwise playback is headless.
	Preview bool
	Color   bool
	Logf    func(format string, args ...any)

	FFmpegPath  string
	FFprobePath string
	FFplayPath  string

	In  *os.File
	Out io.Writer
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	fi, err := os.Stat(c.Input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("input %s is a directory", c.Input)
	}
	if c.Merge < export.MinMerge || c.Merge > export.MaxMerge {
		return fmt.Errorf("merge must be between %d and %d", export.MinMerge, export.MaxMerge)
	}
	if c.Output != "" {
		if fi, err := os.Stat(c.Output); err == nil && fi.IsDir() {
			return fmt.Errorf("output %s is a directory", c.Output)
		}
	}
	if c.Output == "" && c.OutDir != "" {
		if fi, err := os.Stat(c.OutDir); err == nil && !fi.IsDir() {
			return fmt.Errorf("out %s: not a directory", c.OutDir)
		}
	}
	return nil
}

// Run probes the input, wires the player and export coordinator and hands
// control to the interactive shell until the user quits.
func Run(ctx context.Context, cfg Config) error {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	in, out := cfg.In, cfg.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	// adapters
	v := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)

	info, err := v.Probe(ctx, cfg.Input)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbe, err)
	}
	logf("opened %s (%d ms, %d audio streams)", cfg.Input, info.DurationMs, info.AudioStreams)

	player, playerErr := newPlayer(cfg, info, logf)
	if playerErr != nil {
		logf("preview unavailable: %v", playerErr)
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	next := func() string {
		if cfg.Output != "" {
			return cfg.Output
		}
		return buildOutputPath(outDir, cfg.Input, time.Now().UTC())
	}

	coord := export.New(export.Deps{Transcoder: v, Logf: logf})
	app := shell.New(ctx, shell.Config{
		Source:     cfg.Input,
		NextOutput: next,
		Merge:      cfg.Merge,
		Color:      cfg.Color,
		InitialErr: playerErr,
		Logf:       logf,
	}, playback.NewSession(player), coord)

	return shell.Run(ctx, app, in, out, shell.DefaultTick)
}

// newPlayer falls back to the headless player when the preview window
// cannot be opened. The error is returned for display.
func newPlayer(cfg Config, info types.MediaInfo, logf func(string, ...any)) (ports.Player, error) {
	if !cfg.Preview {
		return clockplayer.New(info, nil), nil
	}
	p, err := ffplay.New(cfg.FFplayPath, info, logf)
	if err != nil {
		return clockplayer.New(info, nil), err
	}
	return p, nil
}

func buildOutputPath(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "clip"
	}
	ts := now.UTC().Format("20060102-150405Z")
	seed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(seed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s.mp4", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.Transcoder = (*ffmpeg.Adapter)(nil)
var _ ports.Prober = (*ffmpeg.Adapter)(nil)
var _ ports.Player = (*ffplay.Adapter)(nil)
var _ ports.Player = (*clockplayer.Player)(nil)

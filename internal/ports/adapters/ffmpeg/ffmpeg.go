package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/snip/internal/ports"
	"github.com/forPelevin/snip/internal/types"
)

// killGrace bounds how long Wait lingers on stderr after the process is
// killed by context cancellation.
const killGrace = 5 * time.Second

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

type process struct {
	cmd    *exec.Cmd
	stderr io.Reader
}

func (p *process) Stderr() io.Reader { return p.stderr }

func (p *process) Wait() (int, error) {
	err := p.cmd.Wait()
	code := -1
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && code >= 0 {
		return code, nil
	}
	return code, err
}

// Start spawns ffmpeg with args. Stdin and stdout are attached to the null
// device, stderr is piped for progress scraping.
func (a *Adapter) Start(ctx context.Context, args []string) (ports.Process, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.WaitDelay = killGrace
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}
	return &process{cmd: cmd, stderr: stderr}, nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

func (a *Adapter) Probe(ctx context.Context, path string) (types.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type",
		"-of", "json",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return types.MediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(exitErr.Stderr))
		}
		return types.MediaInfo{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(path, b)
}

func parseProbe(path string, b []byte) (types.MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return types.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	s := strings.TrimSpace(out.Format.Duration)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(sec) || sec < 0 {
		return types.MediaInfo{}, fmt.Errorf("parse duration %q: not a media file", s)
	}
	info := types.MediaInfo{
		Path:       path,
		DurationMs: int64(math.Round(sec * 1000)),
	}
	for _, st := range out.Streams {
		if st.CodecType == "audio" {
			info.AudioStreams++
		}
	}
	return info, nil
}

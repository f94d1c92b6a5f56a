package ports

import (
	"context"
	"io"

	"github.com/forPelevin/snip/internal/types"
)

type Prober interface {
	Probe(ctx context.Context, path string) (types.MediaInfo, error)
}

// Transcoder launches one transcoding process. The returned Process has its
// stdin closed, stdout discarded and stderr piped.
type Transcoder interface {
	Start(ctx context.Context, args []string) (Process, error)
}

type Process interface {
	Stderr() io.Reader
	// Wait blocks until the process exits. It must be called after Stderr
	// has been drained.
	Wait() (exitCode int, err error)
}

// Player is the video player state machine. Seek takes a normalized
// position in [0, 1].
type Player interface {
	State() types.PlayerState
	Start() error
	Pause() error
	Resume() error
	Seek(fraction float64) error
	ElapsedMs() int64
	DurationMs() int64
	CycleAudioStream() error
	Close() error
}

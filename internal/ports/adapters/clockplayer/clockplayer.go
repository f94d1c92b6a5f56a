// Package clockplayer is a headless player that tracks the playback
// position against a wall clock. It renders nothing.
package clockplayer

import (
	"sync"
	"time"

	"github.com/forPelevin/snip/internal/types"
)

type Player struct {
	mu  sync.Mutex
	now func() time.Time

	duration int64
	streams  int
	audio    int

	state  types.PlayerState
	base   int64
	anchor time.Time
}

func New(info types.MediaInfo, now func() time.Time) *Player {
	if now == nil {
		now = time.Now
	}
	return &Player{now: now, duration: info.DurationMs, streams: info.AudioStreams}
}

// position returns the current position and moves the state to EndOfFile
// once playback passes the duration. Callers hold p.mu.
func (p *Player) position() int64 {
	if p.state != types.Playing {
		return p.base
	}
	pos := p.base + p.now().Sub(p.anchor).Milliseconds()
	if pos >= p.duration {
		p.state = types.EndOfFile
		p.base = p.duration
		return p.duration
	}
	return pos
}

func (p *Player) State() types.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position()
	return p.state
}

func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.position(); p.state == types.Playing {
		return nil
	}
	if p.base >= p.duration {
		p.state = types.EndOfFile
		return nil
	}
	p.state = types.Playing
	p.anchor = p.now()
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == types.Playing {
		p.base = p.position()
		if p.state == types.Playing {
			p.state = types.Paused
		}
	}
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == types.Paused {
		p.state = types.Playing
		p.anchor = p.now()
	}
	return nil
}

func (p *Player) Seek(fraction float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	p.position()
	p.base = int64(fraction * float64(p.duration))
	p.anchor = p.now()
	if p.state == types.EndOfFile && p.base < p.duration {
		p.state = types.Stopped
	}
	return nil
}

func (p *Player) ElapsedMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position()
}

func (p *Player) DurationMs() int64 { return p.duration }

func (p *Player) CycleAudioStream() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streams > 1 {
		p.audio = (p.audio + 1) % p.streams
	}
	return nil
}

// AudioStream is the index of the selected audio stream.
func (p *Player) AudioStream() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.position()
	p.state = types.Stopped
	return nil
}

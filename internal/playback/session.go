// Package playback drives the player state machine on behalf of the shell.
package playback

import (
	"errors"

	"github.com/forPelevin/snip/internal/ports"
	"github.com/forPelevin/snip/internal/types"
)

var ErrNoPlayer = errors.New("no player")

// Seek steps used by the shell.
const (
	StepLong  int64 = 5000
	StepShort int64 = 1000
)

type Session struct {
	p ports.Player
}

func NewSession(p ports.Player) *Session { return &Session{p: p} }

func (s *Session) ready() error {
	if s == nil || s.p == nil {
		return ErrNoPlayer
	}
	return nil
}

func (s *Session) State() types.PlayerState {
	if s.ready() != nil {
		return types.Stopped
	}
	return s.p.State()
}

func (s *Session) Start() error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.p.Start()
}

func (s *Session) Pause() error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.p.Pause()
}

func (s *Session) Resume() error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.p.Resume()
}

// Seek moves to a normalized position; out-of-range values are clamped.
func (s *Session) Seek(fraction float64) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.p.Seek(clampFraction(fraction))
}

// Toggle is the play/pause action.
func (s *Session) Toggle() error {
	if err := s.ready(); err != nil {
		return err
	}
	switch s.p.State() {
	case types.Playing:
		return s.p.Pause()
	case types.Paused:
		return s.p.Resume()
	case types.EndOfFile:
		if err := s.p.Seek(0); err != nil {
			return err
		}
		return s.p.Start()
	default:
		return s.p.Start()
	}
}

// SeekTo clamps ms to [0, duration] and seeks there.
func (s *Session) SeekTo(ms int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	d := s.p.DurationMs()
	if d <= 0 {
		return s.p.Seek(0)
	}
	if ms < 0 {
		ms = 0
	}
	if ms > d {
		ms = d
	}
	return s.p.Seek(float64(ms) / float64(d))
}

// Step seeks relative to the current position.
func (s *Session) Step(deltaMs int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.SeekTo(s.p.ElapsedMs() + deltaMs)
}

func (s *Session) Elapsed() int64 {
	if s.ready() != nil {
		return 0
	}
	return s.p.ElapsedMs()
}

func (s *Session) Duration() int64 {
	if s.ready() != nil {
		return 0
	}
	return s.p.DurationMs()
}

func (s *Session) CycleAudioStream() error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.p.CycleAudioStream()
}

func (s *Session) Close() error {
	if s.ready() != nil {
		return nil
	}
	return s.p.Close()
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

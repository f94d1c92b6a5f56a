package types

// Mark is an optional timestamp in milliseconds relative to clip start.
type Mark struct {
	Ms  int64
	Set bool
}

func At(ms int64) Mark { return Mark{Ms: ms, Set: true} }

type TrimRange struct {
	Start Mark
	End   Mark
}

// Inverted reports whether both bounds are set and start is after end.
func (r TrimRange) Inverted() bool {
	return r.Start.Set && r.End.Set && r.Start.Ms > r.End.Ms
}

// Span returns the length of media the trim keeps. An unset end falls back
// to the full media duration, an unset start to zero.
func (r TrimRange) Span(durationMs int64) int64 {
	end := durationMs
	if r.End.Set {
		end = r.End.Ms
	}
	var start int64
	if r.Start.Set {
		start = r.Start.Ms
	}
	return end - start
}

type PlayerState int

const (
	Stopped PlayerState = iota
	Playing
	Paused
	EndOfFile
)

func (s PlayerState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case EndOfFile:
		return "end of file"
	default:
		return "stopped"
	}
}

type MediaInfo struct {
	Path         string
	DurationMs   int64
	AudioStreams int
}

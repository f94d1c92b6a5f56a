package export

import (
	"bufio"
	"bytes"
	"io"

	"github.com/forPelevin/snip/internal/domain/timecode"
)

const (
	readChunk      = 256
	maxLineBytes   = 64 * 1024
	maxStderrBytes = 8 * 1024 // tail kept for diagnostics
)

type Progress struct {
	Processed int64
	Fraction  float64
}

// Fraction converts processed media time to a completion value in [0, 1].
func Fraction(processed, total int64) float64 {
	if total <= 0 || processed <= 0 {
		return 0
	}
	f := float64(processed) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

// Monitor scrapes progress markers from a transcoder's diagnostic stream.
type Monitor struct {
	total   int64
	publish func(Progress)
	last    Progress
	tail    []byte
}

func NewMonitor(totalMs int64, publish func(Progress)) *Monitor {
	if publish == nil {
		publish = func(Progress) {}
	}
	return &Monitor{total: totalMs, publish: publish}
}

// Run reads r until EOF. Partial lines are held across reads so a marker
// split between two chunks is still recognized.
func (m *Monitor) Run(r io.Reader) error {
	sc := bufio.NewScanner(&tailReader{r: r, m: m})
	sc.Buffer(make([]byte, 0, readChunk), maxLineBytes)
	sc.Split(scanProgressLines)
	for sc.Scan() {
		m.Feed(sc.Text())
	}
	return sc.Err()
}

// Feed handles one complete line.
func (m *Monitor) Feed(line string) {
	ms, ok := timecode.ParseProgressMarker(line)
	if !ok {
		return
	}
	f := Fraction(ms, m.total)
	if f < m.last.Fraction {
		f = m.last.Fraction
	}
	m.last = Progress{Processed: ms, Fraction: f}
	m.publish(m.last)
}

func (m *Monitor) Last() Progress { return m.last }

// Tail returns the last bytes read from the stream.
func (m *Monitor) Tail() string { return string(m.tail) }

func (m *Monitor) keep(p []byte) {
	m.tail = append(m.tail, p...)
	if over := len(m.tail) - maxStderrBytes; over > 0 {
		m.tail = append(m.tail[:0], m.tail[over:]...)
	}
}

type tailReader struct {
	r io.Reader
	m *Monitor
}

func (t *tailReader) Read(p []byte) (int, error) {
	if len(p) > readChunk {
		p = p[:readChunk]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		t.m.keep(p[:n])
	}
	return n, err
}

// scanProgressLines splits on '\n' or '\r'. ffmpeg rewrites its status line
// in place with carriage returns.
func scanProgressLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

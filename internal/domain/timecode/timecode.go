package timecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
)

// ffmpeg prints "frame=  120 fps=... time=00:01:23.45 bitrate=..." on stderr.
var reProgress = regexp.MustCompile(`frame=.+time=(\d+):(\d{2}):(\d{2})\.(\d{2})`)

// Format renders ms as HH:MM:SS.mmm. Hours are not wrapped.
func Format(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / msPerHour
	m := ms / msPerMinute % 60
	s := ms / msPerSecond % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%msPerSecond)
}

// Parse is the inverse of Format. The fraction may carry 1 to 3 digits.
func Parse(s string) (int64, error) {
	clock, frac, hasFrac := strings.Cut(strings.TrimSpace(s), ".")
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timecode %q: want HH:MM:SS.mmm", s)
	}
	h, err := field(parts[0], -1)
	if err != nil {
		return 0, fmt.Errorf("timecode %q: hours: %w", s, err)
	}
	m, err := field(parts[1], 59)
	if err != nil {
		return 0, fmt.Errorf("timecode %q: minutes: %w", s, err)
	}
	sec, err := field(parts[2], 59)
	if err != nil {
		return 0, fmt.Errorf("timecode %q: seconds: %w", s, err)
	}
	var ms int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 3 {
			return 0, fmt.Errorf("timecode %q: fraction must have 1-3 digits", s)
		}
		v, err := field(frac, -1)
		if err != nil {
			return 0, fmt.Errorf("timecode %q: fraction: %w", s, err)
		}
		for i := len(frac); i < 3; i++ {
			v *= 10
		}
		ms = v
	}
	return h*msPerHour + m*msPerMinute + sec*msPerSecond + ms, nil
}

// ParseProgressMarker extracts the last progress timestamp in line.
// Centiseconds are scaled to milliseconds.
func ParseProgressMarker(line string) (int64, bool) {
	all := reProgress.FindAllStringSubmatch(line, -1)
	if len(all) == 0 {
		return 0, false
	}
	m := all[len(all)-1]
	var v [4]int64
	for i := range v {
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, false
		}
		v[i] = n
	}
	if v[0] > (1<<62)/msPerHour {
		return 0, false
	}
	return v[0]*msPerHour + v[1]*msPerMinute + v[2]*msPerSecond + v[3]*10, true
}

func field(s string, max int64) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if max >= 0 && n > max {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return n, nil
}

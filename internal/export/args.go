package export

import (
	"fmt"

	"github.com/forPelevin/snip/internal/domain/timecode"
	"github.com/forPelevin/snip/internal/types"
)

// VideoCodec is the only encoder the export path uses.
const VideoCodec = "libx264"

const (
	MinMerge = 1
	MaxMerge = 4
)

// BuildArgs returns the transcoder argument list. The order is part of the
// command-line contract and must not change.
func BuildArgs(source string, rng types.TrimRange, merge int, output string) []string {
	args := []string{
		"-i", source,
		"-c:v", VideoCodec,
		"-filter_complex", fmt.Sprintf("amerge=inputs=%d", merge),
	}
	if rng.Start.Set {
		args = append(args, "-ss", timecode.Format(rng.Start.Ms))
	}
	if rng.End.Set {
		args = append(args, "-to", timecode.Format(rng.End.Ms))
	}
	return append(args, output)
}

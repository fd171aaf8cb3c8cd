package ffmpeg

import (
	"strconv"
	"strings"

	"github.com/smazurov/debezel/internal/geometry"
)

// nullSink is the output for the analysis pass; the null muxer discards it.
const nullSink = "-"

// BuildPassArgs builds the full argv (engine first) for one encoder pass.
// Both passes share every video option so the second pass can reuse the
// first pass's statistics.
func BuildPassArgs(engine string, spec PassSpec) []string {
	plan := spec.Plan
	args := []string{
		engine,
		"-y",
		"-i", spec.Input,
		"-filter_complex", plan.Graph.String(),
		"-map", "[" + geometry.OutputLabel + "]",
		"-s", plan.OutputSize(),
		"-c:v", plan.VideoCodec,
		"-pix_fmt", plan.PixelFormat,
		"-preset", plan.Preset,
		"-profile:v", plan.Profile,
		"-level", plan.Level,
		"-tune", plan.Tune,
		"-b:v", plan.VideoBitrate(),
		"-pass", spec.Pass.String(),
		"-progress", "pipe:1",
		"-nostats",
		"-hide_banner",
		"-loglevel", "error",
	}
	if spec.PassLogPrefix != "" {
		args = append(args, "-passlogfile", spec.PassLogPrefix)
	}

	if spec.Pass == PassAnalysis {
		return append(args, "-an", "-f", "null", nullSink)
	}
	return append(args,
		"-map", "0:a?",
		"-c:a", plan.AudioCodec,
		"-b:a", plan.AudioBitrate(),
		"-ac", strconv.Itoa(plan.AudioChannels),
		"-movflags", "+faststart",
		spec.Output,
	)
}

// CommandLine renders an argv for logs, quoting arguments a shell would split.
func CommandLine(argv []string) string {
	var b strings.Builder
	for i, arg := range argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		if arg == "" || strings.ContainsAny(arg, " \t\"'[];?*$") {
			b.WriteByte('\'')
			b.WriteString(strings.ReplaceAll(arg, "'", `'\''`))
			b.WriteByte('\'')
			continue
		}
		b.WriteString(arg)
	}
	return b.String()
}

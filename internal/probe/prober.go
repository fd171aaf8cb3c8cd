// Package probe queries duration and frame size of a source video.
//
// Probing is advisory: when ffprobe is missing, fails, or prints something
// unexpected, the queries report "unknown" instead of an error. An unknown
// duration disables percentage progress and size-based bitrate planning; an
// unknown size makes the run fall back to the horizontal layout.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/debezel/internal/geometry"
	"github.com/smazurov/debezel/internal/logging"
)

// DefaultTimeout bounds a single ffprobe invocation.
const DefaultTimeout = 10 * time.Second

// Prober reports source properties. ok is false when the value is unknown.
type Prober interface {
	Duration(ctx context.Context, path string) (seconds float64, ok bool)
	Dimensions(ctx context.Context, path string) (dims geometry.Dimensions, ok bool)
}

// Info is the subset of ffprobe output debezel cares about.
type Info struct {
	Duration   float64
	Dimensions geometry.Dimensions
	VideoCodec string
	HasAudio   bool
}

// FFprobe implements Prober by running the ffprobe binary.
type FFprobe struct {
	Binary  string
	Timeout time.Duration
	logger  logging.Logger
}

// NewFFprobe creates a prober. An empty binary means "ffprobe" from PATH.
func NewFFprobe(binary string, logger logging.Logger) *FFprobe {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	if logger == nil {
		logger = logging.GetLogger("probe")
	}
	return &FFprobe{Binary: binary, Timeout: DefaultTimeout, logger: logger}
}

// Inspect runs a single ffprobe JSON call against path.
func (f *FFprobe) Inspect(ctx context.Context, path string) (*Info, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ffprobe: empty path")
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.Binary,
		"-v", "error",
		"-hide_banner",
		"-show_format", "-show_streams",
		"-of", "json",
		"--", path,
	)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("ffprobe %q: %w: %s", path, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("ffprobe %q: %w", path, err)
	}
	return ParseJSON(out)
}

// Duration implements Prober.
func (f *FFprobe) Duration(ctx context.Context, path string) (float64, bool) {
	info, err := f.Inspect(ctx, path)
	if err != nil {
		f.logger.Warn("Duration probe unavailable", "path", path, "error", err)
		return 0, false
	}
	if info.Duration <= 0 {
		f.logger.Warn("Duration unknown", "path", path)
		return 0, false
	}
	return info.Duration, true
}

// Dimensions implements Prober.
func (f *FFprobe) Dimensions(ctx context.Context, path string) (geometry.Dimensions, bool) {
	info, err := f.Inspect(ctx, path)
	if err != nil {
		f.logger.Warn("Dimension probe unavailable", "path", path, "error", err)
		return geometry.Dimensions{}, false
	}
	if !info.Dimensions.Valid() {
		f.logger.Warn("No video stream dimensions", "path", path)
		return geometry.Dimensions{}, false
	}
	return info.Dimensions, true
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecName   string         `json:"codec_name"`
	CodecType   string         `json:"codec_type"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Duration    string         `json:"duration"`
	Disposition map[string]int `json:"disposition"`
}

// ParseJSON converts raw ffprobe JSON into Info. The first video stream that
// is not an attached picture supplies the dimensions; the container duration
// is preferred over the stream duration.
func ParseJSON(data []byte) (*Info, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	info := &Info{Duration: parseFloat(raw.Format.Duration)}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if s.Disposition["attached_pic"] == 1 || info.Dimensions.Valid() {
				continue
			}
			info.Dimensions = geometry.Dimensions{Width: s.Width, Height: s.Height}
			info.VideoCodec = s.CodecName
			if info.Duration <= 0 {
				info.Duration = parseFloat(s.Duration)
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

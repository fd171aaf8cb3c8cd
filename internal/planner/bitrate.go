package planner

import "math"

// Video bitrate bounds and default, in kbps.
const (
	DefaultVideoBitrateKbps = 10000
	MinVideoBitrateKbps     = 1000
	MaxVideoBitrateKbps     = 50000
)

// BitrateSource tells where a planned bitrate came from.
type BitrateSource string

// Bitrate sources.
const (
	SourceDefault    BitrateSource = "default"
	SourceTargetSize BitrateSource = "target_size"
)

// BitrateDecision is the planner's output together with how it was reached.
type BitrateDecision struct {
	Kbps   int           `json:"kbps"`
	Source BitrateSource `json:"source"`
	// Clamped is set when the size-derived bitrate fell outside the bounds, in
	// which case the output will not match the requested size.
	Clamped bool `json:"clamped"`
	// UnclampedKbps is the size-derived value before clamping (0 for defaults).
	UnclampedKbps int `json:"unclamped_kbps,omitempty"`
}

// PlanBitrate derives the video bitrate for a target output size. Without a
// positive size and a positive duration it returns the default bitrate.
//
// The fixed 160 kbps audio track is reserved out of the size budget, and the
// result is clamped to [MinVideoBitrateKbps, MaxVideoBitrateKbps] even when
// that means overshooting or undershooting the target.
func PlanBitrate(targetSizeMB, durationSec *float64) BitrateDecision {
	if targetSizeMB == nil || *targetSizeMB <= 0 || durationSec == nil || *durationSec <= 0 {
		return BitrateDecision{Kbps: DefaultVideoBitrateKbps, Source: SourceDefault}
	}

	duration := *durationSec
	targetBits := *targetSizeMB * 8 * 1024 * 1024
	audioBits := float64(AudioBitrateKbps*1000) * duration
	videoBps := (targetBits - audioBits) / duration
	raw := int(math.Round(videoBps / 1000))

	kbps := min(max(raw, MinVideoBitrateKbps), MaxVideoBitrateKbps)
	return BitrateDecision{
		Kbps:          kbps,
		Source:        SourceTargetSize,
		Clamped:       kbps != raw,
		UnclampedKbps: raw,
	}
}

// VideoBitrateKbps is PlanBitrate reduced to the bitrate alone.
func VideoBitrateKbps(targetSizeMB, durationSec *float64) int {
	return PlanBitrate(targetSizeMB, durationSec).Kbps
}

// EstimateSizeMB predicts the output size for a video bitrate, including the
// audio track, in the same MiB units as the target size.
func EstimateSizeMB(videoKbps int, durationSec float64) float64 {
	if durationSec <= 0 {
		return 0
	}
	bits := float64(videoKbps+AudioBitrateKbps) * 1000 * durationSec
	return bits / 8 / 1024 / 1024
}

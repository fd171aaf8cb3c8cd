// Package planner turns a filter graph and a size budget into the encode plan
// shared by both passes of a run.
package planner

import (
	"strconv"

	"github.com/smazurov/debezel/internal/geometry"
)

// Fixed encode parameters required by the wall's playback hardware.
const (
	VideoCodec       = "libx264"
	PixelFormat      = "yuv422p10le"
	Profile          = "high422"
	Level            = "5.2"
	Preset           = "medium"
	Tune             = "animation"
	AudioCodec       = "aac"
	AudioBitrateKbps = 160
	AudioChannels    = 2
)

// EncodePlan is everything both passes need. It is built once per run and
// never modified; pass 1 only ignores the audio settings.
type EncodePlan struct {
	Graph            geometry.FilterGraph `json:"graph"`
	Bitrate          BitrateDecision      `json:"bitrate"`
	VideoBitrateKbps int                  `json:"video_bitrate_kbps"`
	OutputWidth      int                  `json:"output_width"`
	OutputHeight     int                  `json:"output_height"`
	VideoCodec       string               `json:"video_codec"`
	PixelFormat      string               `json:"pixel_format"`
	Profile          string               `json:"profile"`
	Level            string               `json:"level"`
	Preset           string               `json:"preset"`
	Tune             string               `json:"tune"`
	AudioCodec       string               `json:"audio_codec"`
	AudioBitrateKbps int                  `json:"audio_bitrate_kbps"`
	AudioChannels    int                  `json:"audio_channels"`
}

// NewPlan combines a filter graph with a bitrate decision.
func NewPlan(graph geometry.FilterGraph, bitrate BitrateDecision) EncodePlan {
	return EncodePlan{
		Graph:            graph,
		Bitrate:          bitrate,
		VideoBitrateKbps: bitrate.Kbps,
		OutputWidth:      geometry.OutputWidth,
		OutputHeight:     geometry.OutputHeight,
		VideoCodec:       VideoCodec,
		PixelFormat:      PixelFormat,
		Profile:          Profile,
		Level:            Level,
		Preset:           Preset,
		Tune:             Tune,
		AudioCodec:       AudioCodec,
		AudioBitrateKbps: AudioBitrateKbps,
		AudioChannels:    AudioChannels,
	}
}

// VideoBitrate renders the video bitrate as an ffmpeg value, e.g. "10000k".
func (p EncodePlan) VideoBitrate() string {
	return strconv.Itoa(p.VideoBitrateKbps) + "k"
}

// AudioBitrate renders the audio bitrate as an ffmpeg value, e.g. "160k".
func (p EncodePlan) AudioBitrate() string {
	return strconv.Itoa(p.AudioBitrateKbps) + "k"
}

// OutputSize renders the output geometry as WxH.
func (p EncodePlan) OutputSize() string {
	return strconv.Itoa(p.OutputWidth) + "x" + strconv.Itoa(p.OutputHeight)
}

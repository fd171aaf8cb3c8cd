// Package models holds the request and response shapes of the HTTP API.
package models

import "github.com/smazurov/debezel/internal/version"

// HealthData is the health check payload.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Health message"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Body HealthData
}

// VersionResponse is the version response.
type VersionResponse struct {
	Body version.Info
}

// CapabilitiesData reports whether encodes can run on this host.
type CapabilitiesData struct {
	EngineAvailable bool   `json:"engine_available" doc:"ffmpeg was located"`
	EnginePath      string `json:"engine_path,omitempty" example:"/usr/bin/ffmpeg" doc:"Located ffmpeg binary"`
	OutputWidth     int    `json:"output_width" example:"4320" doc:"Fixed output width"`
	OutputHeight    int    `json:"output_height" example:"1920" doc:"Fixed output height"`
	MinBitrateKbps  int    `json:"min_bitrate_kbps" example:"1000" doc:"Lowest planned video bitrate"`
	MaxBitrateKbps  int    `json:"max_bitrate_kbps" example:"50000" doc:"Highest planned video bitrate"`
}

// CapabilitiesResponse is the capabilities response.
type CapabilitiesResponse struct {
	Body CapabilitiesData
}

// OutputPathRequest asks where a run would write.
type OutputPathRequest struct {
	Input     string `query:"input" required:"true" example:"/videos/wall.mp4" doc:"Source video path"`
	OutputDir string `query:"output_dir" doc:"Destination directory, defaults to the input's"`
}

// OutputPathData is the resolved output path.
type OutputPathData struct {
	Output string `json:"output" example:"/videos/wall_bezel_removed.mp4" doc:"Resolved output path"`
}

// OutputPathResponse is the output path response.
type OutputPathResponse struct {
	Body OutputPathData
}

// ConnectedEvent is the first message on an event stream.
type ConnectedEvent struct {
	Message   string `json:"message" example:"SSE connection established" doc:"Greeting"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

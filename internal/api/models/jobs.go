package models

import (
	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/jobs"
)

// EncodeParams are the run parameters shared by job submission and preview.
// Explicit bezel and size fields override the named profile.
type EncodeParams struct {
	Input        string   `json:"input" minLength:"1" example:"/videos/wall.mp4" doc:"Source video path on the server"`
	Output       string   `json:"output,omitempty" doc:"Explicit output file"`
	OutputDir    string   `json:"output_dir,omitempty" doc:"Output directory, ignored when output is set"`
	Profile      string   `json:"profile,omitempty" example:"lobby" doc:"Wall profile name"`
	TopPx        *int     `json:"top_px,omitempty" minimum:"0" example:"16" doc:"Top bezel width in source pixels"`
	BottomPx     *int     `json:"bottom_px,omitempty" minimum:"0" example:"21" doc:"Bottom bezel width in source pixels"`
	TargetSizeMB *float64 `json:"target_size_mb,omitempty" minimum:"0" example:"200" doc:"Target output size in MB"`
}

// JobSubmitRequest submits a job.
type JobSubmitRequest struct {
	Body EncodeParams
}

// JobIDRequest addresses one job.
type JobIDRequest struct {
	ID string `path:"id" doc:"Job identifier"`
}

// JobResponse returns one job.
type JobResponse struct {
	Body jobs.Job
}

// JobListData lists jobs.
type JobListData struct {
	Jobs  []jobs.Job `json:"jobs" doc:"Jobs in submission order"`
	Count int        `json:"count" doc:"Number of jobs"`
}

// JobListResponse lists jobs.
type JobListResponse struct {
	Body JobListData
}

// PreviewRequest asks for a dry run.
type PreviewRequest struct {
	Body EncodeParams
}

// PreviewData is a dry run result.
type PreviewData struct {
	encode.Preview
	Command []string `json:"command" doc:"Pass 2 command line"`
}

// PreviewResponse returns a dry run.
type PreviewResponse struct {
	Body PreviewData
}

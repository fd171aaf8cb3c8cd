package api

import (
	"context"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/debezel/internal/api/models"
	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/ffmpeg"
	"github.com/smazurov/debezel/internal/profiles"
)

func (s *Server) registerJobRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "submit-job",
		Method:        http.MethodPost,
		Path:          "/api/jobs",
		Summary:       "Submit Job",
		Description:   "Queue a bezel removal encode. Jobs run one at a time.",
		Tags:          []string{"jobs"},
		DefaultStatus: http.StatusAccepted,
		Security:      withAuth(),
		Errors:        []int{401, 404, 409, 422, 429, 503},
	}, func(_ context.Context, input *models.JobSubmitRequest) (*models.JobResponse, error) {
		if _, ok := s.options.Planner.Engine(); !ok {
			return nil, huma.Error503ServiceUnavailable("ffmpeg not found on the server")
		}
		req, err := s.buildRequest(input.Body)
		if err != nil {
			return nil, mapError(err)
		}
		if info, err := os.Stat(req.Input); err != nil || info.IsDir() {
			return nil, huma.Error404NotFound("input file not found: " + req.Input)
		}

		job, err := s.options.Jobs.Submit(req)
		if err != nil {
			return nil, mapError(err)
		}
		return &models.JobResponse{Body: job}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/jobs",
		Summary:     "List Jobs",
		Description: "List queued, running and recently finished jobs",
		Tags:        []string{"jobs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.JobListResponse, error) {
		list := s.options.Jobs.List()
		return &models.JobListResponse{
			Body: models.JobListData{Jobs: list, Count: len(list)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{id}",
		Summary:     "Get Job",
		Description: "Get one job",
		Tags:        []string{"jobs"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.JobIDRequest) (*models.JobResponse, error) {
		job, ok := s.options.Jobs.Get(input.ID)
		if !ok {
			return nil, huma.Error404NotFound("job not found: " + input.ID)
		}
		return &models.JobResponse{Body: job}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "cancel-job",
		Method:      http.MethodDelete,
		Path:        "/api/jobs/{id}",
		Summary:     "Cancel Job",
		Description: "Cancel a queued or running job",
		Tags:        []string{"jobs"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(_ context.Context, input *models.JobIDRequest) (*models.JobResponse, error) {
		job, err := s.options.Jobs.Cancel(input.ID)
		if err != nil {
			return nil, mapError(err)
		}
		return &models.JobResponse{Body: job}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "preview-job",
		Method:      http.MethodPost,
		Path:        "/api/preview",
		Summary:     "Preview Job",
		Description: "Probe the input and report the layout, filter graph, bitrate and command a run would use",
		Tags:        []string{"jobs"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 422, 503},
	}, func(ctx context.Context, input *models.PreviewRequest) (*models.PreviewResponse, error) {
		req, err := s.buildRequest(input.Body)
		if err != nil {
			return nil, mapError(err)
		}
		preview, err := s.options.Planner.Preview(ctx, req)
		if err != nil {
			return nil, mapError(err)
		}
		cmd := ffmpeg.BuildPassArgs(preview.Engine, ffmpeg.PassSpec{
			Input:         preview.Input,
			Output:        preview.Output,
			Plan:          preview.Plan,
			Pass:          ffmpeg.PassFinal,
			PassLogPrefix: encode.PassLogPrefix(preview.Output),
		})
		return &models.PreviewResponse{
			Body: models.PreviewData{Preview: preview, Command: cmd},
		}, nil
	})
}

// buildRequest merges the server defaults, the named profile and explicit
// fields, in increasing precedence.
func (s *Server) buildRequest(p models.EncodeParams) (encode.Request, error) {
	prof := profiles.Profile{
		Name:         profiles.DefaultName,
		TopPx:        s.options.DefaultBezel.TopPx,
		BottomPx:     s.options.DefaultBezel.BottomPx,
		TargetSizeMB: s.options.DefaultSizeMB,
	}
	if p.Profile != "" {
		if s.options.Profiles == nil {
			if p.Profile != profiles.DefaultName {
				return encode.Request{}, profiles.ErrNotFound
			}
		} else {
			var err error
			if prof, err = s.options.Profiles.Get(p.Profile); err != nil {
				return encode.Request{}, err
			}
		}
	}
	prof = prof.With(profiles.Overrides{
		TopPx:        p.TopPx,
		BottomPx:     p.BottomPx,
		TargetSizeMB: p.TargetSizeMB,
	})

	output := p.Output
	if output == "" {
		dir := p.OutputDir
		if dir == "" {
			dir = s.options.DefaultOutputDir
		}
		if dir != "" {
			output = encode.ResolveOutputPath(p.Input, dir)
		}
	}

	req := encode.Request{
		Input:        p.Input,
		Output:       output,
		Bezel:        prof.Bezel(),
		TargetSizeMB: prof.TargetSize(),
	}
	if err := req.Bezel.Validate(); err != nil {
		return encode.Request{}, encode.NewError(encode.KindInvalidBezelSpec, "bezel values rejected", err)
	}
	return req, nil
}

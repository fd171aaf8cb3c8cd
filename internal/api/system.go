package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/debezel/internal/api/models"
	"github.com/smazurov/debezel/internal/encode"
	"github.com/smazurov/debezel/internal/geometry"
	"github.com/smazurov/debezel/internal/planner"
	"github.com/smazurov/debezel/internal/version"
)

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health Check",
		Description: "Check API health status",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{Status: "ok", Message: "API is healthy"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Get Version",
		Description: "Get application version and build information",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{Body: version.Get()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-capabilities",
		Method:      http.MethodGet,
		Path:        "/api/capabilities",
		Summary:     "Get Capabilities",
		Description: "Report whether ffmpeg is available and the fixed output parameters",
		Tags:        []string{"system"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.CapabilitiesResponse, error) {
		path, ok := s.options.Planner.Engine()
		return &models.CapabilitiesResponse{
			Body: models.CapabilitiesData{
				EngineAvailable: ok,
				EnginePath:      path,
				OutputWidth:     geometry.OutputWidth,
				OutputHeight:    geometry.OutputHeight,
				MinBitrateKbps:  planner.MinVideoBitrateKbps,
				MaxBitrateKbps:  planner.MaxVideoBitrateKbps,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-output-path",
		Method:      http.MethodGet,
		Path:        "/api/output-path",
		Summary:     "Resolve Output Path",
		Description: "Return the file a run of the given input would write",
		Tags:        []string{"system"},
		Security:    withAuth(),
		Errors:      []int{401, 422},
	}, func(_ context.Context, input *models.OutputPathRequest) (*models.OutputPathResponse, error) {
		dir := input.OutputDir
		if dir == "" {
			dir = s.options.DefaultOutputDir
		}
		return &models.OutputPathResponse{
			Body: models.OutputPathData{Output: encode.ResolveOutputPath(input.Input, dir)},
		}, nil
	})
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/debezel/internal/api/models"
	"github.com/smazurov/debezel/internal/profiles"
)

func (s *Server) registerProfileRoutes() {
	if s.options.Profiles == nil {
		return
	}
	store := s.options.Profiles

	huma.Register(s.api, huma.Operation{
		OperationID: "list-profiles",
		Method:      http.MethodGet,
		Path:        "/api/profiles",
		Summary:     "List Profiles",
		Description: "List wall profiles and suggested target sizes",
		Tags:        []string{"profiles"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ProfileListResponse, error) {
		return &models.ProfileListResponse{
			Body: models.ProfileListData{
				Profiles: store.All(),
				Presets:  profiles.SizePresets(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/api/profiles/{name}",
		Summary:     "Get Profile",
		Description: "Get one wall profile",
		Tags:        []string{"profiles"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.ProfileNameRequest) (*models.ProfileResponse, error) {
		p, err := store.Get(input.Name)
		if err != nil {
			return nil, mapError(err)
		}
		return &models.ProfileResponse{Body: p}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "put-profile",
		Method:      http.MethodPut,
		Path:        "/api/profiles/{name}",
		Summary:     "Save Profile",
		Description: "Create or replace a wall profile",
		Tags:        []string{"profiles"},
		Security:    withAuth(),
		Errors:      []int{401, 422},
	}, func(_ context.Context, input *models.ProfilePutRequest) (*models.ProfileResponse, error) {
		p := profiles.Profile{
			Name:         input.Name,
			Description:  input.Body.Description,
			TopPx:        input.Body.TopPx,
			BottomPx:     input.Body.BottomPx,
			TargetSizeMB: input.Body.TargetSizeMB,
		}
		if err := store.Put(p); err != nil {
			return nil, mapError(err)
		}
		s.logger.Info("Profile saved", "name", p.Name)
		return &models.ProfileResponse{Body: p}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-profile",
		Method:        http.MethodDelete,
		Path:          "/api/profiles/{name}",
		Summary:       "Delete Profile",
		Description:   "Delete a wall profile",
		Tags:          []string{"profiles"},
		DefaultStatus: http.StatusNoContent,
		Security:      withAuth(),
		Errors:        []int{401, 404},
	}, func(_ context.Context, input *models.ProfileNameRequest) (*struct{}, error) {
		if err := store.Delete(input.Name); err != nil {
			return nil, mapError(err)
		}
		s.logger.Info("Profile deleted", "name", input.Name)
		return nil, nil
	})
}

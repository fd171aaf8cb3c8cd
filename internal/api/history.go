package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/debezel/internal/api/models"
)

func (s *Server) registerHistoryRoutes() {
	if s.options.History == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "list-history",
		Method:      http.MethodGet,
		Path:        "/api/history",
		Summary:     "Run History",
		Description: "List finished runs, newest first",
		Tags:        []string{"history"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *models.HistoryRequest) (*models.HistoryResponse, error) {
		entries, err := s.options.History.Recent(ctx, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to read history", err)
		}
		return &models.HistoryResponse{
			Body: models.HistoryData{Entries: entries, Count: len(entries)},
		}, nil
	})
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerStatsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Catalog statistics",
		Description: "Returns catalog totals and live subscriber counts",
		Tags:        []string{"Stats"},
	}, s.handleGetStats)
}

// StatsResponse contains catalog totals.
type StatsResponse struct {
	Books         int `json:"books" doc:"Number of books"`
	Authors       int `json:"authors" doc:"Number of authors"`
	Genres        int `json:"genres" doc:"Number of distinct genres"`
	Subscribers   int `json:"subscribers" doc:"Open event bus subscriptions"`
	StreamClients int `json:"stream_clients" doc:"Connected SSE clients"`
}

// StatsOutput wraps the stats response for Huma.
type StatsOutput struct {
	Body StatsResponse
}

func (s *Server) handleGetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	books, err := s.services.Catalog.BookCount(ctx)
	if err != nil {
		return nil, err
	}
	authors, err := s.services.Catalog.AuthorCount(ctx)
	if err != nil {
		return nil, err
	}
	genres, err := s.services.Catalog.AllGenres(ctx)
	if err != nil {
		return nil, err
	}

	resp := StatsResponse{
		Books:       books,
		Authors:     authors,
		Genres:      len(genres),
		Subscribers: s.services.Bus.SubscriberCount(),
	}
	if s.services.Streams != nil {
		resp.StreamClients = s.services.Streams.ClientCount()
	}
	return &StatsOutput{Body: resp}, nil
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/libraryapp/library-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search books",
		Description: "Full-text search over book titles, author names and genres",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput contains parameters for searching the catalog.
type SearchInput struct {
	Query  string `query:"q" required:"true" minLength:"1" maxLength:"200" doc:"Search query"`
	Genres string `query:"genres" maxLength:"200" doc:"Comma-separated genres to filter by"`
	Limit  int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset int    `query:"offset" minimum:"0" doc:"Pagination offset"`
}

// SearchBook is a matching book with its author name resolved.
type SearchBook struct {
	ID         string            `json:"id" doc:"Book ID"`
	Title      string            `json:"title" doc:"Book title"`
	Published  int               `json:"published" doc:"Publication year"`
	Genres     []string          `json:"genres" doc:"Genre tags"`
	Author     SearchAuthor      `json:"author" doc:"Book author"`
	Score      float64           `json:"score" doc:"Search relevance score"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Highlighted matches"`
}

// SearchAuthor names the author of a search hit.
type SearchAuthor struct {
	Name string `json:"name" doc:"Author name"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value" doc:"Facet value"`
	Count int    `json:"count" doc:"Number of matches"`
}

// SearchResponse contains search results.
type SearchResponse struct {
	Query  string       `json:"query" doc:"Original search query"`
	Total  uint64       `json:"total" doc:"Total matches"`
	TookMs int64        `json:"took_ms" doc:"Search duration in milliseconds"`
	Books  []SearchBook `json:"books" doc:"Matching books"`
	Genres []FacetCount `json:"genres,omitempty" doc:"Genre facet counts"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	if s.services.Search == nil {
		return nil, huma.Error503ServiceUnavailable("Search is disabled")
	}

	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.Offset = input.Offset
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Genres != "" {
		for g := range strings.SplitSeq(input.Genres, ",") {
			if g = strings.TrimSpace(g); g != "" {
				params.Genres = append(params.Genres, g)
			}
		}
	}

	s.logger.Debug("Search request received",
		"query", params.Query,
		"genres", params.Genres,
		"limit", params.Limit)

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		return nil, huma.Error500InternalServerError("Search failed", err)
	}

	resp := SearchResponse{
		Query:  result.Query,
		Total:  result.Total,
		TookMs: result.TookMs,
		Books:  make([]SearchBook, 0, len(result.Hits)),
	}
	for _, hit := range result.Hits {
		resp.Books = append(resp.Books, SearchBook{
			ID:         hit.ID,
			Title:      hit.Title,
			Published:  hit.Published,
			Genres:     hit.Genres,
			Author:     SearchAuthor{Name: hit.Author},
			Score:      hit.Score,
			Highlights: hit.Highlights,
		})
	}
	for _, f := range result.Genres {
		resp.Genres = append(resp.Genres, FacetCount{Value: f.Value, Count: f.Count})
	}

	return &SearchOutput{Body: resp}, nil
}

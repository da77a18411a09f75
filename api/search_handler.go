package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/webtechie/docschat/pkg/index"
	"github.com/webtechie/docschat/pkg/vector"
)

// SearchResult is one retrieved passage.
type SearchResult struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Text    string  `json:"text"`
	Link    string  `json:"link"`
	GroupID string  `json:"group_id"`
}

// SearchResponse is the body of GET /v1/search responses.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 10): number of results to return
//   - min_score (optional, default 0.7): relevance threshold
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	topK := index.DefaultMaxResults
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	minScore := index.DefaultMinScore
	if minStr := c.Query("min_score"); minStr != "" {
		parsed, err := strconv.ParseFloat(minStr, 32)
		if err != nil || parsed < 0 || parsed > 1 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "min_score must be between 0 and 1",
			})
		}
		minScore = float32(parsed)
	}

	matches, err := s.index.Search(c.Context(), query, topK, minScore)
	if err != nil {
		if errors.Is(err, index.ErrNotReady) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
				Error: "index is not ready yet",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(searchResponse(query, matches))
}

func searchResponse(query string, matches []vector.Match) SearchResponse {
	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			ID:      m.ID,
			Score:   m.Score,
			Text:    m.Text,
			Link:    m.Link,
			GroupID: m.GroupID,
		}
	}

	return SearchResponse{
		Query:   query,
		Results: results,
		Count:   len(results),
	}
}

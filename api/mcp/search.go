package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/index"
)

var (
	searchToolName    = "docs_search"
	searchDescription = "Search the documentation corpus using semantic search. Returns the most relevant documentation passages for the query text, each with its source link and group."
)

// SearchInput represents the input arguments for the docs_search tool.
type SearchInput struct {
	Query    string  `json:"query" jsonschema:"the search query text to find relevant documentation passages"`
	TopK     int     `json:"top_k,omitempty" jsonschema:"number of results to return (default: 10)"`
	MinScore float32 `json:"min_score,omitempty" jsonschema:"relevance threshold between 0 and 1 (default: 0.7)"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Text    string  `json:"text"`
	Link    string  `json:"link"`
	GroupID string  `json:"group_id"`
}

// SearchOutput represents the output of the docs_search tool.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// handleSearch processes a docs_search request.
func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	topK := input.TopK
	if topK <= 0 {
		topK = index.DefaultMaxResults
	}
	minScore := input.MinScore
	if minScore <= 0 {
		minScore = index.DefaultMinScore
	}

	logger.Debug("MCP search request",
		zap.String("query", input.Query),
		zap.Int("topK", topK),
	)

	matches, err := s.config.Index.Search(ctx, input.Query, topK, minScore)
	if err != nil {
		logger.Error("failed to search index", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to search documentation: %v", err)},
			},
		}, SearchOutput{}, nil
	}

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

	output := SearchOutput{
		Query:   input.Query,
		Results: results,
		Count:   len(results),
	}

	return nil, output, nil
}

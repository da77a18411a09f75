package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/action"
	"github.com/webtechie/docschat/pkg/answer"
)

var (
	askToolName    = "docs_ask"
	askDescription = "Ask a question about the documentation. The question is answered from the documentation corpus only; the response includes the generated answer and the links of the passages it was grounded on."
)

// AskInput represents the input arguments for the docs_ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the documentation"`
}

// AskOutput represents the output of the docs_ask tool.
type AskOutput struct {
	ActionID     string `json:"action_id"`
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	RelatedLinks string `json:"related_links,omitempty"`
	Status       string `json:"status"`
}

// handleAsk answers a question synchronously: tool callers wait for the full
// answer rather than polling an action.
func (s *Server) handleAsk(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	if input.Question == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "question is required"},
			},
		}, AskOutput{}, nil
	}

	logger.Debug("MCP ask request", zap.String("question", input.Question))

	a := action.NewSearchAction(input.Question)
	s.config.Controller.Ask(ctx, a)

	// Ask returns once the terminal state is queued; the answer text settles
	// when the finished flag flips.
	waitFinished(a)

	output := AskOutput{
		ActionID:     a.ID().String(),
		Question:     a.Question(),
		Answer:       a.Answer(),
		RelatedLinks: a.RelatedLinks(),
		Status:       string(s.config.Controller.State(a.ID())),
	}

	if s.config.Controller.State(a.ID()) == answer.StateFailed {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: a.Answer()},
			},
		}, output, nil
	}

	return nil, output, nil
}

// waitFinished blocks until the action's finished flag flips. The flip is
// already queued when Ask returns, so this resolves as soon as the
// dispatcher catches up.
func waitFinished(a *action.SearchAction) {
	done := make(chan struct{})
	a.Subscribe(func(m action.Mutation) {
		if m.Kind == action.MutationFinished {
			close(done)
		}
	})
	if a.Finished() {
		return
	}
	<-done
}

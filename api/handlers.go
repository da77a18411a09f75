package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/webtechie/docschat/pkg/action"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// ActionResponse is the JSON view of one search action.
type ActionResponse struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Question     string    `json:"question"`
	RelatedLinks string    `json:"related_links"`
	Answer       string    `json:"answer"`
	Finished     bool      `json:"finished"`
	Status       string    `json:"status"`
}

func (s *Server) actionResponse(a *action.SearchAction) ActionResponse {
	return ActionResponse{
		ID:           a.ID().String(),
		Timestamp:    a.Timestamp(),
		Question:     a.Question(),
		RelatedLinks: a.RelatedLinks(),
		Answer:       a.Answer(),
		Finished:     a.Finished(),
		Status:       string(s.controller.State(a.ID())),
	}
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleAsk accepts a question and starts answering it in the background.
// The response carries the action ID; clients poll GET /v1/actions/:id to
// watch the answer stream in.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "question is required"})
	}

	// The answer outlives this request; it must not inherit the request
	// context.
	a := s.controller.Submit(context.Background(), req.Question)

	return c.Status(fiber.StatusAccepted).JSON(s.actionResponse(a))
}

// handleListActions returns all actions, oldest first.
func (s *Server) handleListActions(c *fiber.Ctx) error {
	actions := s.controller.History().List()

	out := make([]ActionResponse, len(actions))
	for i, a := range actions {
		out[i] = s.actionResponse(a)
	}

	return c.JSON(map[string]any{
		"count":   len(out),
		"actions": out,
	})
}

// handleGetAction returns a single action by ID.
func (s *Server) handleGetAction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid action id"})
	}

	a, ok := s.controller.History().Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "action not found"})
	}

	return c.JSON(s.actionResponse(a))
}

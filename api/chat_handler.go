package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/scholar/pkg/router"
	"github.com/papercomputeco/scholar/pkg/session"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Question string `json:"question"`

	// Mode is "grounded" (default) or "open-domain". The aliases
	// "syllabus" and "internet" are accepted.
	Mode  string `json:"mode,omitempty"`
	Style string `json:"style,omitempty"`

	// SessionID records the exchange in a chat session, creating it if
	// needed. Empty skips session bookkeeping.
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the routed answer plus its session.
type ChatResponse struct {
	router.Response
	SessionID string `json:"session_id,omitempty"`
}

// handleChat handles POST /v1/chat. A grounded question the corpus cannot
// answer comes back as needs_fallback; the client re-asks in open-domain
// mode after the user agrees. The question is recorded once, on the
// grounded ask, so the re-ask does not duplicate it.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return badRequest(c, "question is required")
	}

	mode, err := router.ParseMode(req.Mode)
	if err != nil {
		return s.writeError(c, err)
	}

	ctx := c.UserContext()

	if req.SessionID != "" {
		if _, err := s.config.Sessions.Open(ctx, req.SessionID, req.Question); err != nil {
			return s.writeError(c, err)
		}
		if mode == router.ModeGrounded {
			turn := session.Turn{Role: session.RoleUser, Content: req.Question}
			if err := s.config.Sessions.AppendTurn(ctx, req.SessionID, turn); err != nil {
				return s.writeError(c, err)
			}
		}
	}

	resp, err := s.config.Router.Ask(ctx, router.Request{
		Question: req.Question,
		Mode:     mode,
		Style:    req.Style,
	})
	if err != nil {
		return s.writeError(c, err)
	}

	if req.SessionID != "" && resp.Status == router.StatusSuccess {
		turn := session.Turn{Role: session.RoleAssistant, Content: resp.Answer, Source: string(resp.Source)}
		if err := s.config.Sessions.AppendTurn(ctx, req.SessionID, turn); err != nil {
			return s.writeError(c, err)
		}
	}

	return c.JSON(ChatResponse{Response: *resp, SessionID: req.SessionID})
}

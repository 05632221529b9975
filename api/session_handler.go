package api

import (
	"github.com/gofiber/fiber/v2"
)

// RenameRequest is the body of PUT /v1/sessions/:id/title.
type RenameRequest struct {
	Title string `json:"title"`
}

// handleListSessions handles GET /v1/sessions.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	list, err := s.config.Sessions.List(c.UserContext())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(list)
}

// handleCreateSession handles POST /v1/sessions.
func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	sess, err := s.config.Sessions.Create(c.UserContext())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sess)
}

// handleGetSession handles GET /v1/sessions/:id.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sess, err := s.config.Sessions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(sess)
}

// handleRenameSession handles PUT /v1/sessions/:id/title.
func (s *Server) handleRenameSession(c *fiber.Ctx) error {
	var req RenameRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := s.config.Sessions.Rename(c.UserContext(), c.Params("id"), req.Title); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleClearSessions handles DELETE /v1/sessions.
func (s *Server) handleClearSessions(c *fiber.Ctx) error {
	if err := s.config.Sessions.Clear(c.UserContext()); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/grounding"
	"github.com/papercomputeco/scholar/pkg/llm"
	"github.com/papercomputeco/scholar/pkg/pipeline"
	"github.com/papercomputeco/scholar/pkg/router"
	"github.com/papercomputeco/scholar/pkg/session"
	"github.com/papercomputeco/scholar/pkg/vector"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`

	// Status is set to "no_corpus" when the request needs a corpus.
	Status string `json:"status,omitempty"`
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}

// writeError maps a domain error to a status code. Error text passes
// through grounding.Scrub so sentinel tokens never reach clients.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := ErrorResponse{Error: grounding.Scrub(err.Error())}

	switch {
	case errors.Is(err, corpus.ErrNotLoaded):
		code = fiber.StatusBadRequest
		body.Status = string(router.StatusNoCorpus)
		body.Error = router.NoCorpusMessage
	case errors.Is(err, llm.ErrModel), errors.Is(err, vector.ErrEmbedding):
		// Upstream model failures win over the ingestion wrapper.
		code = fiber.StatusBadGateway
	case errors.Is(err, corpus.ErrIngestion),
		errors.Is(err, pipeline.ErrEmptyInput),
		errors.Is(err, router.ErrInvalidMode),
		errors.Is(err, session.ErrInvalidTitle):
		code = fiber.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		code = fiber.StatusNotFound
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	return c.Status(code).JSON(body)
}

package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	apisearch "github.com/papercomputeco/scholar/api/search"
)

// handleSearchEndpoint handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 4): number of passages to return
func (s *Server) handleSearchEndpoint(c *fiber.Ctx) error {
	if s.config.Searcher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "search is not configured",
		})
	}

	query := c.Query("query")
	if query == "" {
		return badRequest(c, "query parameter is required")
	}

	topK := 0
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "top_k must be a positive integer")
		}
		topK = parsed
	}

	output, err := apisearch.Search(c.UserContext(), query, topK, s.config.Searcher, s.logger)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(output)
}

package api

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/pipeline"
)

// ExamRequest is the body of POST /v1/exam.
type ExamRequest struct {
	Topic string `json:"topic"`
}

// SolveRequest is the JSON body of POST /v1/pyq. A multipart upload under
// "file" is accepted instead.
type SolveRequest struct {
	Text string `json:"text"`
}

// SolveResponse lists the solved questions in extraction order.
type SolveResponse struct {
	Solutions []pipeline.Solution `json:"solutions"`
}

// TranscriptRequest is the body of POST /v1/transcript.
type TranscriptRequest struct {
	URL string `json:"url"`
}

// paperField is the multipart field carrying a question paper.
const paperField = "file"

// handleExam handles POST /v1/exam.
func (s *Server) handleExam(c *fiber.Ctx) error {
	if s.config.Exams == nil {
		return notConfigured(c, "exam generation")
	}

	var req ExamRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Topic) == "" {
		return badRequest(c, "topic is required")
	}

	result, err := s.config.Exams.Generate(c.UserContext(), req.Topic)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(result)
}

// handleSolve handles POST /v1/pyq.
func (s *Server) handleSolve(c *fiber.Ctx) error {
	if s.config.Solver == nil {
		return notConfigured(c, "question paper solving")
	}

	var text string
	if isMultipart(c) {
		fh, err := c.FormFile(paperField)
		if err != nil {
			return badRequest(c, "file is required")
		}
		if !corpus.IsTextFile(fh.Filename) {
			return badRequest(c, "unsupported file type: "+fh.Filename+" (only .txt and .md are accepted)")
		}
		f, err := fh.Open()
		if err != nil {
			return badRequest(c, "reading "+fh.Filename)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return badRequest(c, "reading "+fh.Filename)
		}
		text = string(data)
	} else {
		var req SolveRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		text = req.Text
	}

	solutions, err := s.config.Solver.Solve(c.UserContext(), text)
	if err != nil {
		return s.writeError(c, err)
	}
	if solutions == nil {
		solutions = []pipeline.Solution{}
	}
	return c.JSON(SolveResponse{Solutions: solutions})
}

// handleTranscript handles POST /v1/transcript. A caption fetch failure is
// a 200 with status fetch_failed.
func (s *Server) handleTranscript(c *fiber.Ctx) error {
	if s.config.Transcripts == nil {
		return notConfigured(c, "transcript analysis")
	}

	var req TranscriptRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.URL) == "" {
		return badRequest(c, "url is required")
	}

	result, err := s.config.Transcripts.Analyze(c.UserContext(), req.URL)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(result)
}

func notConfigured(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: what + " is not configured"})
}

package api

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/corpus"
)

// CorpusStatus describes the active corpus.
type CorpusStatus struct {
	Loaded     bool       `json:"loaded"`
	Version    int64      `json:"version,omitempty"`
	Passages   int        `json:"passages"`
	Dimensions int        `json:"dimensions,omitempty"`
	Sources    []string   `json:"sources,omitempty"`
	IngestedAt *time.Time `json:"ingested_at,omitempty"`
	Snapshot   string     `json:"snapshot,omitempty"`
}

// IngestRequest is the JSON body of POST /v1/corpus.
type IngestRequest struct {
	Documents []IngestDocument `json:"documents"`
}

// IngestDocument is extracted text. Text is split into pages on form feeds;
// Pages, when given, is used as is.
type IngestDocument struct {
	Source string   `json:"source"`
	Text   string   `json:"text,omitempty"`
	Pages  []string `json:"pages,omitempty"`
}

// IngestResponse is returned after a successful ingest.
type IngestResponse struct {
	Status string       `json:"status"`
	Corpus CorpusStatus `json:"corpus"`
}

// uploadField is the multipart field carrying text files.
const uploadField = "files"

// handleCorpusStatus handles GET /v1/corpus.
func (s *Server) handleCorpusStatus(c *fiber.Ctx) error {
	current, ok := s.config.Corpus.Current()
	if !ok {
		return c.JSON(CorpusStatus{Loaded: false})
	}
	return c.JSON(s.statusOf(current))
}

// handleIngest handles POST /v1/corpus with either a JSON IngestRequest or
// a multipart form of text files under "files". The new corpus replaces the
// active one.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	var docs []corpus.Document
	var err error

	if isMultipart(c) {
		docs, err = documentsFromForm(c)
	} else {
		docs, err = documentsFromJSON(c)
	}
	if err != nil {
		return badRequest(c, err.Error())
	}

	current, err := s.config.Corpus.Ingest(c.UserContext(), docs)
	if err != nil {
		return s.writeError(c, err)
	}

	s.logger.Debug("ingest request complete",
		zap.Int("documents", len(docs)),
		zap.Int64("version", current.Version),
	)

	return c.JSON(IngestResponse{Status: "success", Corpus: s.statusOf(current)})
}

func (s *Server) statusOf(cur *corpus.Corpus) CorpusStatus {
	at := cur.IngestedAt
	return CorpusStatus{
		Loaded:     true,
		Version:    cur.Version,
		Passages:   cur.Passages(),
		Dimensions: cur.Index.Dimensions(),
		Sources:    cur.Sources,
		IngestedAt: &at,
		Snapshot:   s.config.SnapshotLocation,
	}
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

func documentsFromJSON(c *fiber.Ctx) ([]corpus.Document, error) {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errors.New("invalid request body")
	}

	docs := make([]corpus.Document, 0, len(req.Documents))
	for i, d := range req.Documents {
		source := d.Source
		if source == "" {
			source = fmt.Sprintf("document-%d", i+1)
		}
		if len(d.Pages) > 0 {
			docs = append(docs, corpus.Document{Source: source, Pages: d.Pages})
			continue
		}
		docs = append(docs, corpus.NewDocument(source, d.Text))
	}
	return docs, nil
}

func documentsFromForm(c *fiber.Ctx) ([]corpus.Document, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errors.New("invalid multipart form")
	}

	files := form.File[uploadField]
	docs := make([]corpus.Document, 0, len(files))
	for _, fh := range files {
		if !corpus.IsTextFile(fh.Filename) {
			return nil, fmt.Errorf("unsupported file type: %s (only .txt and .md are accepted)", fh.Filename)
		}

		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("reading %s", fh.Filename)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s", fh.Filename)
		}

		docs = append(docs, corpus.NewDocument(fh.Filename, string(data)))
	}
	return docs, nil
}

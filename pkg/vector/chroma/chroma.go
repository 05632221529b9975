// Package chroma persists a vector index as a Chroma collection.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for corpus snapshots.
	DefaultCollectionName = "scholar"

	// Schema tags collections written by this package.
	Schema = "scholar.chroma.v1"

	positionKey   = "_position"
	schemaKey     = "scholar_schema"
	countKey      = "scholar_count"
	dimensionsKey = "scholar_dimensions"

	stagingSuffix  = "-staging"
	previousSuffix = "-previous"

	basePath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Snapshotter implements vector.Snapshotter using Chroma's REST API.
//
// Save writes into a staging collection and only renames it over the live
// one once every record is in, so a failed Save leaves the previous
// snapshot loadable. The collection metadata records schema, passage count
// and dimensions; Load refuses anything that does not match them.
type Snapshotter struct {
	baseURL        string
	collectionName string
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma snapshotter.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string
}

// NewSnapshotter creates a new Chroma snapshotter. It does not contact the
// server until Save or Load.
func NewSnapshotter(c Config, logger *zap.Logger) (*Snapshotter, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	return &Snapshotter{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}, nil
}

// Location returns the collection URL.
func (s *Snapshotter) Location() string {
	return s.collectionURL(s.collectionName)
}

func (s *Snapshotter) collectionURL(name string) string {
	return s.baseURL + basePath + "/" + name
}

// Save replaces the collection with the passages of idx.
func (s *Snapshotter) Save(ctx context.Context, idx *vector.Index) error {
	passages := idx.Passages()
	staging := s.collectionName + stagingSuffix
	previous := s.collectionName + previousSuffix

	// Leftovers from an interrupted Save.
	if err := s.deleteCollection(ctx, staging); err != nil {
		return fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}

	stagingID, err := s.createCollection(ctx, staging, map[string]any{
		schemaKey:     Schema,
		countKey:      len(passages),
		dimensionsKey: idx.Dimensions(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}

	if err := s.addPassages(ctx, stagingID, passages); err != nil {
		if derr := s.deleteCollection(ctx, staging); derr != nil {
			s.logger.Warn("could not drop staging collection", zap.String("collection", staging), zap.Error(derr))
		}
		return fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}

	live, found, err := s.getCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}

	if found {
		if err := s.deleteCollection(ctx, previous); err != nil {
			return fmt.Errorf("%w: %v", vector.ErrPersistence, err)
		}
		if err := s.renameCollection(ctx, live.ID, previous); err != nil {
			return fmt.Errorf("%w: moving live collection aside: %v", vector.ErrPersistence, err)
		}
	}

	if err := s.renameCollection(ctx, stagingID, s.collectionName); err != nil {
		if found {
			if rerr := s.renameCollection(ctx, live.ID, s.collectionName); rerr != nil {
				s.logger.Error("could not restore live collection",
					zap.String("collection", previous), zap.Error(rerr))
			}
		}
		return fmt.Errorf("%w: promoting staging collection: %v", vector.ErrPersistence, err)
	}

	if found {
		if err := s.deleteCollection(ctx, previous); err != nil {
			s.logger.Warn("could not drop previous collection", zap.String("collection", previous), zap.Error(err))
		}
	}

	s.logger.Debug("saved index snapshot to chroma",
		zap.String("collection", s.collectionName),
		zap.Int("passages", len(passages)),
	)

	return nil
}

func (s *Snapshotter) addPassages(ctx context.Context, collectionID string, passages []vector.Passage) error {
	reqBody := chromaAddRequest{
		IDs:        make([]string, len(passages)),
		Embeddings: make([][]float32, len(passages)),
		Metadatas:  make([]map[string]any, len(passages)),
		Documents:  make([]string, len(passages)),
	}
	for i, p := range passages {
		reqBody.IDs[i] = fmt.Sprintf("p-%06d", i)
		reqBody.Embeddings[i] = p.Vector
		reqBody.Documents[i] = p.Text

		md := map[string]any{positionKey: i}
		for k, v := range p.Metadata {
			md[k] = v
		}
		reqBody.Metadatas[i] = md
	}

	resp, err := s.post(ctx, basePath+"/"+collectionID+"/add", reqBody)
	if err != nil {
		return fmt.Errorf("sending add request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to add passages: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Load reads the whole collection back in saved order.
func (s *Snapshotter) Load(ctx context.Context) (*vector.Index, error) {
	collection, found, err := s.getCollection(ctx, s.collectionName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}
	if !found {
		return nil, vector.ErrNoSnapshot
	}

	count, dims, err := checkCollectionMetadata(collection.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %v", vector.ErrPersistence, s.collectionName, err)
	}

	resp, err := s.post(ctx, basePath+"/"+collection.ID+"/get", chromaGetRequest{
		Include: []string{"documents", "metadatas", "embeddings"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: sending get request: %v", vector.ErrPersistence, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: failed to get passages: status %d: %s", vector.ErrPersistence, resp.StatusCode, string(body))
	}

	var getResp chromaGetResponse
	if err := json.NewDecoder(resp.Body).Decode(&getResp); err != nil {
		return nil, fmt.Errorf("%w: decoding get response: %v", vector.ErrPersistence, err)
	}

	if len(getResp.IDs) != count {
		return nil, fmt.Errorf("%w: collection holds %d passages, snapshot recorded %d",
			vector.ErrPersistence, len(getResp.IDs), count)
	}
	if len(getResp.Documents) != count || len(getResp.Embeddings) != count || len(getResp.Metadatas) != count {
		return nil, fmt.Errorf("%w: incomplete collection payload", vector.ErrPersistence)
	}

	type positioned struct {
		pos     int
		passage vector.Passage
	}
	rows := make([]positioned, count)
	for i := range getResp.IDs {
		pos, md, err := splitMetadata(getResp.Metadatas[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", vector.ErrPersistence, err)
		}
		rows[i] = positioned{
			pos: pos,
			passage: vector.Passage{
				Text:     getResp.Documents[i],
				Metadata: md,
				Vector:   getResp.Embeddings[i],
			},
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].pos < rows[j].pos })

	passages := make([]vector.Passage, count)
	for i, r := range rows {
		if r.pos != i {
			return nil, fmt.Errorf("%w: passage positions are not contiguous at %d", vector.ErrPersistence, i)
		}
		passages[i] = r.passage
	}

	idx, err := vector.Build(passages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}
	if idx.Dimensions() != dims {
		return nil, fmt.Errorf("%w: passages have %d dimensions, snapshot recorded %d",
			vector.ErrPersistence, idx.Dimensions(), dims)
	}

	s.logger.Debug("loaded index snapshot from chroma",
		zap.String("collection", s.collectionName),
		zap.Int("passages", idx.Len()),
	)

	return idx, nil
}

// checkCollectionMetadata validates the schema tag and returns the recorded
// passage count and dimensions.
func checkCollectionMetadata(md map[string]any) (int, int, error) {
	schema, _ := md[schemaKey].(string)
	if schema != Schema {
		return 0, 0, fmt.Errorf("unsupported snapshot schema %q", schema)
	}

	count, ok := md[countKey].(float64)
	if !ok || count < 1 || count != float64(int(count)) {
		return 0, 0, fmt.Errorf("invalid passage count %v", md[countKey])
	}
	dims, ok := md[dimensionsKey].(float64)
	if !ok || dims < 1 || dims != float64(int(dims)) {
		return 0, 0, fmt.Errorf("invalid dimensions %v", md[dimensionsKey])
	}

	return int(count), int(dims), nil
}

// splitMetadata separates the stored position from user metadata.
func splitMetadata(raw map[string]any) (int, map[string]string, error) {
	posVal, ok := raw[positionKey].(float64)
	if !ok {
		return 0, nil, errors.New("passage is missing its position")
	}

	var md map[string]string
	for k, v := range raw {
		if k == positionKey {
			continue
		}
		if md == nil {
			md = map[string]string{}
		}
		switch tv := v.(type) {
		case string:
			md[k] = tv
		case float64:
			md[k] = strconv.FormatFloat(tv, 'f', -1, 64)
		default:
			md[k] = fmt.Sprint(tv)
		}
	}
	return int(posVal), md, nil
}

func (s *Snapshotter) getCollection(ctx context.Context, name string) (chromaCollection, bool, error) {
	var collection chromaCollection

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.collectionURL(name), nil)
	if err != nil {
		return collection, false, fmt.Errorf("creating get request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return collection, false, fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return collection, false, fmt.Errorf("decoding collection response: %w", err)
		}
		return collection, true, nil
	case http.StatusNotFound:
		return collection, false, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return collection, false, fmt.Errorf("failed to get collection %s: status %d: %s", name, resp.StatusCode, string(body))
	}
}

func (s *Snapshotter) createCollection(ctx context.Context, name string, metadata map[string]any) (string, error) {
	resp, err := s.post(ctx, basePath, chromaCreateRequest{Name: name, Metadata: metadata})
	if err != nil {
		return "", fmt.Errorf("sending create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection %s: status %d: %s", name, resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

func (s *Snapshotter) renameCollection(ctx context.Context, collectionID, newName string) error {
	body, err := json.Marshal(chromaUpdateRequest{NewName: newName})
	if err != nil {
		return fmt.Errorf("marshaling update request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.collectionURL(collectionID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending update request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to rename collection to %s: status %d: %s", newName, resp.StatusCode, string(raw))
	}
	return nil
}

func (s *Snapshotter) deleteCollection(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.collectionURL(name), nil)
	if err != nil {
		return fmt.Errorf("creating delete request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending delete request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to delete collection %s: status %d: %s", name, resp.StatusCode, string(body))
	}
	return nil
}

func (s *Snapshotter) post(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.httpClient.Do(req)
}

var _ vector.Snapshotter = (*Snapshotter)(nil)

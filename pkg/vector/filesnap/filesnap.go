// Package filesnap persists a vector index as a single checksummed JSON file.
package filesnap

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/vector"
)

const (
	// Schema tags the snapshot layout. Snapshots with another tag are rejected.
	Schema = "scholar.corpus.v1"

	// DefaultFileName is used when Config.Path names a directory.
	DefaultFileName = "index.json"
)

// Config holds configuration for the file snapshotter.
type Config struct {
	// Path is the snapshot file. If it names an existing directory,
	// DefaultFileName is appended.
	Path string
}

// Snapshotter implements vector.Snapshotter on the local filesystem.
type Snapshotter struct {
	path   string
	logger *zap.Logger
}

type snapshot struct {
	Schema     string          `json:"schema"`
	SavedAt    time.Time       `json:"saved_at"`
	Dimensions int             `json:"dimensions"`
	Count      int             `json:"count"`
	Checksum   string          `json:"checksum"`
	Passages   json.RawMessage `json:"passages"`
}

// NewSnapshotter creates a file snapshotter.
func NewSnapshotter(c Config, logger *zap.Logger) (*Snapshotter, error) {
	if c.Path == "" {
		return nil, errors.New("snapshot path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	path := c.Path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}

	return &Snapshotter{path: path, logger: logger}, nil
}

// Location returns the snapshot file path.
func (s *Snapshotter) Location() string {
	return s.path
}

// Save writes the index to a temporary file and renames it over the
// previous snapshot.
func (s *Snapshotter) Save(_ context.Context, idx *vector.Index) error {
	payload, err := json.Marshal(idx.Passages())
	if err != nil {
		return fmt.Errorf("%w: marshaling passages: %v", vector.ErrPersistence, err)
	}

	data, err := json.Marshal(snapshot{
		Schema:     Schema,
		SavedAt:    time.Now().UTC(),
		Dimensions: idx.Dimensions(),
		Count:      idx.Len(),
		Checksum:   checksum(payload),
		Passages:   payload,
	})
	if err != nil {
		return fmt.Errorf("%w: marshaling snapshot: %v", vector.ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating snapshot dir: %v", vector.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", vector.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing snapshot: %v", vector.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing snapshot: %v", vector.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replacing snapshot: %v", vector.ErrPersistence, err)
	}

	s.logger.Debug("saved index snapshot",
		zap.String("path", s.path),
		zap.Int("passages", idx.Len()),
	)

	return nil
}

// Load reads and verifies the snapshot.
func (s *Snapshotter) Load(_ context.Context) (*vector.Index, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, vector.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading snapshot: %v", vector.ErrPersistence, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decoding snapshot: %v", vector.ErrPersistence, err)
	}

	if snap.Schema != Schema {
		return nil, fmt.Errorf("%w: unsupported schema %q", vector.ErrPersistence, snap.Schema)
	}
	if checksum(snap.Passages) != snap.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", vector.ErrPersistence)
	}

	var passages []vector.Passage
	if err := json.Unmarshal(snap.Passages, &passages); err != nil {
		return nil, fmt.Errorf("%w: decoding passages: %v", vector.ErrPersistence, err)
	}
	if len(passages) != snap.Count {
		return nil, fmt.Errorf("%w: expected %d passages, found %d", vector.ErrPersistence, snap.Count, len(passages))
	}

	idx, err := vector.Build(passages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}
	if idx.Dimensions() != snap.Dimensions {
		return nil, fmt.Errorf("%w: expected %d dimensions, found %d", vector.ErrPersistence, snap.Dimensions, idx.Dimensions())
	}

	s.logger.Debug("loaded index snapshot",
		zap.String("path", s.path),
		zap.Int("passages", idx.Len()),
	)

	return idx, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

var _ vector.Snapshotter = (*Snapshotter)(nil)

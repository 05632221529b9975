// Package sqlitesnap persists a vector index in a SQLite database file.
package sqlitesnap

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/vector"
)

// Schema tags the snapshot layout stored in the meta table.
const Schema = "scholar.corpus.v1"

// Config holds configuration for the SQLite snapshotter.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// Snapshotter implements vector.Snapshotter using SQLite.
type Snapshotter struct {
	path   string
	logger *zap.Logger
}

// NewSnapshotter creates a new SQLite snapshotter.
func NewSnapshotter(c Config, logger *zap.Logger) (*Snapshotter, error) {
	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if c.DBPath == ":memory:" {
		return nil, errors.New("in-memory databases cannot hold snapshots")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Snapshotter{path: c.DBPath, logger: logger}, nil
}

// Location returns the database path.
func (s *Snapshotter) Location() string {
	return s.path
}

// Save writes the index into a fresh database beside the target and renames
// it into place.
func (s *Snapshotter) Save(ctx context.Context, idx *vector.Index) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating snapshot dir: %v", vector.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.db")
	if err != nil {
		return fmt.Errorf("%w: creating temp database: %v", vector.ErrPersistence, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := writeSnapshot(ctx, tmpPath, idx); err != nil {
		return fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: replacing snapshot: %v", vector.ErrPersistence, err)
	}

	s.logger.Debug("saved index snapshot to sqlite",
		zap.String("db_path", s.path),
		zap.Int("passages", idx.Len()),
	)

	return nil
}

func writeSnapshot(ctx context.Context, path string, idx *vector.Index) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE passages (
			position INTEGER PRIMARY KEY,
			text TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '',
			embedding BLOB NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	meta := map[string]string{
		"schema":     Schema,
		"dimensions": strconv.Itoa(idx.Dimensions()),
		"count":      strconv.Itoa(idx.Len()),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("writing meta %s: %w", k, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages(position, text, metadata, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range idx.Passages() {
		md := ""
		if len(p.Metadata) > 0 {
			b, err := json.Marshal(p.Metadata)
			if err != nil {
				return fmt.Errorf("marshaling metadata for passage %d: %w", i, err)
			}
			md = string(b)
		}

		if _, err := stmt.ExecContext(ctx, i, p.Text, md, serializeFloat32(p.Vector)); err != nil {
			return fmt.Errorf("inserting passage %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Load reads every passage back and rebuilds the index.
func (s *Snapshotter) Load(ctx context.Context) (*vector.Index, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, vector.ErrNoSnapshot
	}

	db, err := sql.Open("sqlite3", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrPersistence, err)
	}
	defer db.Close()

	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}
	if meta["schema"] != Schema {
		return nil, fmt.Errorf("%w: unsupported schema %q", vector.ErrPersistence, meta["schema"])
	}

	passages, err := readPassages(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}
	if strconv.Itoa(len(passages)) != meta["count"] {
		return nil, fmt.Errorf("%w: expected %s passages, found %d", vector.ErrPersistence, meta["count"], len(passages))
	}

	idx, err := vector.Build(passages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrPersistence, err)
	}
	if strconv.Itoa(idx.Dimensions()) != meta["dimensions"] {
		return nil, fmt.Errorf("%w: dimension mismatch", vector.ErrPersistence)
	}

	s.logger.Debug("loaded index snapshot from sqlite",
		zap.String("db_path", s.path),
		zap.Int("passages", idx.Len()),
	)

	return idx, nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("querying meta: %w", err)
	}
	defer rows.Close()

	meta := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning meta: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func readPassages(ctx context.Context, db *sql.DB) ([]vector.Passage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT text, metadata, embedding FROM passages ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	var passages []vector.Passage
	for rows.Next() {
		var (
			text, md string
			blob     []byte
		)
		if err := rows.Scan(&text, &md, &blob); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}

		vec, err := deserializeFloat32(blob)
		if err != nil {
			return nil, err
		}

		p := vector.Passage{Text: text, Vector: vec}
		if md != "" {
			if err := json.Unmarshal([]byte(md), &p.Metadata); err != nil {
				return nil, fmt.Errorf("decoding metadata: %w", err)
			}
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

var _ vector.Snapshotter = (*Snapshotter)(nil)

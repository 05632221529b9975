package vector

import "errors"

var (
	// ErrIndex is returned when an index cannot be built or queried, e.g. an
	// empty passage set or mismatched vector dimensions.
	ErrIndex = errors.New("vector index error")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrPersistence is returned when a snapshot cannot be written or read back.
	ErrPersistence = errors.New("index persistence failed")

	// ErrNoSnapshot is returned by Snapshotter.Load when nothing has been saved yet.
	ErrNoSnapshot = errors.New("no index snapshot")
)

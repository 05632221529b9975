package vector

import "context"

// Snapshotter persists a whole index and restores it. Save overwrites any
// previous snapshot wholesale. Load returns ErrNoSnapshot when nothing has
// been saved and ErrPersistence when the stored data cannot be trusted; it
// never returns a partial index.
type Snapshotter interface {
	Save(ctx context.Context, idx *Index) error
	Load(ctx context.Context) (*Index, error)

	// Location describes where snapshots live, for logs and status output.
	Location() string
}

// Package vectorutils builds index snapshotters from configuration.
package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/pkg/vector"
	"github.com/papercomputeco/scholar/pkg/vector/chroma"
	"github.com/papercomputeco/scholar/pkg/vector/filesnap"
	"github.com/papercomputeco/scholar/pkg/vector/sqlitesnap"
)

type NewSnapshotterOpts struct {
	// ProviderType is one of "file", "sqlite" or "chroma".
	ProviderType string

	// Target is a file path for file and sqlite, or a server URL for chroma.
	Target string

	// Collection names the chroma collection.
	Collection string

	Logger *zap.Logger
}

func NewSnapshotter(o *NewSnapshotterOpts) (vector.Snapshotter, error) {
	switch o.ProviderType {
	case "file", "":
		return filesnap.NewSnapshotter(filesnap.Config{
			Path: o.Target,
		}, o.Logger)
	case "sqlite":
		return sqlitesnap.NewSnapshotter(sqlitesnap.Config{
			DBPath: o.Target,
		}, o.Logger)
	case "chroma":
		return chroma.NewSnapshotter(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported snapshot provider: %s", o.ProviderType)
	}
}

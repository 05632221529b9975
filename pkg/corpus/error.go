package corpus

import "errors"

var (
	// ErrIngestion is returned when a document set cannot become a corpus:
	// no documents, no chunkable text, or a failed embedding.
	ErrIngestion = errors.New("ingestion failed")

	// ErrNotLoaded is returned by operations that need an active corpus.
	ErrNotLoaded = errors.New("no corpus loaded")
)

package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCorpusIngested is emitted after a new corpus becomes active.
	EventTypeCorpusIngested = "scholar.corpus.ingested"
)

// CorpusIngestedEvent is a transport-neutral event payload for a completed ingestion.
type CorpusIngestedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Corpus        CorpusMeta   `json:"corpus"`
	Timing        IngestTiming `json:"timing"`
}

// CorpusMeta describes the corpus that was activated.
type CorpusMeta struct {
	Version    int64    `json:"version"`
	Sources    []string `json:"sources"`
	Passages   int      `json:"passages"`
	Dimensions int      `json:"dimensions"`
	Snapshot   string   `json:"snapshot,omitempty"`
}

// IngestTiming captures how long the ingestion took.
type IngestTiming struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// NewCorpusIngestedEvent stamps a fresh event with an ID and emission time.
func NewCorpusIngestedEvent(meta CorpusMeta, started, completed time.Time) *CorpusIngestedEvent {
	return &CorpusIngestedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeCorpusIngested,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Corpus:        meta,
		Timing: IngestTiming{
			StartedAt:   started,
			CompletedAt: completed,
			DurationMs:  completed.Sub(started).Milliseconds(),
		},
	}
}

// Package corpus owns the lifecycle of the active passage index.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/scholar/pkg/chunker"
	"github.com/papercomputeco/scholar/pkg/embeddings"
	"github.com/papercomputeco/scholar/pkg/eventstream"
	"github.com/papercomputeco/scholar/pkg/eventstream/nop"
	"github.com/papercomputeco/scholar/pkg/vector"
)

const (
	// DefaultEmbedWorkers bounds concurrent embedding calls during ingestion.
	DefaultEmbedWorkers = 4

	// DefaultEmbedBatchSize is the number of chunks sent per call to an
	// embeddings.BatchEmbedder.
	DefaultEmbedBatchSize = 16
)

// Passage metadata keys.
const (
	MetaSource = "source"
	MetaPage   = "page"
	MetaChunk  = "chunk"
)

// Corpus is an immutable handle on the active index. Callers capture it once
// per request.
type Corpus struct {
	Index      *vector.Index
	Version    int64
	IngestedAt time.Time
	Sources    []string
}

// Passages returns the number of indexed passages.
func (c *Corpus) Passages() int {
	return c.Index.Len()
}

// Config holds the collaborators of a Manager.
type Config struct {
	Splitter *chunker.Splitter
	Embedder embeddings.Embedder

	// Snapshotter persists each new index. Optional.
	Snapshotter vector.Snapshotter

	// Publisher receives a corpus.ingested event after each swap. Optional.
	Publisher eventstream.Publisher

	// EmbedWorkers defaults to DefaultEmbedWorkers.
	EmbedWorkers int

	// EmbedBatchSize defaults to DefaultEmbedBatchSize. Only used when the
	// embedder implements embeddings.BatchEmbedder.
	EmbedBatchSize int

	// Dimensions, when non-zero, is enforced on every embedding.
	Dimensions int

	Logger *zap.Logger
}

// Manager builds, persists and atomically publishes corpora.
type Manager struct {
	cfg     Config
	current atomic.Pointer[Corpus]
	writeMu sync.Mutex
	version atomic.Int64
	logger  *zap.Logger
}

// NewManager validates the configuration and returns an unloaded manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Splitter == nil {
		return nil, errors.New("corpus manager requires a splitter")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("corpus manager requires an embedder")
	}
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = DefaultEmbedWorkers
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if cfg.Publisher == nil {
		cfg.Publisher = nop.NewPublisher()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Manager{cfg: cfg, logger: cfg.Logger}, nil
}

// IsLoaded reports whether a corpus is active.
func (m *Manager) IsLoaded() bool {
	return m.current.Load() != nil
}

// Current returns the active corpus.
func (m *Manager) Current() (*Corpus, bool) {
	c := m.current.Load()
	return c, c != nil
}

// Snapshotter returns the configured snapshotter, or nil.
func (m *Manager) Snapshotter() vector.Snapshotter {
	return m.cfg.Snapshotter
}

// Startup activates the persisted index, if any. A missing snapshot leaves
// the manager unloaded without error.
func (m *Manager) Startup(ctx context.Context) error {
	if m.cfg.Snapshotter == nil {
		return nil
	}

	idx, err := m.cfg.Snapshotter.Load(ctx)
	if errors.Is(err, vector.ErrNoSnapshot) {
		m.logger.Info("no corpus snapshot found, starting unloaded",
			zap.String("location", m.cfg.Snapshotter.Location()),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading corpus snapshot: %w", err)
	}

	if m.cfg.Dimensions > 0 && idx.Dimensions() != m.cfg.Dimensions {
		return fmt.Errorf("%w: snapshot has %d dimensions, configured %d",
			vector.ErrPersistence, idx.Dimensions(), m.cfg.Dimensions)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	c := &Corpus{
		Index:      idx,
		Version:    m.version.Add(1),
		IngestedAt: time.Now().UTC(),
		Sources:    sourcesOf(idx.Passages()),
	}
	m.current.Store(c)

	m.logger.Info("corpus snapshot loaded",
		zap.String("location", m.cfg.Snapshotter.Location()),
		zap.Int("passages", idx.Len()),
	)

	return nil
}

type pending struct {
	text string
	meta map[string]string
}

// Ingest chunks and embeds docs, builds a new index, persists it and swaps
// it in. The previous corpus stays active if any step fails.
func (m *Manager) Ingest(ctx context.Context, docs []Document) (*Corpus, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	started := time.Now().UTC()

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents provided", ErrIngestion)
	}

	var chunks []pending
	var sources []string
	for _, doc := range docs {
		before := len(chunks)
		for p, page := range doc.Pages {
			for c, text := range m.cfg.Splitter.SplitBlock(page) {
				chunks = append(chunks, pending{
					text: text,
					meta: map[string]string{
						MetaSource: doc.Source,
						MetaPage:   strconv.Itoa(p + 1),
						MetaChunk:  strconv.Itoa(c),
					},
				})
			}
		}
		if len(chunks) > before {
			sources = append(sources, doc.Source)
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: documents contain no text", ErrIngestion)
	}

	vectors, err := m.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	passages := make([]vector.Passage, len(chunks))
	for i, ch := range chunks {
		passages[i] = vector.Passage{Text: ch.text, Metadata: ch.meta, Vector: vectors[i]}
	}

	idx, err := vector.Build(passages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIngestion, err)
	}

	if m.cfg.Snapshotter != nil {
		if err := m.cfg.Snapshotter.Save(ctx, idx); err != nil {
			return nil, fmt.Errorf("persisting corpus: %w", err)
		}
	}

	c := &Corpus{
		Index:      idx,
		Version:    m.version.Add(1),
		IngestedAt: time.Now().UTC(),
		Sources:    sources,
	}
	m.current.Store(c)

	m.logger.Info("corpus ingested",
		zap.Int64("version", c.Version),
		zap.Int("documents", len(docs)),
		zap.Int("passages", idx.Len()),
		zap.Duration("elapsed", time.Since(started)),
	)

	m.publish(ctx, c, started)

	return c, nil
}

func (m *Manager) embedAll(ctx context.Context, chunks []pending) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.EmbedWorkers)

	if batcher, ok := m.cfg.Embedder.(embeddings.BatchEmbedder); ok {
		for lo := 0; lo < len(chunks); lo += m.cfg.EmbedBatchSize {
			hi := min(lo+m.cfg.EmbedBatchSize, len(chunks))
			g.Go(func() error {
				texts := make([]string, 0, hi-lo)
				for _, c := range chunks[lo:hi] {
					texts = append(texts, c.text)
				}
				vs, err := batcher.EmbedBatch(gctx, texts)
				if err != nil {
					return fmt.Errorf("%w: embedding chunks %d-%d: %w", ErrIngestion, lo, hi-1, err)
				}
				if len(vs) != len(texts) {
					return fmt.Errorf("%w: embedding chunks %d-%d: got %d vectors",
						ErrIngestion, lo, hi-1, len(vs))
				}
				for j, v := range vs {
					if err := m.checkDimensions(lo+j, v); err != nil {
						return err
					}
					vectors[lo+j] = v
				}
				return nil
			})
		}
	} else {
		for i := range chunks {
			g.Go(func() error {
				v, err := m.cfg.Embedder.Embed(gctx, chunks[i].text)
				if err != nil {
					return fmt.Errorf("%w: embedding chunk %d: %w", ErrIngestion, i, err)
				}
				if err := m.checkDimensions(i, v); err != nil {
					return err
				}
				vectors[i] = v
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (m *Manager) checkDimensions(chunk int, v []float32) error {
	if m.cfg.Dimensions > 0 && len(v) != m.cfg.Dimensions {
		return fmt.Errorf("%w: chunk %d embedded to %d dimensions, configured %d",
			ErrIngestion, chunk, len(v), m.cfg.Dimensions)
	}
	return nil
}

func (m *Manager) publish(ctx context.Context, c *Corpus, started time.Time) {
	meta := eventstream.CorpusMeta{
		Version:    c.Version,
		Sources:    c.Sources,
		Passages:   c.Index.Len(),
		Dimensions: c.Index.Dimensions(),
	}
	if m.cfg.Snapshotter != nil {
		meta.Snapshot = m.cfg.Snapshotter.Location()
	}

	event := eventstream.NewCorpusIngestedEvent(meta, started, c.IngestedAt)
	if err := m.cfg.Publisher.PublishCorpus(ctx, event); err != nil {
		m.logger.Warn("failed to publish corpus event",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}
}

func sourcesOf(passages []vector.Passage) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range passages {
		s := p.Metadata[MetaSource]
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

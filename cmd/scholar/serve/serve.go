// Package servecmder provides the serve command, which runs the scholar API
// server over a corpus.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/scholar/api"
	"github.com/papercomputeco/scholar/api/mcp"
	"github.com/papercomputeco/scholar/pkg/chunker"
	"github.com/papercomputeco/scholar/pkg/config"
	"github.com/papercomputeco/scholar/pkg/corpus"
	"github.com/papercomputeco/scholar/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/scholar/pkg/embeddings/utils"
	"github.com/papercomputeco/scholar/pkg/eventstream"
	"github.com/papercomputeco/scholar/pkg/eventstream/kafka"
	"github.com/papercomputeco/scholar/pkg/eventstream/nop"
	"github.com/papercomputeco/scholar/pkg/grounding"
	"github.com/papercomputeco/scholar/pkg/llm/provider"
	"github.com/papercomputeco/scholar/pkg/logger"
	"github.com/papercomputeco/scholar/pkg/pipeline"
	"github.com/papercomputeco/scholar/pkg/retriever"
	"github.com/papercomputeco/scholar/pkg/router"
	"github.com/papercomputeco/scholar/pkg/session/inmemory"
	"github.com/papercomputeco/scholar/pkg/transcript/youtube"
	"github.com/papercomputeco/scholar/pkg/vector"
	vectorutils "github.com/papercomputeco/scholar/pkg/vector/utils"
)

type ServeCommander struct {
	flags config.FlagSet

	listen          string
	storageProvider string
	storagePath     string
	storageTarget   string
	embeddingProv   string
	embeddingTarget string
	embeddingModel  string
	embeddingDims   uint
	llmProvider     string
	llmTarget       string
	llmModel        string
	topK            int
	chunkSize       int
	chunkOverlap    int
	eventsProvider  string
	kafkaBrokers    string
	mcpEnabled      bool

	watchDir  string
	configDir string
	debug     bool

	viper  *viper.Viper
	logger *zap.Logger
}

// serveFlags are bound to viper on every run.
var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagStorageProvider,
	config.FlagStoragePath,
	config.FlagStorageTarget,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
	config.FlagTopK,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagEventsProvider,
	config.FlagKafkaBrokers,
	config.FlagMCP,
}

const serveLongDesc string = `Run the scholar API server.

On start the server loads the last persisted corpus snapshot, if any. Upload
documents with "scholar ingest" or POST /v1/corpus to replace it.

With --watch, the server also re-ingests a directory of .txt and .md files
whenever they change.

Settings resolve in order: flags, SCHOLAR_* environment variables,
config.toml, then defaults.

Examples:
  scholar serve
  scholar serve --llm-provider openai --llm-model gpt-4o-mini
  scholar serve --storage-provider sqlite --watch ./notes
  scholar serve --events-provider kafka --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the scholar API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{flags: config.Flags}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, serveFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageProvider, &cmder.storageProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStoragePath, &cmder.storagePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageTarget, &cmder.storageTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, cmder.flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMModel, &cmder.llmModel)
	config.AddIntFlag(cmd, cmder.flags, config.FlagTopK, &cmder.topK)
	config.AddIntFlag(cmd, cmder.flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, cmder.flags, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddBoolFlag(cmd, cmder.flags, config.FlagMCP, &cmder.mcpEnabled)
	cmd.Flags().StringVarP(&cmder.watchDir, "watch", "w", "", "Directory of .txt/.md files to re-ingest on change")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromViper(c.viper)
	if err != nil {
		return fmt.Errorf("resolving config: %w", err)
	}

	stack, err := NewStack(ctx, cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	if c.watchDir != "" {
		go func() {
			if err := stack.Corpus.Watch(ctx, c.watchDir, 0); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("corpus watcher stopped", zap.Error(err))
			}
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		if err := stack.Server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down")
		return stack.Server.Shutdown()
	}
}

// Stack is the fully wired server and the resources it owns.
type Stack struct {
	Server *api.Server
	Corpus *corpus.Manager

	closers []func() error
}

// NewStack wires every component from cfg. A corrupt or unreadable snapshot
// is logged and the server starts unloaded.
func NewStack(ctx context.Context, cfg *config.Config, configDir string, log *zap.Logger) (*Stack, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Stack{}

	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Timeout:      timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	s.closers = append(s.closers, embedder.Close)

	snapshotter, err := newSnapshotter(cfg, configDir, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	publisher, err := NewPublisher(cfg.Events, log)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, publisher.Close)

	splitter, err := chunker.New(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	if err != nil {
		s.Close()
		return nil, err
	}

	manager, err := corpus.NewManager(corpus.Config{
		Splitter:     splitter,
		Embedder:     embedder,
		Snapshotter:  snapshotter,
		Publisher:    publisher,
		EmbedWorkers: cfg.Retrieval.EmbedWorkers,
		Dimensions:   int(cfg.Embedding.Dimensions),
		Logger:       log,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := manager.Startup(ctx); err != nil {
		log.Warn("corpus snapshot not loaded, starting unloaded", zap.Error(err))
	}
	s.Corpus = manager

	completer, err := provider.NewCompleter(provider.CompleterOpts{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.Target,
		Timeout:  timeout,
		Logger:   log,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating completer: %w", err)
	}

	ret := retriever.New(manager, embedder, cfg.Retrieval.TopK, log)
	answerer := grounding.NewAnswerer(completer, cfg.LLM.GroundedTemperature, log)
	rt := router.New(router.Config{
		Retriever:       ret,
		Answerer:        answerer,
		OpenCompleter:   completer,
		OpenTemperature: cfg.LLM.OpenTemperature,
		Logger:          log,
	})

	pcfg := pipeline.Config{
		Corpus:    manager,
		Retriever: ret,
		Answerer:  answerer,
		Completer: completer,
		Fetcher: youtube.NewFetcher(youtube.Config{
			BaseURL:  cfg.Pipeline.TranscriptTarget,
			Language: cfg.Pipeline.TranscriptLanguage,
		}, log),
		GroundedTemperature:   cfg.LLM.GroundedTemperature,
		GenerationTemperature: cfg.LLM.GenerationTemperature,
		SolverPrefixChars:     cfg.Pipeline.SolverPrefixChars,
		SolverMaxQuestions:    cfg.Pipeline.SolverMaxQuestions,
		TranscriptPrefixChars: cfg.Pipeline.TranscriptPrefixChars,
		Logger:                log,
	}

	sessions := inmemory.NewStore(inmemory.Config{
		TTL: time.Duration(cfg.Sessions.TTLMinutes) * time.Minute,
	}, log)

	apiConfig := api.Config{
		ListenAddr:       cfg.API.Listen,
		Corpus:           manager,
		Searcher:         ret,
		Router:           rt,
		Sessions:         sessions,
		Exams:            pipeline.NewExams(pcfg),
		Solver:           pipeline.NewSolver(pcfg),
		Transcripts:      pipeline.NewTranscripts(pcfg),
		SnapshotLocation: snapshotter.Location(),
	}

	if cfg.MCP.Enabled {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Searcher: ret,
			Asker:    rt,
			Logger:   log,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	server, err := api.NewServer(apiConfig, log)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Server = server

	log.Info("scholar stack ready",
		zap.String("listen", cfg.API.Listen),
		zap.String("snapshot", snapshotter.Location()),
		zap.String("llm", cfg.LLM.Provider+"/"+cfg.LLM.Model),
		zap.String("embedding", cfg.Embedding.Provider+"/"+cfg.Embedding.Model),
		zap.Bool("corpus_loaded", manager.IsLoaded()),
		zap.Bool("mcp", cfg.MCP.Enabled),
	)

	return s, nil
}

// Close releases the embedder and the event publisher.
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
	s.closers = nil
}

// NewPublisher returns the corpus event publisher named by cfg.Provider.
func NewPublisher(cfg config.EventsConfig, log *zap.Logger) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case "", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", cfg.Provider)
	}
}

// SnapshotTarget resolves where the snapshot lives. The file and sqlite
// providers default to a file in the .scholar/ directory.
func SnapshotTarget(cfg config.StorageConfig, configDir string) (string, error) {
	switch cfg.Provider {
	case "chroma":
		return cfg.Target, nil
	case "sqlite":
		if cfg.Path != "" {
			return cfg.Path, nil
		}
		return dotdir.NewManager().Path(configDir, "index.db")
	default:
		if cfg.Path != "" {
			return cfg.Path, nil
		}
		return dotdir.NewManager().Path(configDir, "index.json")
	}
}

func newSnapshotter(cfg *config.Config, configDir string, log *zap.Logger) (vector.Snapshotter, error) {
	target, err := SnapshotTarget(cfg.Storage, configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot path: %w", err)
	}

	snapshotter, err := vectorutils.NewSnapshotter(&vectorutils.NewSnapshotterOpts{
		ProviderType: cfg.Storage.Provider,
		Target:       target,
		Collection:   cfg.Storage.Collection,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating snapshotter: %w", err)
	}
	return snapshotter, nil
}

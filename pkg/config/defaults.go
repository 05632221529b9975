package config

const (
	defaultOllamaTarget = "http://localhost:11434"
	defaultAPIListen    = ":8081"

	defaultClientAPITarget = "http://localhost:8081"

	defaultStorageProvider   = "file"
	defaultChromaTarget      = "http://localhost:8000"
	defaultChromaCollection  = "scholar"
	defaultEmbeddingProvider = "ollama"
	defaultEmbeddingModel    = "nomic-embed-text"
	defaultEmbeddingDims     = 768

	defaultLLMProvider = "ollama"
	defaultLLMModel    = "phi3"

	defaultGroundedTemperature   = 0
	defaultOpenTemperature       = 0.7
	defaultGenerationTemperature = 0.8
	defaultTimeoutSeconds        = 120

	defaultTopK         = 4
	defaultChunkSize    = 500
	defaultChunkOverlap = 50
	defaultEmbedWorkers = 4

	defaultSolverPrefixChars     = 2000
	defaultSolverMaxQuestions    = 3
	defaultTranscriptPrefixChars = 4000
	defaultTranscriptLanguage    = "en"
	defaultTranscriptTarget      = "https://www.youtube.com"

	defaultSessionTTLMinutes = 24 * 60

	defaultEventsProvider = "none"
	defaultEventsTopic    = "scholar.corpus"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider:   defaultStorageProvider,
			Target:     defaultChromaTarget,
			Collection: defaultChromaCollection,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDims,
		},
		LLM: LLMConfig{
			Provider:              defaultLLMProvider,
			Target:                defaultOllamaTarget,
			Model:                 defaultLLMModel,
			GroundedTemperature:   defaultGroundedTemperature,
			OpenTemperature:       defaultOpenTemperature,
			GenerationTemperature: defaultGenerationTemperature,
			TimeoutSeconds:        defaultTimeoutSeconds,
		},
		Retrieval: RetrievalConfig{
			TopK:         defaultTopK,
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
			EmbedWorkers: defaultEmbedWorkers,
		},
		Pipeline: PipelineConfig{
			SolverPrefixChars:     defaultSolverPrefixChars,
			SolverMaxQuestions:    defaultSolverMaxQuestions,
			TranscriptPrefixChars: defaultTranscriptPrefixChars,
			TranscriptLanguage:    defaultTranscriptLanguage,
			TranscriptTarget:      defaultTranscriptTarget,
		},
		Sessions: SessionsConfig{
			TTLMinutes: defaultSessionTTLMinutes,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}
}

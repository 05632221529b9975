package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent scholar configuration stored as config.toml
// in the .scholar/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Storage   StorageConfig   `toml:"storage"`
	API       APIConfig       `toml:"api"`
	Client    ClientConfig    `toml:"client"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Sessions  SessionsConfig  `toml:"sessions"`
	Events    EventsConfig    `toml:"events"`
	MCP       MCPConfig       `toml:"mcp"`
}

// StorageConfig selects where the corpus snapshot is persisted.
type StorageConfig struct {
	// Provider is one of "file", "sqlite" or "chroma".
	Provider string `toml:"provider,omitempty"`

	// Path is the snapshot file for the file and sqlite providers. Empty
	// resolves to a file inside the .scholar/ directory.
	Path string `toml:"path,omitempty"`

	// Target is the Chroma server URL.
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// server (e.g. scholar ask). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// LLMConfig holds generation provider settings.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`

	GroundedTemperature   float64 `toml:"grounded_temperature"`
	OpenTemperature       float64 `toml:"open_temperature"`
	GenerationTemperature float64 `toml:"generation_temperature"`

	TimeoutSeconds int `toml:"timeout_seconds,omitempty"`
}

// RetrievalConfig holds chunking, embedding and search settings.
type RetrievalConfig struct {
	TopK         int `toml:"top_k,omitempty"`
	ChunkSize    int `toml:"chunk_size,omitempty"`
	ChunkOverlap int `toml:"chunk_overlap"`
	EmbedWorkers int `toml:"embed_workers,omitempty"`
}

// PipelineConfig bounds the inputs of the derived pipelines.
type PipelineConfig struct {
	SolverPrefixChars     int    `toml:"solver_prefix_chars,omitempty"`
	SolverMaxQuestions    int    `toml:"solver_max_questions,omitempty"`
	TranscriptPrefixChars int    `toml:"transcript_prefix_chars,omitempty"`
	TranscriptLanguage    string `toml:"transcript_language,omitempty"`
	TranscriptTarget      string `toml:"transcript_target,omitempty"`
}

// SessionsConfig holds chat session settings.
type SessionsConfig struct {
	// TTLMinutes is how long an idle session is kept. Negative keeps
	// sessions for the lifetime of the server.
	TTLMinutes int `toml:"ttl_minutes,omitempty"`
}

// EventsConfig holds corpus event publishing settings.
type EventsConfig struct {
	// Provider is "none" or "kafka".
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	Enabled bool `toml:"enabled"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider":   stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.path":       stringKey(func(c *Config) *string { return &c.Storage.Path }),
	"storage.target":     stringKey(func(c *Config) *string { return &c.Storage.Target }),
	"storage.collection": stringKey(func(c *Config) *string { return &c.Storage.Collection }),

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			if strings.TrimSpace(v) == "" {
				c.Embedding.Dimensions = 0
				return nil
			}
			n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},

	"llm.provider":               stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":                 stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":                  stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.grounded_temperature":   floatKey("llm.grounded_temperature", func(c *Config) *float64 { return &c.LLM.GroundedTemperature }),
	"llm.open_temperature":       floatKey("llm.open_temperature", func(c *Config) *float64 { return &c.LLM.OpenTemperature }),
	"llm.generation_temperature": floatKey("llm.generation_temperature", func(c *Config) *float64 { return &c.LLM.GenerationTemperature }),
	"llm.timeout_seconds":        intKey("llm.timeout_seconds", func(c *Config) *int { return &c.LLM.TimeoutSeconds }),

	"retrieval.top_k":         intKey("retrieval.top_k", func(c *Config) *int { return &c.Retrieval.TopK }),
	"retrieval.chunk_size":    intKey("retrieval.chunk_size", func(c *Config) *int { return &c.Retrieval.ChunkSize }),
	"retrieval.chunk_overlap": intKey("retrieval.chunk_overlap", func(c *Config) *int { return &c.Retrieval.ChunkOverlap }),
	"retrieval.embed_workers": intKey("retrieval.embed_workers", func(c *Config) *int { return &c.Retrieval.EmbedWorkers }),

	"pipeline.solver_prefix_chars":     intKey("pipeline.solver_prefix_chars", func(c *Config) *int { return &c.Pipeline.SolverPrefixChars }),
	"pipeline.solver_max_questions":    intKey("pipeline.solver_max_questions", func(c *Config) *int { return &c.Pipeline.SolverMaxQuestions }),
	"pipeline.transcript_prefix_chars": intKey("pipeline.transcript_prefix_chars", func(c *Config) *int { return &c.Pipeline.TranscriptPrefixChars }),
	"pipeline.transcript_language":     stringKey(func(c *Config) *string { return &c.Pipeline.TranscriptLanguage }),
	"pipeline.transcript_target":       stringKey(func(c *Config) *string { return &c.Pipeline.TranscriptTarget }),

	"sessions.ttl_minutes": intKey("sessions.ttl_minutes", func(c *Config) *int { return &c.Sessions.TTLMinutes }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error { c.Events.Brokers = SplitList(v); return nil },
	},
	"events.topic": stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"mcp.enabled": boolKey("mcp.enabled", func(c *Config) *bool { return &c.MCP.Enabled }),
}

// orderedKeys lists the keys in TOML section order.
var orderedKeys = []string{
	"storage.provider",
	"storage.path",
	"storage.target",
	"storage.collection",
	"api.listen",
	"client.api_target",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"llm.provider",
	"llm.target",
	"llm.model",
	"llm.grounded_temperature",
	"llm.open_temperature",
	"llm.generation_temperature",
	"llm.timeout_seconds",
	"retrieval.top_k",
	"retrieval.chunk_size",
	"retrieval.chunk_overlap",
	"retrieval.embed_workers",
	"pipeline.solver_prefix_chars",
	"pipeline.solver_max_questions",
	"pipeline.transcript_prefix_chars",
	"pipeline.transcript_language",
	"pipeline.transcript_target",
	"sessions.ttl_minutes",
	"events.provider",
	"events.brokers",
	"events.topic",
	"mcp.enabled",
}

// SplitList splits a comma-separated list, dropping blank entries.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

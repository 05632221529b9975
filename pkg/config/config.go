package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/scholar/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .scholar/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in TOML
// section order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}

	// Keys missing from orderedKeys still get listed.
	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target
// .scholar/ directory. The file is decoded over NewDefaultConfig(), so keys
// absent from the file keep their defaults while explicit values, zero
// included, win. A missing file yields the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := decodeInto(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig persists the configuration to config.toml in the target .scholar/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key or the result fails Validate.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// Get returns the string representation of key on cfg.
func (cfg *Config) Get(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}
	return info.get(cfg), nil
}

// Set parses value into key on cfg.
func (cfg *Config) Set(key, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	return info.set(cfg, value)
}

// Validate checks cross-field constraints.
func (cfg *Config) Validate() error {
	r := cfg.Retrieval
	switch {
	case r.TopK < 1:
		return fmt.Errorf("%w: retrieval.top_k must be at least 1", ErrInvalidConfig)
	case r.ChunkSize < 1:
		return fmt.Errorf("%w: retrieval.chunk_size must be at least 1", ErrInvalidConfig)
	case r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize:
		return fmt.Errorf("%w: retrieval.chunk_overlap must be in [0, chunk_size)", ErrInvalidConfig)
	case r.EmbedWorkers < 1:
		return fmt.Errorf("%w: retrieval.embed_workers must be at least 1", ErrInvalidConfig)
	}

	for name, t := range map[string]float64{
		"llm.grounded_temperature":   cfg.LLM.GroundedTemperature,
		"llm.open_temperature":       cfg.LLM.OpenTemperature,
		"llm.generation_temperature": cfg.LLM.GenerationTemperature,
	} {
		if t < 0 || t > 2 {
			return fmt.Errorf("%w: %s must be in [0, 2]", ErrInvalidConfig, name)
		}
	}

	switch strings.ToLower(cfg.Storage.Provider) {
	case "file", "sqlite", "chroma":
	default:
		return fmt.Errorf("%w: storage.provider %q (available: file, sqlite, chroma)", ErrInvalidConfig, cfg.Storage.Provider)
	}

	switch strings.ToLower(cfg.Events.Provider) {
	case "", "none":
	case "kafka":
		if len(cfg.Events.Brokers) == 0 {
			return fmt.Errorf("%w: events.brokers is required for the kafka provider", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: events.provider %q (available: none, kafka)", ErrInvalidConfig, cfg.Events.Provider)
	}

	return nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		cfg.LLM.Provider = "openai"
		cfg.LLM.Target = "https://api.openai.com"
		cfg.LLM.Model = "gpt-4o-mini"
		cfg.Embedding.Provider = "openai"
		cfg.Embedding.Target = "https://api.openai.com"
		cfg.Embedding.Model = "text-embedding-3-small"
		cfg.Embedding.Dimensions = 1536

	case "anthropic":
		// Anthropic has no embeddings endpoint; embeddings stay on ollama.
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.Target = "https://api.anthropic.com"
		cfg.LLM.Model = "claude-haiku-4-5-20251001"

	case "ollama":

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, anthropic, ollama)", name)
	}

	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config without applying defaults.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := decodeInto(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeInto(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return nil
}

// Package config resolves process-wide configuration once at startup.
// All knobs come from the environment, with an optional YAML file overlay,
// and are threaded through the pipeline as an explicit struct so tests can
// inject fixed values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// AI provider names accepted by AGENTSTORE_AI_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Config holds all pipeline configuration.
type Config struct {
	// AIProvider selects the analysis backend: anthropic, openai or ollama.
	AIProvider string `yaml:"ai_provider"`

	// AnthropicAPIKey is required when AIProvider is "anthropic".
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// OpenAIAPIKey is required when AIProvider is "openai".
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// OllamaModel is the local model name when AIProvider is "ollama".
	OllamaModel string `yaml:"ollama_model"`

	// OllamaBaseURL is the ollama server address.
	OllamaBaseURL string `yaml:"ollama_base_url"`

	// GitHubToken raises the GitHub API rate limit. Optional but strongly
	// recommended for runs of any real size.
	GitHubToken string `yaml:"github_token"`

	// OpenClawLimit caps entries pulled from the OpenClaw hub per run.
	OpenClawLimit int `yaml:"openclaw_limit"`

	// MCPLimit caps entries pulled from the MCP sources per run.
	MCPLimit int `yaml:"mcp_limit"`

	// DataDir is where capabilities.json and update_log.json live.
	DataDir string `yaml:"data_dir"`

	// WebDataDir, when set, receives a mirror copy of capabilities.json
	// for the frontend build. Empty disables the mirror.
	WebDataDir string `yaml:"web_data_dir"`

	// DatabasePath, when set, receives an upsert of each run's new records
	// for the API layer. Empty disables the SQLite mirror.
	DatabasePath string `yaml:"database_path"`
}

// Default limits match the hosted deployment's cron invocation.
const (
	DefaultOpenClawLimit = 100
	DefaultMCPLimit      = 200
)

// FromEnv builds a Config from environment variables. If a config file
// exists at path (empty means skip), its values are applied first and the
// environment overrides them.
func FromEnv(path string) (Config, error) {
	cfg := Config{
		AIProvider:    ProviderOpenAI,
		OllamaModel:   "llama3",
		OllamaBaseURL: "http://localhost:11434",
		OpenClawLimit: DefaultOpenClawLimit,
		MCPLimit:      DefaultMCPLimit,
		DataDir:       "data",
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	if v := os.Getenv("AGENTSTORE_AI_PROVIDER"); v != "" {
		cfg.AIProvider = v
	} else if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AIProvider = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.OllamaBaseURL = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHubToken = v
	}
	if v := os.Getenv("AGENTSTORE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("AGENTSTORE_WEB_DATA_DIR"); v != "" {
		cfg.WebDataDir = v
	}
	if v := os.Getenv("AGENTSTORE_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	var err error
	if cfg.OpenClawLimit, err = intFromEnv("AGENTSTORE_OPENCLAW_LIMIT", cfg.OpenClawLimit); err != nil {
		return cfg, err
	}
	if cfg.MCPLimit, err = intFromEnv("AGENTSTORE_MCP_LIMIT", cfg.MCPLimit); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// loadFile applies a YAML config file over the defaults.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks provider selection and limit ranges.
func (c Config) Validate() error {
	switch c.AIProvider {
	case ProviderAnthropic, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported AI provider: %q (want %s, %s or %s)",
			c.AIProvider, ProviderAnthropic, ProviderOpenAI, ProviderOllama)
	}
	if c.OpenClawLimit < 0 {
		return fmt.Errorf("openclaw limit must be >= 0, got %d", c.OpenClawLimit)
	}
	if c.MCPLimit < 0 {
		return fmt.Errorf("mcp limit must be >= 0, got %d", c.MCPLimit)
	}
	return nil
}

// SnapshotPath is the canonical path of the persisted ranked dataset.
func (c Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "capabilities.json")
}

// UpdateLogPath is the path of the append-only run log.
func (c Config) UpdateLogPath() string {
	return filepath.Join(c.DataDir, "update_log.json")
}

func intFromEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %q is not an integer", key, v)
	}
	return n, nil
}

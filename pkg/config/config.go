// Package config provides configuration loading and validation for the
// assistant. It reads a YAML file, applies defaults, and lets a few
// environment variables override file values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Extractor backend names.
const (
	ExtractorRules  = "rules"
	ExtractorClaude = "claude"
)

// Defaults applied when the file omits a value.
const (
	DefaultSessionTimeout = 30 * time.Minute
	DefaultMaxTurns       = 50
	DefaultAgentTimeout   = 30 * time.Second
	DefaultLogDir         = "logs"
	DefaultStateDir       = "state"
	DefaultDBPath         = "assistant.db"
)

// DefaultExitPhrases end a session when a user message matches one.
var DefaultExitPhrases = []string{
	"exit", "quit", "bye", "goodbye", "end", "stop",
	"thanks", "thank you", "that's all", "done",
}

// SessionConfig bounds a single conversation.
type SessionConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxTurns    int           `yaml:"max_turns"`
	ExitPhrases []string      `yaml:"exit_phrases"`
}

// ExtractorConfig selects and tunes the entity extractor.
type ExtractorConfig struct {
	Backend string `yaml:"backend"` // "rules" or "claude"
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// AgentConfig tunes agent dispatch.
type AgentConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ToolServerConfig enables the optional HTTP tool server.
type ToolServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the root configuration.
type Config struct {
	Session     SessionConfig    `yaml:"session"`
	Extractor   ExtractorConfig  `yaml:"extractor"`
	Agents      AgentConfig      `yaml:"agents"`
	ToolServer  ToolServerConfig `yaml:"tool_server"`
	LogDir      string           `yaml:"log_dir"`
	StateDir    string           `yaml:"state_dir"`
	DBPath      string           `yaml:"db_path"`
	TemplateDir string           `yaml:"template_dir"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML configuration file. A missing path returns the
// defaults. ANTHROPIC_API_KEY overrides the file's extractor api_key.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyDefaults()

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Extractor.APIKey = key
		if cfg.Extractor.Backend == "" || cfg.Extractor.Backend == ExtractorRules {
			cfg.Extractor.Backend = ExtractorClaude
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Session.Timeout <= 0 {
		c.Session.Timeout = DefaultSessionTimeout
	}
	if c.Session.MaxTurns <= 0 {
		c.Session.MaxTurns = DefaultMaxTurns
	}
	if len(c.Session.ExitPhrases) == 0 {
		c.Session.ExitPhrases = append([]string(nil), DefaultExitPhrases...)
	}
	if c.Extractor.Backend == "" {
		c.Extractor.Backend = ExtractorRules
	}
	if c.Agents.Timeout <= 0 {
		c.Agents.Timeout = DefaultAgentTimeout
	}
	if c.ToolServer.Enabled && c.ToolServer.Addr == "" {
		c.ToolServer.Addr = ":8080"
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
}

// Validate rejects configurations the assistant cannot run with.
func (c *Config) Validate() error {
	switch c.Extractor.Backend {
	case ExtractorRules:
	case ExtractorClaude:
		if c.Extractor.APIKey == "" {
			return fmt.Errorf("extractor backend %q requires an api key", ExtractorClaude)
		}
	default:
		return fmt.Errorf("unknown extractor backend %q", c.Extractor.Backend)
	}
	return nil
}

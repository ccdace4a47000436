package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the scout API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	LLM        LLMConfig        `yaml:"llm"`
	Search     SearchConfig     `yaml:"search"`
	Scoreboard ScoreboardConfig `yaml:"scoreboard"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Response   ResponseConfig   `yaml:"response"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LLMConfig holds chat completion provider settings.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// SearchConfig holds web search provider settings.
type SearchConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	ResultCount int    `yaml:"result_count"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// ScoreboardConfig holds live scoreboard fetch settings.
type ScoreboardConfig struct {
	APIBaseURL string `yaml:"api_base_url"`
	SiteURL    string `yaml:"site_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Retrieval strategy names.
const (
	StrategySearch     = "search"
	StrategyScoreboard = "scoreboard"
)

// RetrievalConfig selects the primary strategy and an optional fallback.
type RetrievalConfig struct {
	Primary  string `yaml:"primary"`  // search, scoreboard
	Fallback string `yaml:"fallback"` // search, scoreboard, none
}

// OptimizerConfig holds query optimizer settings.
type OptimizerConfig struct {
	// NFLSeasonCutoffMonth is the last month still attributed to the
	// previous NFL season (1-12).
	NFLSeasonCutoffMonth int `yaml:"nfl_season_cutoff_month"`
}

// ResponseConfig selects the /api/chat response variant.
type ResponseConfig struct {
	Mode string `yaml:"mode"` // json, stream
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Streaming answers hold the response open well past a typical
		// request round trip.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.Search.ResultCount <= 0 {
		c.Search.ResultCount = 10
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 15
	}
	if c.Scoreboard.TimeoutSec <= 0 {
		c.Scoreboard.TimeoutSec = 15
	}
	if c.Retrieval.Primary == "" {
		c.Retrieval.Primary = StrategySearch
	}
	if c.Retrieval.Fallback == "" && c.Retrieval.Primary == StrategySearch {
		c.Retrieval.Fallback = StrategyScoreboard
	}
	if c.Optimizer.NFLSeasonCutoffMonth <= 0 {
		c.Optimizer.NFLSeasonCutoffMonth = 8
	}
	if c.Response.Mode == "" {
		c.Response.Mode = "json"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	// Fail at startup rather than on the first completion request.
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if !validStrategy(c.Retrieval.Primary) {
		return fmt.Errorf("retrieval.primary must be %q or %q, got %q",
			StrategySearch, StrategyScoreboard, c.Retrieval.Primary)
	}
	if c.Retrieval.Fallback != "" && c.Retrieval.Fallback != "none" {
		if !validStrategy(c.Retrieval.Fallback) {
			return fmt.Errorf("retrieval.fallback must be %q, %q or \"none\", got %q",
				StrategySearch, StrategyScoreboard, c.Retrieval.Fallback)
		}
		if c.Retrieval.Fallback == c.Retrieval.Primary {
			return fmt.Errorf("retrieval.fallback must differ from retrieval.primary %q", c.Retrieval.Primary)
		}
	}
	if c.Optimizer.NFLSeasonCutoffMonth < 1 || c.Optimizer.NFLSeasonCutoffMonth > 12 {
		return fmt.Errorf("optimizer.nfl_season_cutoff_month must be between 1 and 12, got %d",
			c.Optimizer.NFLSeasonCutoffMonth)
	}
	switch c.Response.Mode {
	case "json", "stream":
	default:
		return fmt.Errorf("response.mode must be \"json\" or \"stream\", got %q", c.Response.Mode)
	}
	return nil
}

func validStrategy(s string) bool {
	return s == StrategySearch || s == StrategyScoreboard
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

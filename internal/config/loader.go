package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"fastllamad/internal/command"
	"fastllamad/internal/native"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FASTLLAMAD_"

// CORS holds the opt-in CORS settings.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr            string `json:"addr" yaml:"addr" toml:"addr"`
	DataDir         string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	ModelsDir       string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	WorkspaceDir    string `json:"workspace_dir" yaml:"workspace_dir" toml:"workspace_dir"`
	LogLevel        string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat       string `json:"log_format" yaml:"log_format" toml:"log_format"`
	IndexBackend    string `json:"index_backend" yaml:"index_backend" toml:"index_backend"`
	MaxMessageBytes int64  `json:"max_message_bytes" yaml:"max_message_bytes" toml:"max_message_bytes"`
	MaxSessions     int    `json:"max_sessions" yaml:"max_sessions" toml:"max_sessions"`
	CORS            CORS   `json:"cors" yaml:"cors" toml:"cors"`

	Generation command.Params      `json:"generation" yaml:"generation" toml:"generation"`
	Engine     native.EngineConfig `json:"engine" yaml:"engine" toml:"engine"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with FASTLLAMAD_* variables read through lookup.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("ADDR", &cfg.Addr)
	str("DATA_DIR", &cfg.DataDir)
	str("MODELS_DIR", &cfg.ModelsDir)
	str("WORKSPACE_DIR", &cfg.WorkspaceDir)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("INDEX_BACKEND", &cfg.IndexBackend)

	if v, ok := lookup(EnvPrefix + "MAX_MESSAGE_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%sMAX_MESSAGE_BYTES: %w", EnvPrefix, err)
		}
		cfg.MaxMessageBytes = n
	}
	if v, ok := lookup(EnvPrefix + "MAX_SESSIONS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%sMAX_SESSIONS: %w", EnvPrefix, err)
		}
		cfg.MaxSessions = n
	}
	if v, ok := lookup(EnvPrefix + "THREADS"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return cfg, fmt.Errorf("%sTHREADS: %w", EnvPrefix, err)
		}
		cfg.Engine.Threads = int32(n)
	}
	if v, ok := lookup(EnvPrefix + "CORS_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%sCORS_ENABLED: %w", EnvPrefix, err)
		}
		cfg.CORS.Enabled = b
	}
	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok && v != "" {
		cfg.CORS.Origins = SplitCSV(v)
	}
	return cfg, nil
}

// SplitCSV splits a comma-separated list, trimming blanks.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/CTAG07/Lexicogenesis/pkg/dictionary"
	"github.com/CTAG07/Lexicogenesis/pkg/markov"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

const (
	upgradeSourceFile     = "file"
	upgradeSourceDatabase = "database"
)

// ServerConfig holds the configuration for the HTTP server and the files it reads.
type ServerConfig struct {
	ApiAddr        string `json:"api_addr" toml:"api_addr" yaml:"api_addr"`
	LogLevel       string `json:"log_level" toml:"log_level" yaml:"log_level"`
	DataDir        string `json:"data_dir" toml:"data_dir" yaml:"data_dir"`
	DatabasePath   string `json:"database_path" toml:"database_path" yaml:"database_path"`
	CorpusPath     string `json:"corpus_path" toml:"corpus_path" yaml:"corpus_path"`
	LiteCorpusPath string `json:"lite_corpus_path" toml:"lite_corpus_path" yaml:"lite_corpus_path"`
}

// LexiconConfig holds the model settings.
type LexiconConfig struct {
	CharOrder     int    `json:"char_order" toml:"char_order" yaml:"char_order"`
	WordOrder     int    `json:"word_order" toml:"word_order" yaml:"word_order"`
	LiteSize      int    `json:"lite_size" toml:"lite_size" yaml:"lite_size"`
	UpgradeSource string `json:"upgrade_source" toml:"upgrade_source" yaml:"upgrade_source"` // "file" or "database"
	WatchCorpus   bool   `json:"watch_corpus" toml:"watch_corpus" yaml:"watch_corpus"`
	Seed          uint64 `json:"seed" toml:"seed" yaml:"seed"` // 0 means unseeded.

	// PrebuiltModelPath names a character model snapshot written by the
	// export command. When set, serve adopts it in place of the lite
	// character model before the first upgrade finishes.
	PrebuiltModelPath string `json:"prebuilt_model_path" toml:"prebuilt_model_path" yaml:"prebuilt_model_path"`
	// DefinitionTerminator is appended to generated definitions that do not
	// already end a sentence. Empty keeps the default ".".
	DefinitionTerminator string `json:"definition_terminator" toml:"definition_terminator" yaml:"definition_terminator"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server  *ServerConfig  `json:"server_config" toml:"server_config" yaml:"server_config"`
	Lexicon *LexiconConfig `json:"lexicon_config" toml:"lexicon_config" yaml:"lexicon_config"`

	path string // The file the config was loaded from, where updates are saved.
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:        ":7280",
		LogLevel:       "info",
		DataDir:        "./data",
		DatabasePath:   "./data/lexicogenesis.db?_journal_mode=WAL&_busy_timeout=5000",
		CorpusPath:     "./data/markov_db.json",
		LiteCorpusPath: "./data/markov_db_lite.json",
	}
}

// DefaultLexiconConfig creates a lexicon configuration with default values.
func DefaultLexiconConfig() *LexiconConfig {
	return &LexiconConfig{
		CharOrder:     markov.DefaultCharOrder,
		WordOrder:     markov.DefaultWordOrder,
		LiteSize:      dictionary.DefaultLiteSize,
		UpgradeSource: upgradeSourceFile,
		WatchCorpus:   false,
	}
}

// DefaultConfig returns a Config with every section at its defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:  DefaultServerConfig(),
		Lexicon: DefaultLexiconConfig(),
	}
}

// LoadConfig reads the configuration from the file at the given path. The
// format follows the extension: .toml, .yaml or .yml, and JSON otherwise.
// Sections or fields missing from the file keep their defaults. If the file
// doesn't exist, it is created in that format with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	config.path = path

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			if err = saveConfig(path, config); err != nil {
				// Log a warning instead of failing, as the server can still run with defaults.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		// For other errors (e.g., permission denied), return the error.
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = decodeConfig(path, file, config); err != nil {
		return nil, err
	}
	return config, config.validate()
}

// decodeConfig decodes data over config in the format path's extension picks,
// then restores any section the data set to null.
func decodeConfig(path string, data []byte, config *Config) error {
	var err error
	switch configFormat(path) {
	case ".toml":
		if _, err = toml.Decode(string(data), config); err != nil {
			return fmt.Errorf("failed to parse TOML config file: %w", err)
		}
	case ".yaml":
		if err = yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		if err = json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Lexicon == nil {
		config.Lexicon = DefaultLexiconConfig()
	}
	return nil
}

// saveConfig writes config to path atomically, encoded in the format the
// extension picks, so LoadConfig can read it back.
func saveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	switch configFormat(path) {
	case ".toml":
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return fmt.Errorf("failed to encode TOML config: %w", err)
		}
	case ".yaml":
		data, err := yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to encode YAML config: %w", err)
		}
		buf.Write(data)
	default:
		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		buf.Write(data)
	}
	return atomic.WriteFile(path, &buf)
}

// configFormat returns ".toml", ".yaml" or ".json" for path.
func configFormat(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return ext
	case ".yaml", ".yml":
		return ".yaml"
	default:
		return ".json"
	}
}

func (c *Config) validate() error {
	if c.Lexicon.CharOrder < 1 || c.Lexicon.WordOrder < 1 {
		return fmt.Errorf("invalid config: orders must be positive (char %d, word %d)", c.Lexicon.CharOrder, c.Lexicon.WordOrder)
	}
	switch c.Lexicon.UpgradeSource {
	case upgradeSourceFile, upgradeSourceDatabase:
	default:
		return fmt.Errorf("invalid config: upgrade_source %q, want %q or %q", c.Lexicon.UpgradeSource, upgradeSourceFile, upgradeSourceDatabase)
	}
	return nil
}

// parseLogLevel maps a config level name to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	for _, file := range []string{"config.json", "config.toml", "config.yaml", "config.yml"} {
		t.Run(file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), file)

			config, err := LoadConfig(path)
			require.NoError(t, err)
			defaults := DefaultConfig()
			require.Equal(t, defaults.Server, config.Server)
			require.Equal(t, defaults.Lexicon, config.Lexicon)

			_, err = os.Stat(path)
			require.NoError(t, err, "default config file should have been written")

			// The written file must decode in the format its extension names.
			reloaded, err := LoadConfig(path)
			require.NoError(t, err)
			require.Equal(t, config.Server, reloaded.Server)
			require.Equal(t, config.Lexicon, reloaded.Lexicon)
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	config := DefaultConfig()
	config.Server.ApiAddr = ":8123"
	config.Lexicon.CharOrder = 4
	config.Lexicon.Seed = 99
	config.Lexicon.DefinitionTerminator = "!"
	config.Lexicon.PrebuiltModelPath = "./data/char_model.json"

	for _, file := range []string{"config.json", "config.toml", "config.yaml"} {
		t.Run(file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), file)
			require.NoError(t, saveConfig(path, config))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			require.Equal(t, config.Server, loaded.Server)
			require.Equal(t, config.Lexicon, loaded.Lexicon)
		})
	}
}

func TestLoadConfigFormats(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `
[server_config]
api_addr = ":9999"
log_level = "debug"

[lexicon_config]
char_order = 4
upgrade_source = "database"
`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
server_config:
  api_addr: ":9999"
  log_level: debug
lexicon_config:
  char_order: 4
  upgrade_source: database
`,
		},
		{
			name: "yml",
			file: "config.yml",
			content: `
server_config: {api_addr: ":9999", log_level: debug}
lexicon_config: {char_order: 4, upgrade_source: database}
`,
		},
		{
			name: "json",
			file: "config.json",
			content: `{
  "server_config": {"api_addr": ":9999", "log_level": "debug"},
  "lexicon_config": {"char_order": 4, "upgrade_source": "database"}
}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			writeFile(t, path, tc.content)

			config, err := LoadConfig(path)
			require.NoError(t, err)
			require.Equal(t, ":9999", config.Server.ApiAddr)
			require.Equal(t, "debug", config.Server.LogLevel)
			require.Equal(t, 4, config.Lexicon.CharOrder)
			require.Equal(t, upgradeSourceDatabase, config.Lexicon.UpgradeSource)

			// Fields absent from the file keep their defaults.
			defaults := DefaultConfig()
			require.Equal(t, defaults.Server.CorpusPath, config.Server.CorpusPath)
			require.Equal(t, defaults.Lexicon.WordOrder, config.Lexicon.WordOrder)
			require.Equal(t, defaults.Lexicon.LiteSize, config.Lexicon.LiteSize)
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
	}{
		{"malformed json", "config.json", `{"server_config": `},
		{"malformed toml", "config.toml", "[server_config\napi_addr = 1"},
		{"malformed yaml", "config.yaml", "server_config: [unclosed"},
		{"bad upgrade source", "config.json", `{"lexicon_config": {"upgrade_source": "ftp"}}`},
		{"bad order", "config.json", `{"lexicon_config": {"char_order": 0}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			writeFile(t, path, tc.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
		})
	}
}

func TestLoadConfigNullSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"server_config": null}`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, DefaultServerConfig(), config.Server)
}

func TestParseLogLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range testCases {
		require.Equal(t, want, parseLogLevel(input), "level %q", input)
	}
}

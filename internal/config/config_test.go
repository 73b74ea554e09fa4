package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"docent/internal/config"
	"docent/internal/textutil"
)

func clearAPIKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DOCENT_LLM_API_KEY", "OPENROUTER_API_KEY", "LOVABLE_API_KEY", "DOCENT_SHEET_URL", "DOCENT_API_TOKEN", "DOCENT_NTFY_TOPIC"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearAPIKeyEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "docent", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "docent")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.RegistryPath() != filepath.Join(wantData, "registry.db") {
		t.Fatalf("unexpected registry path: %q", cfg.RegistryPath())
	}
	if cfg.LockPath() != filepath.Join(wantData, "docent.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
	if cfg.Server.Bind != "127.0.0.1:8787" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Matching.Threshold != 0.82 {
		t.Fatalf("unexpected threshold: %v", cfg.Matching.Threshold)
	}
	if diff := cmp.Diff(textutil.DefaultStopwords, cfg.Matching.Stopwords); diff != "" {
		t.Fatalf("stopwords mismatch (-want +got):\n%s", diff)
	}
	cfg.Matching.Stopwords[0] = "changed"
	if textutil.DefaultStopwords[0] == "changed" {
		t.Fatal("config stopwords must not alias the tokenizer defaults")
	}
	if !cfg.Registry.SampleFallback {
		t.Fatal("expected sample fallback enabled by default")
	}
	if cfg.LLM.APIKey != "" {
		t.Fatalf("expected empty api key, got %q", cfg.LLM.APIKey)
	}
	if err := cfg.RequireLLM(); err == nil {
		t.Fatal("expected RequireLLM to fail without a key")
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearAPIKeyEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "docent.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Server struct {
			Bind string `toml:"bind"`
		} `toml:"server"`
		LLM struct {
			APIKey string `toml:"api_key"`
			Model  string `toml:"model"`
		} `toml:"llm"`
		Matching struct {
			Threshold float64  `toml:"threshold"`
			Stopwords []string `toml:"stopwords"`
		} `toml:"matching"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Server.Bind = "0.0.0.0:9000"
	custom.LLM.APIKey = "abc123"
	custom.LLM.Model = "openai/gpt-4o-mini"
	custom.Matching.Threshold = 0.9
	custom.Matching.Stopwords = []string{" Museum ", "museum", "", "Replica"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != custom.Paths.DataDir {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Server.Bind != "0.0.0.0:9000" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if got := cfg.GetLLM(); got.APIKey != "abc123" || got.Model != "openai/gpt-4o-mini" {
		t.Fatalf("unexpected llm settings: %+v", got)
	}
	if cfg.LLM.BaseURL == "" || cfg.LLM.TimeoutSeconds <= 0 {
		t.Fatalf("expected llm defaults to survive partial config: %+v", cfg.LLM)
	}
	if cfg.Matching.Threshold != 0.9 {
		t.Fatalf("unexpected threshold: %v", cfg.Matching.Threshold)
	}
	if diff := cmp.Diff([]string{"museum", "replica"}, cfg.Matching.Stopwords); diff != "" {
		t.Fatalf("stopwords mismatch (-want +got):\n%s", diff)
	}
}

func TestAPIKeyEnvFallbackOrder(t *testing.T) {
	clearAPIKeyEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("LOVABLE_API_KEY", "lovable")
	t.Setenv("OPENROUTER_API_KEY", "openrouter")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "openrouter" {
		t.Fatalf("expected OPENROUTER_API_KEY to win over LOVABLE_API_KEY, got %q", cfg.LLM.APIKey)
	}

	t.Setenv("DOCENT_LLM_API_KEY", "docent")
	cfg, _, _, err = config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "docent" {
		t.Fatalf("expected DOCENT_LLM_API_KEY to win, got %q", cfg.LLM.APIKey)
	}
	if err := cfg.RequireLLM(); err != nil {
		t.Fatalf("RequireLLM: %v", err)
	}
}

func TestConfigFileKeyBeatsEnv(t *testing.T) {
	clearAPIKeyEnv(t)
	path := filepath.Join(t.TempDir(), "docent.toml")
	if err := os.WriteFile(path, []byte("[llm]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENROUTER_API_KEY", "env-key")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("expected file key, got %q", cfg.LLM.APIKey)
	}
}

func TestAPITokenEnvFallback(t *testing.T) {
	clearAPIKeyEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("DOCENT_API_TOKEN", "  kiosk-admin  ")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.APIToken != "kiosk-admin" {
		t.Fatalf("expected env token, got %q", cfg.Server.APIToken)
	}

	path := filepath.Join(t.TempDir(), "docent.toml")
	if err := os.WriteFile(path, []byte("[server]\napi_token = \"from-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err = config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.APIToken != "from-file" {
		t.Fatalf("expected file token, got %q", cfg.Server.APIToken)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docent.toml")
	if err := os.WriteFile(path, []byte("[matching\nthreshold = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	clearAPIKeyEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "docent") {
		t.Fatalf("expected data dir to contain docent, got %q", cfg.Paths.DataDir)
	}
	if cfg.Matching.Threshold != 0.82 {
		t.Fatalf("expected sample threshold 0.82, got %v", cfg.Matching.Threshold)
	}

	// The sample must load cleanly as-is.
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load(sample): %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero threshold", func(c *config.Config) { c.Matching.Threshold = 0 }},
		{"threshold above one", func(c *config.Config) { c.Matching.Threshold = 1.01 }},
		{"empty bind", func(c *config.Config) { c.Server.Bind = "" }},
		{"bind without port", func(c *config.Config) { c.Server.Bind = "localhost" }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "trace" }},
		{"non-positive timeout", func(c *config.Config) { c.LLM.TimeoutSeconds = 0 }},
		{"relative base url", func(c *config.Config) { c.LLM.BaseURL = "/v1/chat" }},
		{"ftp sheet url", func(c *config.Config) { c.Registry.SheetURL = "ftp://example.com/sheet.csv" }},
		{"negative sync interval", func(c *config.Config) { c.Registry.SyncIntervalMinutes = -5 }},
		{"negative cooldown", func(c *config.Config) { c.Notifications.CooldownMinutes = -1 }},
		{"relative ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "museum-docent" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	cfg.Matching.Threshold = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("threshold 1 should be valid: %v", err)
	}
}

func TestSyncIntervalRequiresSheet(t *testing.T) {
	cfg := config.Default()
	cfg.Registry.SyncIntervalMinutes = 15
	if got := cfg.SyncInterval(); got != 0 {
		t.Fatalf("expected no sync without a sheet, got %v", got)
	}
	cfg.Registry.SheetURL = "https://example.com/sheet.csv"
	if got := cfg.SyncInterval(); got != 15*time.Minute {
		t.Fatalf("unexpected sync interval %v", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if cfg.LogPath() != filepath.Join(cfg.Paths.LogDir, "docent.log") {
		t.Fatalf("unexpected log path: %q", cfg.LogPath())
	}
}

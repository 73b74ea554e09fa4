package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	dataDir    string
	baseDir    string
}

type testConfigOption func(*strings.Builder)

func withLLM(baseURL, apiKey string) testConfigOption {
	return func(b *strings.Builder) {
		fmt.Fprintf(b, "\n[llm]\nbase_url = %q\napi_key = %q\ntimeout_seconds = 5\n", baseURL, apiKey)
	}
}

func withSheet(url string) testConfigOption {
	return func(b *strings.Builder) {
		fmt.Fprintf(b, "\n[registry]\nsheet_url = %q\nsample_fallback = false\n", url)
	}
}

func withNtfy(topic string) testConfigOption {
	return func(b *strings.Builder) {
		fmt.Fprintf(b, "\n[notifications]\nntfy_topic = %q\n", topic)
	}
}

func setupCLITestEnv(t *testing.T, opts ...testConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, name := range []string{"DOCENT_LLM_API_KEY", "OPENROUTER_API_KEY", "LOVABLE_API_KEY", "DOCENT_SHEET_URL", "DOCENT_API_TOKEN", "DOCENT_NTFY_TOPIC"} {
		t.Setenv(name, "")
	}

	dataDir := filepath.Join(base, "data")
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\ndata_dir = %q\nlog_dir = \"\"\n\n[logging]\nlevel = \"error\"\n", dataDir)
	for _, opt := range opts {
		opt(&b)
	}
	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{configPath: configPath, dataDir: dataDir, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, nil)
}

func runCLIWithInput(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, contents string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

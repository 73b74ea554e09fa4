package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"docent/internal/registry"
	"docent/internal/resolution"
)

const registryCSV = `name,date,description,photos
Berliner Gramophone,1895,Hand-cranked disc player.,https://example.org/g1.jpg; https://example.org/g2.jpg
Victor Talking Machine,1906,Horn phonograph.,
RCA Ribbon Microphone,1931,Bidirectional broadcast microphone.,https://example.org/rca.jpg
`

func importRegistry(t *testing.T, env *cliTestEnv) {
	t.Helper()
	csvPath := writeFile(t, filepath.Join(env.baseDir, "registry.csv"), registryCSV)
	out, _, err := runCLI(t, []string{"registry", "import", csvPath}, env.configPath)
	if err != nil {
		t.Fatalf("registry import: %v", err)
	}
	requireContains(t, out, "Imported 3 artifacts")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "api key set: no")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsBadThreshold(t *testing.T) {
	env := setupCLITestEnv(t)
	path := writeFile(t, filepath.Join(env.baseDir, "bad.toml"), "[matching]\nthreshold = 1.5\n")
	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatal("expected invalid threshold to fail")
	}
}

func TestRegistryImportListRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	importRegistry(t, env)

	out, _, err := runCLI(t, []string{"registry", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("registry list: %v", err)
	}
	var entries []registry.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if diff := cmp.Diff([]string{"https://example.org/g1.jpg", "https://example.org/g2.jpg"}, entries[0].Photos); diff != "" {
		t.Fatalf("photos mismatch (-want +got):\n%s", diff)
	}

	out, _, err = runCLI(t, []string{"registry", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("registry list table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "ID\tName\tDate\tPhotos" || len(lines) != 4 {
		t.Fatalf("unexpected TSV output:\n%s", out)
	}

	id := entries[1].ID
	out, _, err = runCLI(t, []string{"registry", "remove", id}, env.configPath)
	if err != nil {
		t.Fatalf("registry remove: %v", err)
	}
	requireContains(t, out, "Removed "+id)

	_, _, err = runCLI(t, []string{"registry", "remove", id}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRegistryImportReplace(t *testing.T) {
	env := setupCLITestEnv(t)
	importRegistry(t, env)

	csvPath := writeFile(t, filepath.Join(env.baseDir, "small.csv"), "id,name\nedison,Edison Phonograph\n")
	if _, _, err := runCLI(t, []string{"registry", "import", "--replace", csvPath}, env.configPath); err != nil {
		t.Fatalf("registry import --replace: %v", err)
	}
	out, _, err := runCLI(t, []string{"registry", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("registry list: %v", err)
	}
	var entries []registry.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "edison" {
		t.Fatalf("unexpected entries after replace: %+v", entries)
	}
}

func TestRegistrySync(t *testing.T) {
	sheet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, registryCSV)
	}))
	defer sheet.Close()

	env := setupCLITestEnv(t, withSheet(sheet.URL))
	out, _, err := runCLI(t, []string{"registry", "sync"}, env.configPath)
	if err != nil {
		t.Fatalf("registry sync: %v", err)
	}
	requireContains(t, out, "Synced 3 artifacts")
}

func TestRegistrySyncWithoutURL(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"registry", "sync"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "sheet_url") {
		t.Fatalf("expected sheet_url error, got %v", err)
	}
}

func TestResolveCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	importRegistry(t, env)

	out, _, err := runCLI(t, []string{"resolve", "--name", "rca ribbon microphone", "--matched"}, env.configPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var got resolution.Response
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Provenance != resolution.ProvenanceRegistry || got.Name != "RCA Ribbon Microphone" || got.Date != "1931" {
		t.Fatalf("unexpected response %+v", got)
	}

	stdin := strings.NewReader(`{"name":"RCA Ribbon Microphone","date":"1930s","matched":false}`)
	out, _, err = runCLIWithInput(t, []string{"resolve", "--file", "-"}, env.configPath, stdin)
	if err != nil {
		t.Fatalf("resolve --file -: %v", err)
	}
	got = resolution.Response{}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Provenance != resolution.ProvenanceGuess || got.Date != "1930s" {
		t.Fatalf("claim gate not honoured: %+v", got)
	}
}

func TestMatchCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	importRegistry(t, env)

	out, _, err := runCLI(t, []string{"match", "--json", "Berliner", "Gramophone"}, env.configPath)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	var rows []matchRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(rows) != 3 || rows[0].Name != "Berliner Gramophone" || !rows[0].Accepted || rows[0].Kind != "exact" {
		t.Fatalf("unexpected ranking %+v", rows)
	}
	for _, row := range rows[1:] {
		if row.Accepted {
			t.Fatalf("only the top row may be accepted: %+v", rows)
		}
	}

	out, _, err = runCLI(t, []string{"match", "-n", "1", "Victor Radio"}, env.configPath)
	if err != nil {
		t.Fatalf("match table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID\tName\tScore") || !strings.HasSuffix(lines[1], "\tno") {
		t.Fatalf("unexpected match output:\n%s", out)
	}
}

func TestAnalyzeRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"analyze", "https://example.org/photo.jpg"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	var sawImage atomic.Bool
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		encoded, _ := json.Marshal(payload)
		sawImage.Store(strings.Contains(string(encoded), "https://example.org/photo.jpg"))
		content := `{"name":"Victor Talking Machine","date":"c. 1905","description":"A horn gramophone.","matched":true}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
	}))
	defer model.Close()

	env := setupCLITestEnv(t, withLLM(model.URL, "test-key"))
	importRegistry(t, env)

	out, _, err := runCLI(t, []string{"analyze", "https://example.org/photo.jpg"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !sawImage.Load() {
		t.Fatal("expected image url to reach the model")
	}
	var got resolution.Response
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	want := resolution.Response{
		Provenance:  resolution.ProvenanceRegistry,
		ID:          "artifact-2",
		Name:        "Victor Talking Machine",
		Date:        "1906",
		Description: "Horn phonograph.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusLocal(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status", "--local", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --local: %v\n%s", err, out)
	}
	requireContains(t, out, `"Data directory"`)
	requireContains(t, out, `"passed": true`)
}

func TestStatusReportsMissingAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "1 of 4 checks failed") {
		t.Fatalf("expected one failed check, got %v", err)
	}
	requireContains(t, out, "Vision model\tFAIL\tAPI key missing")
}

func TestLogsRequiresLogDir(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "file logging is disabled") {
		t.Fatalf("expected disabled logging error, got %v", err)
	}
}

func TestLogsPrintsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(env.baseDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	writeFile(t, filepath.Join(logDir, "docent.log"), "first\nsecond\nthird\n")
	config := fmt.Sprintf("[paths]\ndata_dir = %q\nlog_dir = %q\n", env.dataDir, logDir)
	configPath := writeFile(t, filepath.Join(env.baseDir, "logs.toml"), config)

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "second\nthird\n" {
		t.Fatalf("logs output = %q", out)
	}
}

func TestTestNotify(t *testing.T) {
	var titles []string
	var mu sync.Mutex
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		mu.Unlock()
	}))
	defer ntfy.Close()

	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify without topic: %v", err)
	}
	requireContains(t, out, "not set")

	env = setupCLITestEnv(t, withNtfy(ntfy.URL+"/docent"))
	out, _, err = runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"Docent - Test"}, titles); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTSVFlattensCells(t *testing.T) {
	var b strings.Builder
	if err := writeTable(&b, []string{"A", "B"}, [][]string{{"x\ty", "line\nbreak"}, {"only"}}, nil); err != nil {
		t.Fatalf("writeTable: %v", err)
	}
	want := "A\tB\nx y\tline break\nonly\t\n"
	if b.String() != want {
		t.Fatalf("unexpected TSV %q", b.String())
	}
}

func TestLoopbackBind(t *testing.T) {
	for bind, want := range map[string]bool{
		"127.0.0.1:8787": true,
		"localhost:80":   true,
		"[::1]:8787":     true,
		"0.0.0.0:8787":   false,
		":8787":          false,
	} {
		if got := loopbackBind(bind); got != want {
			t.Errorf("loopbackBind(%q) = %v, want %v", bind, got, want)
		}
	}
}

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/models"
)

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
pipeline:
  vectorization: dense
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Pipeline.Vectorization != "dense" {
		t.Errorf("vectorization = %q", cfg.Pipeline.Vectorization)
	}
}

func TestLoadConfig_missingExplicitPathFails(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoadConfig_missingDefaultUsesBuiltins(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("default config exists on this machine")
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want empty for built-in defaults", resolved)
	}
	if cfg.Pipeline.Segmentation == "" || cfg.Server.Port == 0 {
		t.Errorf("defaults not applied: %+v", cfg.Pipeline)
	}
}

func TestPipelineFlags_apply(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	before := cfg.Pipeline

	mode, k, seg, vec := "", 0, "", ""
	pipelineFlags{mode: &mode, k: &k, segmentation: &seg, vectorization: &vec}.apply(cfg)
	if cfg.Pipeline.Synthesis != before.Synthesis || cfg.Pipeline.K != before.K {
		t.Errorf("empty flags changed config: %+v", cfg.Pipeline)
	}

	mode, k, seg, vec = "generative", 7, "sparse", "dense"
	pipelineFlags{mode: &mode, k: &k, segmentation: &seg, vectorization: &vec}.apply(cfg)
	if cfg.Pipeline.Synthesis != "generative" || cfg.Pipeline.K != 7 ||
		cfg.Pipeline.Segmentation != "sparse" || cfg.Pipeline.Vectorization != "dense" {
		t.Errorf("flags not applied: %+v", cfg.Pipeline)
	}
}

func TestWantsGenerator(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want bool
	}{
		{"extractive without credentials", config.Config{Pipeline: config.PipelineConfig{Synthesis: "extractive"}}, false},
		{"generative", config.Config{Pipeline: config.PipelineConfig{Synthesis: "generative"}}, true},
		{"openai key", config.Config{Generation: config.GenerationConfig{Provider: llm.ProviderOpenAI, APIKey: "sk"}}, true},
		{"bedrock region", config.Config{Generation: config.GenerationConfig{Provider: llm.ProviderBedrock, Region: "us-east-1"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wantsGenerator(&tt.cfg); got != tt.want {
				t.Errorf("wantsGenerator() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_askAndUpload(t *testing.T) {
	var gotAsk askPayload
	mux := http.NewServeMux()
	mux.HandleFunc("/ask", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotAsk)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"answer": "Cats purr.", "mode": "extractive", "evidence_unit_ordinals": []int{0},
		})
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil || hdr.Filename != "pets.pdf" {
			http.Error(w, `{"error":"bad form"}`, http.StatusBadRequest)
			return
		}
		f.Close()
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "PDF uploaded successfully", "Id": "doc-1"})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	answer, err := askViaHTTP(ts.URL, askPayload{Question: "what purrs", FileID: "doc-1", K: 2})
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text != "Cats purr." || len(answer.Evidence) != 1 {
		t.Errorf("unexpected answer %+v", answer)
	}
	if gotAsk.FileID != "doc-1" || gotAsk.K != 2 || gotAsk.Mode != "" {
		t.Errorf("unexpected payload %+v", gotAsk)
	}

	id, err := uploadViaHTTP(ts.URL, "pets.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatal(err)
	}
	if id != "doc-1" {
		t.Errorf("id = %q", id)
	}
}

func TestClient_errorCarriesServerMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"File not found."}`))
	}))
	defer ts.Close()

	err := deleteViaHTTP(ts.URL, "missing")
	if err == nil || !strings.Contains(err.Error(), "File not found.") || !strings.Contains(err.Error(), "404") {
		t.Errorf("unexpected error %v", err)
	}
	if _, err := listViaHTTP(ts.URL); err == nil {
		t.Error("expected list error")
	}
}

func TestClient_inbox(t *testing.T) {
	var removed string
	mux := http.NewServeMux()
	mux.HandleFunc("/inbox/directories", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string][]string{"directories": {"/srv/inbox"}})
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"status":"added"}`))
		case http.MethodDelete:
			removed = r.URL.Query().Get("path")
			_, _ = w.Write([]byte(`{"status":"removed"}`))
		}
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	dirs, err := inboxListViaHTTP(ts.URL)
	if err != nil || len(dirs) != 1 || dirs[0] != "/srv/inbox" {
		t.Fatalf("list = %v, %v", dirs, err)
	}
	if err := inboxAddViaHTTP(ts.URL, "/srv/other"); err != nil {
		t.Fatal(err)
	}
	if err := inboxRemoveViaHTTP(ts.URL, "/srv/my inbox"); err != nil {
		t.Fatal(err)
	}
	if removed != "/srv/my inbox" {
		t.Errorf("removed = %q", removed)
	}
}

// setArgs replaces os.Args for the duration of the test.
func setArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"docqa"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestRunAsk_fileValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
pipeline:
  synthesis: poetic
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	doc := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(doc, []byte("Cats purr."), 0600); err != nil {
		t.Fatal(err)
	}
	setArgs(t, "ask", "--config", configPath, "--file", doc, "what", "purrs")

	err := runAsk()
	if !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("runAsk() = %v, want ErrConfiguration", err)
	}
	if !strings.Contains(err.Error(), "pipeline.synthesis") {
		t.Errorf("error should name the invalid setting: %v", err)
	}
}

func TestRunUpload_returnsReadError(t *testing.T) {
	setArgs(t, "upload", "--server", "http://127.0.0.1:1", filepath.Join(t.TempDir(), "missing.pdf"))

	err := runUpload()
	if err == nil || errors.Is(err, errUsage) {
		t.Fatalf("runUpload() = %v, want read error", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap the read failure: %v", err)
	}
}

func TestRunInbox_usageErrors(t *testing.T) {
	setArgs(t, "inbox", "rename")
	if err := runInbox(); !errors.Is(err, errUsage) {
		t.Errorf("unknown subcommand: err = %v, want errUsage", err)
	}
	setArgs(t, "inbox", "add")
	if err := runInbox(); !errors.Is(err, errUsage) {
		t.Errorf("missing path: err = %v, want errUsage", err)
	}
}

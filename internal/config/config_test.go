package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func resetForTest(t *testing.T) string {
	t.Helper()
	viper.Reset()
	cfg = Config{}
	configFile = ""
	explicit = ""
	// Prevent accidentally reading a real user config from HOME.
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LMCI_HOME", filepath.Join(home, ".llm_cli"))
	for _, name := range KeyNames {
		t.Setenv(name, "")
		t.Setenv(envPrefix+"_"+name, "")
	}
	return filepath.Join(home, ".llm_cli")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestInit_SetsDefaults(t *testing.T) {
	resetForTest(t)
	Init()

	c := Get()
	if c.Default.Provider != "openai" || c.Default.Model != "gpt-4o" {
		t.Fatalf("unexpected default model %s:%s", c.Default.Provider, c.Default.Model)
	}
	if c.Render.Engine != "glamour" {
		t.Fatalf("expected render.engine default %q, got %q", "glamour", c.Render.Engine)
	}
	if c.Render.FlushThreshold != 2048 {
		t.Fatalf("expected render.flush_threshold default 2048, got %d", c.Render.FlushThreshold)
	}
	if c.Request.Timeout != 120*time.Second {
		t.Fatalf("expected request.timeout default 120s, got %v", c.Request.Timeout)
	}
	if !c.Store.Enabled {
		t.Fatal("expected store.enabled default to be true")
	}
	if len(Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", Keys())
	}

	if GetConfigPath() != "" {
		t.Fatalf("expected no config file to be loaded in tests, got %q", GetConfigPath())
	}
}

func TestInit_ReadsOriginalKeyFile(t *testing.T) {
	dir := resetForTest(t)
	writeFile(t, filepath.Join(dir, "config.json"), `{
  "GROQ_API_KEY": "gsk-test",
  "OPENAI_API_KEY": "",
  "render": {"engine": "plain", "width": 72}
}`)

	Init()
	c := Get()

	if GetConfigPath() != filepath.Join(dir, "config.json") {
		t.Fatalf("expected config file to be loaded, got %q", GetConfigPath())
	}
	keys := Keys()
	if keys["GROQ_API_KEY"] != "gsk-test" {
		t.Fatalf("expected groq key from file, got %q", keys["GROQ_API_KEY"])
	}
	if _, ok := keys["OPENAI_API_KEY"]; ok {
		t.Fatal("expected empty key to be skipped")
	}
	if c.Render.Engine != "plain" || c.Render.Width != 72 {
		t.Fatalf("expected render settings from file, got %+v", c.Render)
	}
}

func TestInit_EnvOverrides(t *testing.T) {
	resetForTest(t)
	t.Setenv("LMCI_RENDER_ENGINE", "mdf")
	t.Setenv("LMCI_REQUEST_TIMEOUT", "30s")
	t.Setenv("OPENAI_API_KEY", "sk-bare")
	t.Setenv("LMCI_ANTHROPIC_API_KEY", "sk-ant-prefixed")

	Init()
	c := Get()

	if c.Render.Engine != "mdf" {
		t.Fatalf("expected render.engine override %q, got %q", "mdf", c.Render.Engine)
	}
	if c.Request.Timeout != 30*time.Second {
		t.Fatalf("expected request.timeout override 30s, got %v", c.Request.Timeout)
	}
	keys := Keys()
	if keys["OPENAI_API_KEY"] != "sk-bare" {
		t.Fatalf("expected bare env key, got %q", keys["OPENAI_API_KEY"])
	}
	if keys["ANTHROPIC_API_KEY"] != "sk-ant-prefixed" {
		t.Fatalf("expected prefixed env key, got %q", keys["ANTHROPIC_API_KEY"])
	}
}

func TestInit_LoadsDotenvWithoutOverriding(t *testing.T) {
	dir := resetForTest(t)
	writeFile(t, filepath.Join(dir, ".env"), "CEREBRAS_API_KEY=from-dotenv\nGROQ_API_KEY=from-dotenv\n")
	t.Setenv("GROQ_API_KEY", "from-env")
	// t.Setenv registered the variable as empty; drop it so the .env value applies.
	os.Unsetenv("CEREBRAS_API_KEY")

	Init()
	keys := Keys()

	if keys["CEREBRAS_API_KEY"] != "from-dotenv" {
		t.Fatalf("expected .env value, got %q", keys["CEREBRAS_API_KEY"])
	}
	if keys["GROQ_API_KEY"] != "from-env" {
		t.Fatalf("expected process env to win, got %q", keys["GROQ_API_KEY"])
	}
}

func TestInit_ExplicitConfigFile(t *testing.T) {
	resetForTest(t)
	path := filepath.Join(t.TempDir(), "custom.json")
	writeFile(t, path, `{"default": {"provider": "openai", "model": "gpt-4o"}}`)

	SetConfigFile(path)
	Init()
	c := Get()

	if c.Default.Provider != "openai" || c.Default.Model != "gpt-4o" {
		t.Fatalf("expected model from explicit file, got %s:%s", c.Default.Provider, c.Default.Model)
	}
	if GetConfigPath() != path {
		t.Fatalf("expected config path %q, got %q", path, GetConfigPath())
	}
}

func TestBindFlags_ModelOverride(t *testing.T) {
	resetForTest(t)
	Init()

	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().String("model", "", "")
	cmd.PersistentFlags().String("provider", "", "")
	cmd.PersistentFlags().String("engine", "", "")
	BindFlags(cmd)

	if err := cmd.PersistentFlags().Set("model", "gpt-4"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.PersistentFlags().Set("engine", "plain"); err != nil {
		t.Fatal(err)
	}

	c := Get()
	if c.Default.Model != "gpt-4" {
		t.Fatalf("expected flag model %q, got %q", "gpt-4", c.Default.Model)
	}
	if c.Render.Engine != "plain" {
		t.Fatalf("expected flag engine %q, got %q", "plain", c.Render.Engine)
	}
	if c.Default.Provider != "openai" {
		t.Fatalf("expected unset provider flag to keep default, got %q", c.Default.Provider)
	}
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("config is not JSON: %v", err)
	}
	return out
}

func TestSaveKeys(t *testing.T) {
	dir := resetForTest(t)
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, `{"GROQ_API_KEY": "old", "OPENAI_API_KEY": "keep", "render": {"engine": "plain"}}`)
	t.Setenv("ANTHROPIC_API_KEY", "env-only")
	Init()

	if err := SaveKeys(map[string]string{"GROQ_API_KEY": " new ", "OPENAI_API_KEY": "", "CEREBRAS_API_KEY": "c"}); err != nil {
		t.Fatalf("SaveKeys() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	saved := readJSON(t, path)
	if saved["groq_api_key"] != "new" {
		t.Fatalf("expected trimmed new groq key, got %v", saved["groq_api_key"])
	}
	if _, ok := saved["openai_api_key"]; ok {
		t.Fatal("expected removed key to be dropped from the file")
	}
	if _, ok := saved["anthropic_api_key"]; ok {
		t.Fatal("environment key must not be persisted")
	}
	if render, _ := saved["render"].(map[string]any); render["engine"] != "plain" {
		t.Fatalf("expected other settings to survive, got %v", saved["render"])
	}

	keys := Keys()
	if keys["GROQ_API_KEY"] != "new" || keys["CEREBRAS_API_KEY"] != "c" {
		t.Fatalf("expected running config to pick up saved keys, got %v", keys)
	}
	if _, ok := keys["OPENAI_API_KEY"]; ok {
		t.Fatal("expected removed key to be gone from running config")
	}
}

func TestSetDefaultModel_CreatesFile(t *testing.T) {
	dir := resetForTest(t)
	Init()

	if err := SetDefaultModel("anthropic", "claude-3-opus-20240229"); err != nil {
		t.Fatalf("SetDefaultModel() error = %v", err)
	}

	saved := readJSON(t, filepath.Join(dir, "config.json"))
	def, _ := saved["default"].(map[string]any)
	if def["provider"] != "anthropic" || def["model"] != "claude-3-opus-20240229" {
		t.Fatalf("unexpected saved default %v", saved["default"])
	}

	c := Get()
	if c.Default.Model != "claude-3-opus-20240229" {
		t.Fatalf("expected running default to change, got %q", c.Default.Model)
	}
}

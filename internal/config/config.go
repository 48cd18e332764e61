// Package config manages application configuration using viper.
// It supports configuration from a JSON file (~/.llm_cli/config.json),
// .env files, environment variables (LMCI_ prefix, plus the bare provider
// key variables) and command-line flags with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration values.
type Config struct {
	Default DefaultConfig `mapstructure:"default"`
	Render  RenderConfig  `mapstructure:"render"`
	Request RequestConfig `mapstructure:"request"`
	Ollama  OllamaConfig  `mapstructure:"ollama"`
	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
}

// DefaultConfig selects the model a chat starts with.
type DefaultConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// RenderConfig controls how replies are drawn.
type RenderConfig struct {
	Engine         string `mapstructure:"engine"`          // glamour, mdf or plain
	Style          string `mapstructure:"style"`           // engine style or theme name; "auto" follows the terminal
	Width          int    `mapstructure:"width"`           // 0 uses the terminal width
	FlushThreshold int    `mapstructure:"flush_threshold"` // bytes of structured prose held before a forced render
}

// RequestConfig bounds provider requests.
type RequestConfig struct {
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// OllamaConfig locates the local Ollama server.
type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// LogConfig sets the diagnostic log level.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StoreConfig controls the session transcript database.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // empty uses sessions.db in the config directory
}

// KeyNames are the API key settings, stored at the top level of the config
// file under these exact names.
var KeyNames = []string{
	"GROQ_API_KEY",
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"CEREBRAS_API_KEY",
	"OPENROUTER_API_KEY",
	"SERPER_API_KEY",
}

const (
	envPrefix      = "LMCI"
	configFileName = "config.json"
	fileMode       = 0o600
	dirMode        = 0o700
)

var (
	cfg        Config
	configFile string
	explicit   string
)

// SetConfigFile makes Init read path instead of the default location.
func SetConfigFile(path string) {
	explicit = path
}

// Init initializes the configuration system by loading .env files, setting
// defaults, reading the config file and enabling environment overrides.
func Init() {
	loadDotenv()
	setDefaults()
	loadConfigFile()
	loadEnvVars()
}

func setDefaults() {
	viper.SetDefault("default.provider", "openai")
	viper.SetDefault("default.model", "gpt-4o")

	viper.SetDefault("render.engine", "glamour")
	viper.SetDefault("render.style", "auto")
	viper.SetDefault("render.width", 0)
	viper.SetDefault("render.flush_threshold", 2048)

	viper.SetDefault("request.max_tokens", 0)
	viper.SetDefault("request.timeout", 120*time.Second)

	viper.SetDefault("ollama.base_url", "http://localhost:11434")

	viper.SetDefault("log.level", "warn")

	viper.SetDefault("store.enabled", true)
	viper.SetDefault("store.path", "")
}

// loadDotenv reads .env from the config directory and the working
// directory. Variables already in the environment win.
func loadDotenv() {
	for _, path := range []string{filepath.Join(Dir(), ".env"), ".env"} {
		_ = gotenv.Load(path)
	}
}

func loadConfigFile() {
	path := explicit
	if path == "" {
		path = DefaultPath()
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err == nil {
		configFile = viper.ConfigFileUsed()
	}
}

func loadEnvVars() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Keys are also read from the variables the providers document.
	for _, name := range KeyNames {
		_ = viper.BindEnv(name, envPrefix+"_"+name, name)
	}
}

// BindFlags binds cobra command-line flags to viper configuration values.
func BindFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("default.model", cmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("default.provider", cmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("render.engine", cmd.PersistentFlags().Lookup("engine"))
}

// Get returns the current configuration by unmarshaling all viper values.
func Get() *Config {
	_ = viper.Unmarshal(&cfg)
	return &cfg
}

// Keys returns every configured API key by name, skipping empty ones.
func Keys() map[string]string {
	keys := make(map[string]string)
	for _, name := range KeyNames {
		if v := strings.TrimSpace(viper.GetString(name)); v != "" {
			keys[name] = v
		}
	}
	return keys
}

// Dir returns the configuration directory: $LMCI_HOME if set, otherwise
// ~/.llm_cli.
func Dir() string {
	if v := os.Getenv("LMCI_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".llm_cli"
	}
	return filepath.Join(home, ".llm_cli")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), configFileName)
}

// GetConfigPath returns the path to the config file that was loaded, or an
// empty string if no config file was found.
func GetConfigPath() string {
	return configFile
}

// writePath is where SaveKeys and SetDefaultModel write.
func writePath() string {
	if explicit != "" {
		return explicit
	}
	return DefaultPath()
}

// SaveKeys merges keys into the config file. An empty value removes the key.
// Only the file's own contents are rewritten, so values that came from the
// environment are never persisted.
func SaveKeys(keys map[string]string) error {
	return update(func(v *viper.Viper) {
		for name, value := range keys {
			v.Set(name, strings.TrimSpace(value))
		}
	}, func(key string) bool {
		value, ok := keys[strings.ToUpper(key)]
		return ok && strings.TrimSpace(value) == ""
	})
}

// SetDefaultModel records the model a chat starts with.
func SetDefaultModel(provider, model string) error {
	return update(func(v *viper.Viper) {
		v.Set("default.provider", provider)
		v.Set("default.model", model)
	}, nil)
}

// update rewrites the config file through a private viper instance. drop
// filters top-level keys out of the result.
func update(apply func(v *viper.Viper), drop func(key string) bool) error {
	path := writePath()
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("json")
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	apply(file)

	out := viper.New()
	out.SetConfigType("json")
	for key, value := range file.AllSettings() {
		if drop != nil && drop(key) {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		out.Set(key, value)
	}
	if err := out.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	if err := os.Chmod(path, fileMode); err != nil {
		return fmt.Errorf("restrict config permissions: %w", err)
	}

	// Keep the running configuration in step with the file.
	if viper.ConfigFileUsed() == path {
		if err := viper.ReadInConfig(); err == nil {
			configFile = path
		}
	}
	return nil
}

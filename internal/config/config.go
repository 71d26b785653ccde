package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Model   ModelConfig   `json:"model"`
	Image   ImageConfig   `json:"image"`
	Storage StorageConfig `json:"storage"`
	Server  ServerConfig  `json:"server"`
	Log     LogConfig     `json:"log"`
}

// ModelConfig selects the vision backend and its sampling settings
type ModelConfig struct {
	Backend         string  `json:"backend"`
	URL             string  `json:"url"`
	Name            string  `json:"name"`
	TimeoutSeconds  int     `json:"timeout_seconds"`
	MaxOutputTokens int     `json:"max_output_tokens"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"top_p"`
	TopK            int     `json:"top_k"`
}

// ImageConfig controls what is sent to the model and how results are saved
type ImageConfig struct {
	SendFormat    string `json:"send_format"`
	SendMaxDim    int    `json:"send_max_dim"`
	SendQuality   int    `json:"send_quality"`
	OutputQuality int    `json:"output_quality"`
	MinImageSize  int    `json:"min_image_size"`
}

// StorageConfig holds the upload directory
type StorageConfig struct {
	UploadDir      string `json:"upload_dir"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Addr string `json:"addr"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Default returns a configuration with default values
func Default() *Config {
	gen := types.DefaultGenerationOptions()
	return &Config{
		Model: ModelConfig{
			Backend:         "ollama",
			URL:             "http://localhost:11434",
			Name:            "qwen2.5vl:7b",
			TimeoutSeconds:  120,
			MaxOutputTokens: gen.MaxOutputTokens,
			Temperature:     gen.Temperature,
			TopP:            gen.TopP,
			TopK:            gen.TopK,
		},
		Image: ImageConfig{
			SendFormat:    "jpg",
			SendMaxDim:    1536,
			SendQuality:   85,
			OutputQuality: 92,
			MinImageSize:  16,
		},
		Storage: StorageConfig{
			UploadDir:      "./uploads",
			MaxUploadBytes: 16 * 1024 * 1024,
		},
		Server: ServerConfig{
			Addr: "localhost:8000",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional JSON file and
// the environment (a .env file in the working directory is honoured).
func Load(path string) (*Config, error) {
	// Missing .env is fine, a broken one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadFromFile loads configuration from a JSON file. Fields absent from
// the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays LAYOUT_* variables read through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("LAYOUT_MODEL_BACKEND", &c.Model.Backend)
	str("LAYOUT_MODEL_URL", &c.Model.URL)
	str("LAYOUT_MODEL_NAME", &c.Model.Name)
	str("LAYOUT_UPLOAD_DIR", &c.Storage.UploadDir)
	str("LAYOUT_LISTEN_ADDR", &c.Server.Addr)
	str("LAYOUT_LOG_LEVEL", &c.Log.Level)
	str("LAYOUT_LOG_FILE", &c.Log.File)

	if err := integer("LAYOUT_MODEL_TIMEOUT", &c.Model.TimeoutSeconds); err != nil {
		return err
	}
	var mb int
	if err := integer("LAYOUT_MAX_UPLOAD_MB", &mb); err != nil {
		return err
	}
	if mb > 0 {
		c.Storage.MaxUploadBytes = int64(mb) * 1024 * 1024
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("model.backend must be ollama or llamacpp, got %q", c.Model.Backend)
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model.name cannot be empty")
	}

	if c.Model.TimeoutSeconds <= 0 {
		return fmt.Errorf("model.timeout_seconds must be positive")
	}

	if c.Model.MaxOutputTokens <= 0 {
		return fmt.Errorf("model.max_output_tokens must be positive")
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model.temperature must be between 0 and 2")
	}

	if c.Model.TopP < 0 || c.Model.TopP > 1 {
		return fmt.Errorf("model.top_p must be between 0 and 1")
	}

	if c.Model.TopK < 0 {
		return fmt.Errorf("model.top_k cannot be negative")
	}

	if c.Image.SendQuality < 1 || c.Image.SendQuality > 100 {
		return fmt.Errorf("image.send_quality must be between 1 and 100")
	}

	if c.Image.OutputQuality < 1 || c.Image.OutputQuality > 100 {
		return fmt.Errorf("image.output_quality must be between 1 and 100")
	}

	if c.Image.MinImageSize < 0 {
		return fmt.Errorf("image.min_image_size cannot be negative")
	}

	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir cannot be empty")
	}

	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage.max_upload_bytes must be positive")
	}

	return nil
}

// Timeout returns the model call deadline
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Model.TimeoutSeconds) * time.Second
}

// GenerationOptions returns the sampling settings for the model call
func (c *Config) GenerationOptions() types.GenerationOptions {
	return types.GenerationOptions{
		MaxOutputTokens: c.Model.MaxOutputTokens,
		Temperature:     c.Model.Temperature,
		TopP:            c.Model.TopP,
		TopK:            c.Model.TopK,
	}
}

// ImageOptions returns the settings used to encode images for the model
func (c *Config) ImageOptions() types.ImageOptions {
	return types.ImageOptions{
		SendFormat:  c.Image.SendFormat,
		SendMaxDim:  c.Image.SendMaxDim,
		SendQuality: c.Image.SendQuality,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "layout-analyzer", "config.json")
}

// ResolvePath returns path when set, otherwise GetConfigPath if that file
// exists, otherwise "" (defaults only).
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	def := GetConfigPath()
	if info, err := os.Stat(def); err == nil && !info.IsDir() {
		return def
	}
	return ""
}

// Package config loads sercha-scan settings from an optional YAML file and
// the environment. Environment variables win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// Run modes
const (
	ModeAPI    = "api"
	ModeWorker = "worker"
	ModeAll    = "all"
)

// Export backends
const (
	ExportPDF    = "pdf"
	ExportScript = "script"
)

// Config is the complete process configuration
type Config struct {
	RunMode   string          `yaml:"run_mode"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	OCR       OCRConfig       `yaml:"ocr"`
	Export    ExportConfig    `yaml:"export"`
	Worker    WorkerConfig    `yaml:"worker"`
	Search    SearchConfig    `yaml:"search"`
	Log       LogConfig       `yaml:"log"`
}

// WorkspaceConfig locates the workspace on disk
type WorkspaceConfig struct {
	Root string `yaml:"root"`
	// StartupFile defaults to <root>/startup.xml
	StartupFile string `yaml:"startup_file"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RedisConfig selects the Redis task queue and lock. An empty URL keeps both in process.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// OCRConfig configures tesseract
type OCRConfig struct {
	// TesseractPath is used when the startup file names no engine
	TesseractPath string        `yaml:"tesseract_path"`
	Language      string        `yaml:"language"`
	Timeout       time.Duration `yaml:"timeout"`
	OnImport      bool          `yaml:"on_import"`
}

// ExportConfig selects and configures the exporter
type ExportConfig struct {
	Backend        string        `yaml:"backend"`
	Python         string        `yaml:"python"`
	Script         string        `yaml:"script"`
	Optimize       bool          `yaml:"optimize"`
	Timeout        time.Duration `yaml:"timeout"`
	OCRConcurrency int           `yaml:"ocr_concurrency"`
}

// WorkerConfig configures background task processing
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	DequeueTimeout  int           `yaml:"dequeue_timeout"` // seconds
	JanitorInterval time.Duration `yaml:"janitor_interval"`
	TaskRetention   time.Duration `yaml:"task_retention"`
}

// SearchConfig configures query handling and result caps
type SearchConfig struct {
	Stemmer        string   `yaml:"stemmer"`
	StopWords      []string `yaml:"stop_words"`
	WorkingLimit   int      `yaml:"working_limit"`
	ElsewhereLimit int      `yaml:"elsewhere_limit"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	opts := domain.DefaultSearchOptions()
	return &Config{
		RunMode:   ModeAll,
		Workspace: WorkspaceConfig{Root: "workspace"},
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8080},
		OCR: OCRConfig{
			Timeout:  2 * time.Minute,
			OnImport: true,
		},
		Export: ExportConfig{
			Backend:        ExportPDF,
			Python:         "python3",
			Timeout:        10 * time.Minute,
			OCRConcurrency: 2,
		},
		Worker: WorkerConfig{
			Concurrency:     2,
			DequeueTimeout:  5,
			JanitorInterval: 10 * time.Minute,
			TaskRetention:   24 * time.Hour,
		},
		Search: SearchConfig{
			// page text is matched unstemmed, so porter only helps queries
			// already typed in stemmed form
			Stemmer:        "none",
			WorkingLimit:   opts.WorkingLimit,
			ElsewhereLimit: opts.ElsewhereLimit,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: config %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read config %s: %w", domain.ErrIO, path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: config %s: %w", domain.ErrParse, path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SERCHA_* and the conventional variables
func (c *Config) ApplyEnv() {
	c.RunMode = getEnv("RUN_MODE", c.RunMode)
	c.Workspace.Root = getEnv("SERCHA_WORKSPACE", c.Workspace.Root)
	c.Workspace.StartupFile = getEnv("SERCHA_STARTUP_FILE", c.Workspace.StartupFile)

	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)

	c.OCR.TesseractPath = getEnv("TESSERACT_PATH", c.OCR.TesseractPath)
	c.OCR.Language = getEnv("TESSERACT_LANG", c.OCR.Language)
	c.OCR.Timeout = getEnvDuration("OCR_TIMEOUT", c.OCR.Timeout)
	c.OCR.OnImport = getEnvBool("OCR_ON_IMPORT", c.OCR.OnImport)

	c.Export.Backend = getEnv("EXPORT_BACKEND", c.Export.Backend)
	c.Export.Python = getEnv("EXPORT_PYTHON", c.Export.Python)
	c.Export.Script = getEnv("EXPORT_SCRIPT", c.Export.Script)
	c.Export.Optimize = getEnvBool("EXPORT_OPTIMIZE", c.Export.Optimize)
	c.Export.Timeout = getEnvDuration("EXPORT_TIMEOUT", c.Export.Timeout)
	c.Export.OCRConcurrency = getEnvInt("EXPORT_OCR_CONCURRENCY", c.Export.OCRConcurrency)

	c.Worker.Concurrency = getEnvInt("WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.DequeueTimeout = getEnvInt("WORKER_DEQUEUE_TIMEOUT", c.Worker.DequeueTimeout)
	c.Worker.JanitorInterval = getEnvDuration("JANITOR_INTERVAL", c.Worker.JanitorInterval)
	c.Worker.TaskRetention = getEnvDuration("TASK_RETENTION", c.Worker.TaskRetention)

	c.Search.Stemmer = getEnv("SEARCH_STEMMER", c.Search.Stemmer)
	if words := getEnv("SEARCH_STOP_WORDS", ""); words != "" {
		c.Search.StopWords = splitList(words)
	}
	c.Search.WorkingLimit = getEnvInt("SEARCH_WORKING_LIMIT", c.Search.WorkingLimit)
	c.Search.ElsewhereLimit = getEnvInt("SEARCH_ELSEWHERE_LIMIT", c.Search.ElsewhereLimit)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate checks enumerations and ranges
func (c *Config) Validate() error {
	var errs []error
	switch c.RunMode {
	case ModeAPI, ModeWorker, ModeAll:
	default:
		errs = append(errs, fmt.Errorf("unknown run mode %q", c.RunMode))
	}
	if c.Workspace.Root == "" {
		errs = append(errs, errors.New("workspace root is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Server.Port))
	}
	switch c.Export.Backend {
	case ExportPDF:
	case ExportScript:
		if c.Export.Script == "" {
			errs = append(errs, errors.New("export script is required for the script backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown export backend %q", c.Export.Backend))
	}
	switch strings.ToLower(c.Search.Stemmer) {
	case "", "none", "porter", "english":
	default:
		errs = append(errs, fmt.Errorf("unknown stemmer %q", c.Search.Stemmer))
	}
	if c.Search.WorkingLimit < 0 || c.Search.ElsewhereLimit < 0 {
		errs = append(errs, errors.New("search limits must not be negative"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// StartupPath returns the startup file path
func (c *Config) StartupPath() string {
	if c.Workspace.StartupFile != "" {
		return c.Workspace.StartupFile
	}
	return filepath.Join(c.Workspace.Root, "startup.xml")
}

// SearchOptions returns the result caps
func (c *Config) SearchOptions() domain.SearchOptions {
	return domain.SearchOptions{
		WorkingLimit:   c.Search.WorkingLimit,
		ElsewhereLimit: c.Search.ElsewhereLimit,
	}
}

// LogLevel parses the configured level
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger from the log settings
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := c.LogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// DefaultPath is the configuration file used when no --config flag is given.
const DefaultPath = "config/config.yaml"

// ServerConfig defines the HTTP surface of the adapter service.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout"`
	MaxUploadBytes  int64         `koanf:"maxuploadbytes"`
	LogLevel        string        `koanf:"loglevel"`
}

// ModelServerConfig points at the REST predict endpoint of the model server.
type ModelServerConfig struct {
	RestURI string        `koanf:"resturi"`
	Timeout time.Duration `koanf:"timeout"`
}

// LabelsConfig locates the label catalog.
type LabelsConfig struct {
	Path string `koanf:"path"`
}

// CacheConfig related to the Redis reply cache.
type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	Addr    string        `koanf:"addr"`
	TTL     time.Duration `koanf:"ttl"`
}

// DatabaseConfig related to the prediction audit log.
type DatabaseConfig struct {
	Enabled bool   `koanf:"enabled"`
	DSN     string `koanf:"dsn"`
	Pool    struct {
		IdleConnections int           `koanf:"idleconnections"`
		MaxConnections  int           `koanf:"maxconnections"`
		ConnLifeTime    time.Duration `koanf:"connlifetime"`
	} `koanf:"pool"`
}

// AuthConfig enables bearer token checks when Secret is set.
type AuthConfig struct {
	Secret   string `koanf:"secret"`
	Audience string `koanf:"audience"`
}

// InvokerConfig is used by the invoke command.
type InvokerConfig struct {
	URL     string        `koanf:"url"`
	Accept  string        `koanf:"accept"`
	Timeout time.Duration `koanf:"timeout"`
	TopK    int           `koanf:"topk"`
}

// DatasetConfig is used by the prepare command.
type DatasetConfig struct {
	RawDir      string    `koanf:"rawdir"`
	ImageDir    string    `koanf:"imagedir"`
	OutputDir   string    `koanf:"outputdir"`
	Width       int       `koanf:"width"`
	Height      int       `koanf:"height"`
	Mean        []float64 `koanf:"mean"`
	Std         []float64 `koanf:"std"`
	JPEGQuality int       `koanf:"jpegquality"`
	Workers     int       `koanf:"workers"`
}

// Config is the full application configuration. It is built once by Load and
// passed down explicitly.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	ModelServer ModelServerConfig `koanf:"modelserver"`
	Labels      LabelsConfig      `koanf:"labels"`
	Cache       CacheConfig       `koanf:"cache"`
	Database    DatabaseConfig    `koanf:"database"`
	Auth        AuthConfig        `koanf:"auth"`
	Invoker     InvokerConfig     `koanf:"invoker"`
	Dataset     DatasetConfig     `koanf:"dataset"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.port":                   8080,
		"server.shutdowntimeout":        "15s",
		"server.maxuploadbytes":         10 << 20,
		"server.loglevel":               "info",
		"modelserver.resturi":           "http://localhost:8501/v1/models/model:predict",
		"modelserver.timeout":           "30s",
		"labels.path":                   "/opt/ml/model/labels_info.json",
		"cache.enabled":                 false,
		"cache.addr":                    "localhost:6379",
		"cache.ttl":                     "5m",
		"database.enabled":              false,
		"database.pool.idleconnections": 5,
		"database.pool.maxconnections":  10,
		"database.pool.connlifetime":    "1h",
		"invoker.url":                   "http://localhost:8080/invocations",
		"invoker.accept":                "application/json;verbose",
		"invoker.timeout":               "30s",
		"invoker.topk":                  5,
		"dataset.rawdir":                "data/raw/data",
		"dataset.imagedir":              "",
		"dataset.outputdir":             "data/processed",
		"dataset.width":                 224,
		"dataset.height":                244,
		"dataset.mean":                  []float64{0.485, 0.456, 0.406},
		"dataset.std":                   []float64{0.229, 0.224, 0.225},
		"dataset.jpegquality":           75,
		"dataset.workers":               1,
	}
}

// Load reads defaults, then the YAML file at filePath (skipped when the path is
// empty or the default file does not exist), then CFG_ environment overrides.
// CFG_SERVER_PORT maps to server.port.
func Load(filePath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if filePath != "" {
		_, statErr := os.Stat(filePath)
		switch {
		case statErr == nil:
			if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", filePath, err)
			}
		case errors.Is(statErr, os.ErrNotExist) && filePath == DefaultPath:
		default:
			return nil, fmt.Errorf("load %s: %w", filePath, statErr)
		}
	}

	if err := k.Load(env.ProviderWithValue("CFG_", ".", func(s string, v string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "CFG_")), "_", ".")
		if strings.Contains(v, ",") {
			return key, strings.Split(strings.TrimSpace(v), ",")
		}
		return key, v
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the rules the components rely on.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.Database.Enabled && strings.TrimSpace(cfg.Database.DSN) == "" {
		return errors.New("database.dsn is required when database.enabled is true")
	}
	if cfg.Invoker.TopK <= 0 {
		return fmt.Errorf("invoker.topk must be positive, got %d", cfg.Invoker.TopK)
	}
	if cfg.Dataset.Width <= 0 || cfg.Dataset.Height <= 0 {
		return fmt.Errorf("dataset size must be positive, got %dx%d", cfg.Dataset.Width, cfg.Dataset.Height)
	}
	if len(cfg.Dataset.Mean) != 3 || len(cfg.Dataset.Std) != 3 {
		return errors.New("dataset.mean and dataset.std need one value per RGB channel")
	}
	for _, s := range cfg.Dataset.Std {
		if s == 0 {
			return errors.New("dataset.std values must be non-zero")
		}
	}
	return nil
}

// ImagesPath returns the configured image directory, defaulting to <rawdir>/images.
func (c DatasetConfig) ImagesPath() string {
	if c.ImageDir != "" {
		return c.ImageDir
	}
	return filepath.Join(c.RawDir, "images")
}

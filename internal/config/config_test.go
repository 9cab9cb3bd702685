package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenDefaultFileMissing(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	require.Equal(t, "application/json;verbose", cfg.Invoker.Accept)
	require.Equal(t, 5, cfg.Invoker.TopK)
	require.Equal(t, 224, cfg.Dataset.Width)
	require.Equal(t, 244, cfg.Dataset.Height)
	require.Equal(t, []float64{0.485, 0.456, 0.406}, cfg.Dataset.Mean)
	require.Equal(t, filepath.Join("data/raw/data", "images"), cfg.Dataset.ImagesPath())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  loglevel: debug
modelserver:
  resturi: http://tfs:8501/v1/models/jetscope:predict
  timeout: 5s
labels:
  path: /tmp/labels_info.json
dataset:
  imagedir: /data/images
  workers: 4
`), 0o644))

	t.Setenv("CFG_SERVER_PORT", "9100")
	t.Setenv("CFG_CACHE_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "http://tfs:8501/v1/models/jetscope:predict", cfg.ModelServer.RestURI)
	require.Equal(t, 5*time.Second, cfg.ModelServer.Timeout)
	require.Equal(t, "/tmp/labels_info.json", cfg.Labels.Path)
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, 4, cfg.Dataset.Workers)
	require.Equal(t, "/data/images", cfg.Dataset.ImagesPath())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Invoker: InvokerConfig{TopK: 5},
			Dataset: DatasetConfig{
				Width:  224,
				Height: 224,
				Mean:   []float64{0.485, 0.456, 0.406},
				Std:    []float64{0.229, 0.224, 0.225},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "database without dsn", mutate: func(c *Config) { c.Database.Enabled = true }, wantErr: true},
		{name: "zero top k", mutate: func(c *Config) { c.Invoker.TopK = 0 }, wantErr: true},
		{name: "zero width", mutate: func(c *Config) { c.Dataset.Width = 0 }, wantErr: true},
		{name: "short mean", mutate: func(c *Config) { c.Dataset.Mean = []float64{0.5} }, wantErr: true},
		{name: "zero std", mutate: func(c *Config) { c.Dataset.Std = []float64{0.2, 0, 0.2} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

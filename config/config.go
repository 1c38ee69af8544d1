// Package config loads config.yaml with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"mlserve/logging"
)

const (
	BackendMinio = "minio"
	BackendS3    = "s3"
	BackendLocal = "local"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Storage struct {
		Backend      string `yaml:"backend"`
		Endpoint     string `yaml:"endpoint"`
		AccessKey    string `yaml:"access_key"`
		SecretKey    string `yaml:"secret_key"`
		Region       string `yaml:"region"`
		Bucket       string `yaml:"bucket"`
		Prefix       string `yaml:"prefix"`
		Root         string `yaml:"root"`
		CreateBucket bool   `yaml:"create_bucket"`
	} `yaml:"storage"`
	Serving struct {
		LoadTimeout time.Duration `yaml:"load_timeout"`
	} `yaml:"serving"`
	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
	Log logging.Config `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Http.Port = 8080
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.MaxBodyBytes = 1 << 20
	cfg.Http.AllowedOrigins = []string{"*"}
	cfg.Storage.Backend = BackendMinio
	cfg.Storage.Region = "us-east-1"
	cfg.Serving.LoadTimeout = 30 * time.Second
	cfg.Log.Level = "info"
	return &cfg
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// applyEnv honours the variable names the service has always been deployed with.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	set("STORAGE_BACKEND", &c.Storage.Backend)
	set("MINIO_ENDPOINT", &c.Storage.Endpoint)
	set("MINIO_ACCESS_KEY", &c.Storage.AccessKey)
	set("MINIO_SECRET_KEY", &c.Storage.SecretKey)
	set("BUCKET_NAME", &c.Storage.Bucket)
	set("STORAGE_ROOT", &c.Storage.Root)
	set("LOG_LEVEL", &c.Log.Level)
	set("JOURNAL_PATH", &c.Journal.Path)

	if v, ok := lookup("HTTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Http.Port = port
	}
	return nil
}

func (c *Config) Validate() error {
	var missing []string
	switch c.Storage.Backend {
	case BackendMinio:
		if c.Storage.Endpoint == "" {
			missing = append(missing, "storage.endpoint")
		}
		if c.Storage.Bucket == "" {
			missing = append(missing, "storage.bucket")
		}
	case BackendS3:
		if c.Storage.Bucket == "" {
			missing = append(missing, "storage.bucket")
		}
	case BackendLocal:
		if c.Storage.Root == "" {
			missing = append(missing, "storage.root")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing config: %s", strings.Join(missing, ", "))
	}
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.Http.Port)
	}
	return nil
}

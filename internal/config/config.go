package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageFile  = "file"
	StorageRedis = "redis"
)

// Duration lets YAML carry values like "500ms" or "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	// Listen is the server's HTTP/websocket address.
	Listen string `yaml:"listen"`

	// ServerURL is where the terminal dials the server's /ws endpoint.
	ServerURL string `yaml:"server_url"`

	// Storage selects the server's durable store: "file" or "redis".
	Storage   string `yaml:"storage"`
	DataDir   string `yaml:"data_dir"`
	RedisAddr string `yaml:"redis_addr"`

	Mirror MirrorConfig `yaml:"mirror"`
	Sync   SyncConfig   `yaml:"sync"`

	// SweepInterval is the staleness sweeper tick.
	SweepInterval Duration `yaml:"sweep_interval"`
}

// MirrorConfig points at the remote tabular mirror. An empty DSN means no
// mirror is configured and the terminal runs local-only.
type MirrorConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type SyncConfig struct {
	PushDebounce Duration `yaml:"push_debounce"`
	PushInterval Duration `yaml:"push_interval"`
}

func Default() Config {
	return Config{
		Listen:        ":8080",
		ServerURL:     "ws://localhost:8080/ws",
		Storage:       StorageFile,
		DataDir:       "./data",
		RedisAddr:     "localhost:6379",
		Mirror:        MirrorConfig{Table: "inventory"},
		Sync:          SyncConfig{PushDebounce: Duration(time.Second), PushInterval: Duration(30 * time.Second)},
		SweepInterval: Duration(500 * time.Millisecond),
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Storage != StorageFile && c.Storage != StorageRedis {
		return fmt.Errorf("config: unknown storage backend %q", c.Storage)
	}
	if c.Mirror.DSN != "" && c.Mirror.Table == "" {
		return fmt.Errorf("config: mirror.table required when mirror.dsn is set")
	}
	return nil
}

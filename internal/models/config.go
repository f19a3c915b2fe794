package models

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Storage    StorageConfig   `yaml:"storage"`
	Remote     RemoteConfig    `yaml:"remote"`
	Session    SessionConfig   `yaml:"session"`
	Upload     UploadConfig    `yaml:"upload"`
	Thumbnails ThumbnailConfig `yaml:"thumbnails"`
	Kafka      KafkaConfig     `yaml:"kafka"`
	Redis      RedisConfig     `yaml:"redis"`
	Log        LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	GinMode        string   `yaml:"gin_mode"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig selects the local object cache backend.
// Driver is "sqlite" (per-device file) or "postgres".
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type RemoteConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	AnalysisTimeout   time.Duration `yaml:"analysis_timeout"`
	AnalysisPerMinute int           `yaml:"analysis_per_minute"`
}

type SessionConfig struct {
	Path string `yaml:"path"`
}

// UploadConfig controls the upload path. With LocalOnly set, photos are kept
// on the device and never sent to the remote service.
type UploadConfig struct {
	MaxBytes  int64 `yaml:"max_bytes"`
	LocalOnly bool  `yaml:"local_only"`
}

type ThumbnailConfig struct {
	Path string `yaml:"path"`
	Size int    `yaml:"size"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// LoadConfig reads path (a missing file is not an error), fills defaults and
// applies NUNBODY_* environment overrides, in that order.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case !os.IsNotExist(err):
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8787"
	}
	if c.Server.GinMode == "" {
		c.Server.GinMode = "release"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/nunbody-photos.db"
	}
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = "http://localhost:3001"
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = 30 * time.Second
	}
	if c.Remote.AnalysisTimeout == 0 {
		c.Remote.AnalysisTimeout = 90 * time.Second
	}
	if c.Remote.AnalysisPerMinute == 0 {
		c.Remote.AnalysisPerMinute = 6
	}
	if c.Session.Path == "" {
		c.Session.Path = "data/session.yaml"
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 10 << 20
	}
	if c.Thumbnails.Path == "" {
		c.Thumbnails.Path = "data/thumbs"
	}
	if c.Thumbnails.Size == 0 {
		c.Thumbnails.Size = 240
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "nunbody.photos"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "nunbody-thumbnailer"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 14
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NUNBODY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("NUNBODY_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("NUNBODY_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("NUNBODY_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("NUNBODY_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("NUNBODY_API_URL"); v != "" {
		c.Remote.BaseURL = v
	}
	if v := os.Getenv("NUNBODY_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Remote.Timeout = d
		}
	}
	if v := os.Getenv("NUNBODY_SESSION_PATH"); v != "" {
		c.Session.Path = v
	}
	if v := os.Getenv("NUNBODY_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("NUNBODY_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("NUNBODY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("NUNBODY_LOG_PATH"); v != "" {
		c.Log.Path = v
	}
	if v := os.Getenv("NUNBODY_UPLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Upload.MaxBytes = n
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

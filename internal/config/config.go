package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Admin       AdminConfig       `yaml:"admin"`
	Storage     StorageConfig     `yaml:"storage"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LeaderboardConfig struct {
	// Secret signs submission tokens. The server refuses to start without it.
	Secret         string        `yaml:"secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	BindUserAgent  bool          `yaml:"bind_user_agent"`
	BindClientIP   bool          `yaml:"bind_client_ip"`
	NonceRetention time.Duration `yaml:"nonce_retention"`
}

type AdminConfig struct {
	PIN           string        `yaml:"pin"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type StorageConfig struct {
	GalleryRoot    string `yaml:"gallery_root"`
	TrashRoot      string `yaml:"trash_root"`
	UploadMaxBytes int64  `yaml:"upload_max_bytes"`
}

type RateLimitConfig struct {
	TrustedProxies []string `yaml:"trusted_proxies"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GALLERY_LEADERBOARD_SECRET"); v != "" {
		c.Leaderboard.Secret = v
	}
	if v := os.Getenv("GALLERY_ADMIN_PIN"); v != "" {
		c.Admin.PIN = v
	}
	if v := os.Getenv("GALLERY_SESSION_SECRET"); v != "" {
		c.Admin.SessionSecret = v
	}
}

func (c *Config) validate() error {
	if c.Leaderboard.Secret == "" {
		return fmt.Errorf("leaderboard.secret is required")
	}
	if len(c.Leaderboard.Secret) < 32 {
		return fmt.Errorf("leaderboard.secret must be at least 32 characters")
	}
	if c.Admin.PIN == "" {
		return fmt.Errorf("admin.pin is required")
	}
	if c.Admin.SessionSecret == "" {
		return fmt.Errorf("admin.session_secret is required")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "Gallery Server"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/gallery.db"
	}
	if c.Leaderboard.TokenTTL == 0 {
		c.Leaderboard.TokenTTL = 2 * time.Hour
	}
	if c.Leaderboard.NonceRetention == 0 {
		c.Leaderboard.NonceRetention = 24 * time.Hour
	}
	if c.Admin.SessionTTL == 0 {
		c.Admin.SessionTTL = 12 * time.Hour
	}
	if c.Storage.GalleryRoot == "" {
		c.Storage.GalleryRoot = "./data/images"
	}
	if c.Storage.TrashRoot == "" {
		c.Storage.TrashRoot = "./data/trash"
	}
	if c.Storage.UploadMaxBytes == 0 {
		c.Storage.UploadMaxBytes = 10 << 20
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sftpfind/internal/logger"
	"sftpfind/internal/ssh"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "SFTPFIND"

func init() {
	envFiles := []string{
		".env",
	}

	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("Error loading %s: %v", envFile, err)
			}
		}
	}
}

func GetEnv(key string, defaultValue string) string {
	value := os.Getenv(key)

	if value == "" {
		return defaultValue
	}

	return value
}

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Warn("Could not determine home directory: %v", err)
		return ""
	}
	return homeDir
}

func getDefaultDatabasePath(fallback string, profile string) string {
	homeDir := getHomeDir()
	if homeDir == "" {
		return fallback
	}
	return filepath.Join(homeDir, ".sftpfind", profile, "history.db")
}

type Configuration struct {
	Profile string `envconfig:"PROFILE" default:"default"`

	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
	AuthTimeout    time.Duration `envconfig:"AUTH_TIMEOUT" default:"15s"`
	ListTimeout    time.Duration `envconfig:"LIST_TIMEOUT" default:"30s"`

	MaxEntries int `envconfig:"MAX_ENTRIES" default:"0"`
	MaxPacket  int `envconfig:"MAX_PACKET" default:"32768"`

	// KnownHostsPath enables host key verification when set.
	KnownHostsPath string `envconfig:"KNOWN_HOSTS"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	History      bool   `envconfig:"HISTORY" default:"false"`
	DatabasePath string `envconfig:"DATABASE_PATH"`

	Password string `envconfig:"PASSWORD"`
}

var Profile = GetEnv(EnvPrefix+"_PROFILE", "default")
var DatabasePath = GetEnv(EnvPrefix+"_DATABASE_PATH", getDefaultDatabasePath("sftpfind-history.db", Profile))

var Config = &Configuration{
	Profile:        Profile,
	ConnectTimeout: 10 * time.Second,
	AuthTimeout:    15 * time.Second,
	ListTimeout:    30 * time.Second,
	MaxPacket:      ssh.MaxPacketLimit,
	LogLevel:       "info",
	DatabasePath:   DatabasePath,
}

// Load reads the SFTPFIND_* environment into Config.
func Load() (*Configuration, error) {
	var cfg Configuration

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = getDefaultDatabasePath("sftpfind-history.db", cfg.Profile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Config = &cfg

	return Config, nil
}

func (c *Configuration) Validate() error {
	switch {
	case c.ConnectTimeout <= 0:
		return fmt.Errorf("%s_CONNECT_TIMEOUT must be positive, got %s", EnvPrefix, c.ConnectTimeout)
	case c.AuthTimeout <= 0:
		return fmt.Errorf("%s_AUTH_TIMEOUT must be positive, got %s", EnvPrefix, c.AuthTimeout)
	case c.ListTimeout <= 0:
		return fmt.Errorf("%s_LIST_TIMEOUT must be positive, got %s", EnvPrefix, c.ListTimeout)
	case c.MaxEntries < 0:
		return fmt.Errorf("%s_MAX_ENTRIES must not be negative, got %d", EnvPrefix, c.MaxEntries)
	case c.MaxPacket < 0 || c.MaxPacket > ssh.MaxPacketLimit:
		return fmt.Errorf("%s_MAX_PACKET must be between 0 and %d, got %d", EnvPrefix, ssh.MaxPacketLimit, c.MaxPacket)
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%s_LOG_LEVEL: %w", EnvPrefix, err)
	}

	return nil
}

// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"wotd-bot/internal/model"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverBolt     = "bolt"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Directory DirectoryConfig `mapstructure:"directory"`
	WOTD      WOTDConfig      `mapstructure:"wotd"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// AdminConfig holds the operators allowed to configure the game.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// StorageConfig selects where the game record is persisted.
type StorageConfig struct {
	Driver   string `mapstructure:"driver"`
	BoltPath string `mapstructure:"bolt_path"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DirectoryConfig sizes the cache of recently seen chat participants.
type DirectoryConfig struct {
	Size int `mapstructure:"size"`
}

// WOTDConfig holds the word of the day defaults and tuning knobs.
// Channel, Hour, Minute, Dictionary, IdleTime and MaxWinners only seed the
// persisted game record the first time the bot runs.
type WOTDConfig struct {
	Channel       string        `mapstructure:"channel"`
	Hour          int           `mapstructure:"hour"`
	Minute        int           `mapstructure:"minute"`
	Dictionary    string        `mapstructure:"dictionary"`
	IdleTime      time.Duration `mapstructure:"idle_time"`
	MaxWinners    int           `mapstructure:"max_winners"`
	RewardTitle   string        `mapstructure:"reward_title"`
	ParrotRatio   float64       `mapstructure:"parrot_ratio"`
	ParrotWindow  time.Duration `mapstructure:"parrot_window"`
	LateWindow    time.Duration `mapstructure:"late_window"`
	AnnouncePause time.Duration `mapstructure:"announce_pause"`
	ObscureMin    time.Duration `mapstructure:"obscure_min"`
	ObscureMax    time.Duration `mapstructure:"obscure_max"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g., BOT_TOKEN, WOTD_CHANNEL, STORAGE_DRIVER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", "10s")

	v.SetDefault("storage.driver", StorageDriverPostgres)
	v.SetDefault("storage.bolt_path", "wotd.db")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wotd")
	v.SetDefault("database.name", "wotd")
	v.SetDefault("database.pool_size", 4)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("directory.size", 4096)

	// Game defaults
	v.SetDefault("wotd.hour", 0)
	v.SetDefault("wotd.minute", 0)
	v.SetDefault("wotd.dictionary", "/usr/share/dict/american-english")
	v.SetDefault("wotd.idle_time", "5m")
	v.SetDefault("wotd.max_winners", 5)
	v.SetDefault("wotd.reward_title", "hat")
	v.SetDefault("wotd.parrot_ratio", 0.6)
	v.SetDefault("wotd.parrot_window", "2m")
	v.SetDefault("wotd.late_window", "10s")
	v.SetDefault("wotd.announce_pause", "2s")
	v.SetDefault("wotd.obscure_min", "5s")
	v.SetDefault("wotd.obscure_max", "30s")
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverBolt:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.WOTD.Hour < 0 || c.WOTD.Hour > 23 {
		return fmt.Errorf("wotd.hour out of range: %d", c.WOTD.Hour)
	}
	if c.WOTD.Minute < 0 || c.WOTD.Minute > 59 {
		return fmt.Errorf("wotd.minute out of range: %d", c.WOTD.Minute)
	}
	if c.WOTD.MaxWinners < 1 {
		return fmt.Errorf("wotd.max_winners must be positive, got %d", c.WOTD.MaxWinners)
	}
	if c.WOTD.IdleTime <= 0 {
		return fmt.Errorf("wotd.idle_time must be positive, got %s", c.WOTD.IdleTime)
	}
	if c.WOTD.ParrotRatio <= 0 || c.WOTD.ParrotRatio > 1 {
		return fmt.Errorf("wotd.parrot_ratio must be in (0,1], got %v", c.WOTD.ParrotRatio)
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// InitialGame builds the game record used when nothing has been persisted yet.
func (c *Config) InitialGame() *model.GameConfig {
	g := &model.GameConfig{
		Hour:       c.WOTD.Hour,
		Minute:     c.WOTD.Minute,
		Dictionary: c.WOTD.Dictionary,
		IdleTime:   c.WOTD.IdleTime,
		MaxWinners: c.WOTD.MaxWinners,
		Winners:    []string{},
	}
	if c.WOTD.Channel != "" {
		channel := c.WOTD.Channel
		g.Channel = &channel
	}
	return g
}

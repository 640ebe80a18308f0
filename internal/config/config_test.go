package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, 10*time.Second, cfg.Bot.PollTimeout)
	assert.Equal(t, 5*time.Minute, cfg.WOTD.IdleTime)
	assert.Equal(t, 5, cfg.WOTD.MaxWinners)
	assert.Equal(t, 0.6, cfg.WOTD.ParrotRatio)
	assert.Equal(t, 2*time.Minute, cfg.WOTD.ParrotWindow)
	assert.Equal(t, 10*time.Second, cfg.WOTD.LateWindow)
	assert.Equal(t, "hat", cfg.WOTD.RewardTitle)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	yaml := `
bot:
  token: "123:abc"
admin:
  ids: [11, 22]
storage:
  driver: bolt
  bolt_path: /var/lib/wotd/state.db
wotd:
  channel: "-100555"
  hour: 6
  minute: 30
  max_winners: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("WOTD_IDLE_TIME", "90s")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, StorageDriverBolt, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/wotd/state.db", cfg.Storage.BoltPath)
	assert.Equal(t, 90*time.Second, cfg.WOTD.IdleTime)
	assert.True(t, cfg.IsAdmin(22))
	assert.False(t, cfg.IsAdmin(33))

	game := cfg.InitialGame()
	require.NotNil(t, game.Channel)
	assert.Equal(t, "-100555", *game.Channel)
	assert.Equal(t, 6, game.Hour)
	assert.Equal(t, 30, game.Minute)
	assert.Equal(t, 3, game.MaxWinners)
	assert.Nil(t, game.Word)
	assert.Empty(t, game.Winners)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{Driver: StorageDriverBolt},
			WOTD: WOTDConfig{
				Hour:        12,
				IdleTime:    time.Minute,
				MaxWinners:  1,
				ParrotRatio: 0.6,
			},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }},
		{"hour", func(c *Config) { c.WOTD.Hour = 24 }},
		{"minute", func(c *Config) { c.WOTD.Minute = -1 }},
		{"max winners", func(c *Config) { c.WOTD.MaxWinners = 0 }},
		{"idle time", func(c *Config) { c.WOTD.IdleTime = 0 }},
		{"parrot ratio", func(c *Config) { c.WOTD.ParrotRatio = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInitialGame_NoChannel(t *testing.T) {
	cfg := &Config{WOTD: WOTDConfig{MaxWinners: 5}}
	assert.Nil(t, cfg.InitialGame().Channel)
}

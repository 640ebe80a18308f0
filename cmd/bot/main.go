// Package main is the entry point for the Word of the Day bot.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wotd-bot/internal/bot"
	"wotd-bot/internal/config"
	"wotd-bot/internal/model"
	"wotd-bot/internal/pkg/db"
	"wotd-bot/internal/repository"
	"wotd-bot/internal/wordsource"
	"wotd-bot/internal/wotd"
)

// gameStore persists the single game record.
type gameStore interface {
	Load(ctx context.Context) (*model.GameConfig, error)
	Save(ctx context.Context, cfg *model.GameConfig) error
}

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Str("storage", cfg.Storage.Driver).Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer closeStore()

	game, err := loadGame(ctx, cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load game state")
	}

	words, err := wordsource.Load(game.Dictionary)
	if err != nil {
		log.Fatal().Err(err).Str("path", game.Dictionary).Msg("Failed to load dictionary")
	}
	log.Info().Str("path", game.Dictionary).Int("words", words.Len()).Msg("Dictionary loaded")

	teleBot, err := bot.NewTelegram(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	directory, err := bot.NewDirectory(cfg.Directory.Size)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create identity directory")
	}

	engine := wotd.New(game, wotd.Options{
		Chat:  bot.NewChat(teleBot, directory, cfg.WOTD.RewardTitle),
		Store: store,
		Words: words,
		Rules: wotd.Rules{
			ParrotRatio:   cfg.WOTD.ParrotRatio,
			ParrotWindow:  cfg.WOTD.ParrotWindow,
			LateWindow:    cfg.WOTD.LateWindow,
			AnnouncePause: cfg.WOTD.AnnouncePause,
		},
		ObscureDelay: wotd.RandomDelay(cfg.WOTD.ObscureMin, cfg.WOTD.ObscureMax),
	})
	engine.Start(ctx)

	telegramBot := bot.New(&bot.Dependencies{
		Config:    cfg,
		Telegram:  teleBot,
		Directory: directory,
		Game:      engine,
	})

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			if _, err := engine.ReloadDictionary(); err != nil {
				log.Error().Err(err).Msg("Failed to reload dictionary, keeping the old one")
			}
			continue
		}

		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		break
	}

	// Graceful shutdown
	telegramBot.Stop()
	engine.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// openStore connects the configured storage backend and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config) (gameStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverBolt:
		store, err := repository.OpenBolt(cfg.Storage.BoltPath, model.GameConfigKey)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close bolt database")
			}
		}, nil

	default:
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewGameConfigRepository(pool.Pool, model.GameConfigKey)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	}
}

// loadGame returns the persisted game record, seeding it from configuration
// on first run.
func loadGame(ctx context.Context, cfg *config.Config, store gameStore) (*model.GameConfig, error) {
	game, err := store.Load(ctx)
	if err == nil {
		log.Info().
			Str("channel", game.ChannelName()).
			Int("winners", len(game.Winners)).
			Msg("Restored game state")
		return game, nil
	}
	if !errors.Is(err, repository.ErrConfigNotFound) {
		return nil, err
	}

	game = cfg.InitialGame()
	if err := store.Save(ctx, game); err != nil {
		return nil, err
	}
	log.Info().Str("channel", game.ChannelName()).Msg("Created initial game state")
	return game, nil
}

// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wotd-bot/internal/config"
	"wotd-bot/internal/handler"
)

// Game is everything the bot needs from the word of the day engine.
type Game interface {
	handler.Game
	Renamer
}

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot  *tele.Bot
	cfg  *config.Config
	dir  *Directory
	game Game

	wotdHandler *handler.WOTDHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config    *config.Config
	Telegram  *tele.Bot
	Directory *Directory
	Game      Game
}

// NewTelegram creates the telebot instance. It is separate from New because
// the game's chat adapter needs it before the game exists.
func NewTelegram(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Bot.PollTimeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Handler failed")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) *Bot {
	b := &Bot{
		bot:  deps.Telegram,
		cfg:  deps.Config,
		dir:  deps.Directory,
		game: deps.Game,
	}

	b.wotdHandler = handler.NewWOTDHandler(deps.Game, IdentityOf, ChannelOf)

	b.registerMiddleware()
	b.registerHandlers()

	return b
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	// Every update refreshes the directory before a handler sees it.
	b.bot.Use(DirectoryMiddleware(b.dir, b.game))
}

// registerHandlers registers all command and message handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/wotd_status", b.wotdHandler.HandleStatus)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/wotd_settime", b.wotdHandler.HandleSetTime)
	adminGroup.Handle("/wotd_reset", b.wotdHandler.HandleReset)
	adminGroup.Handle("/wotd_enable", b.wotdHandler.HandleEnable)
	adminGroup.Handle("/wotd_disable", b.wotdHandler.HandleDisable)
	adminGroup.Handle("/wotd_reload", b.wotdHandler.HandleReload)

	// Anything else said in the group is a potential guess.
	b.bot.Handle(tele.OnText, b.wotdHandler.HandleText)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

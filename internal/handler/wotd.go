// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wotd-bot/internal/wotd"
)

// Game is the part of the word of the day engine exposed to chat commands.
type Game interface {
	HandleMessage(ctx context.Context, msg wotd.Message) (wotd.Verdict, error)
	SetTriggerTime(ctx context.Context, hour, minute int) (time.Duration, error)
	ResetNow(ctx context.Context, channel string) error
	Enable(ctx context.Context, channel string) (time.Duration, error)
	Disable(ctx context.Context) (string, error)
	ReloadDictionary() (int, error)
	Status() wotd.Status
}

// WOTDHandler handles word of the day chat traffic and operator commands.
type WOTDHandler struct {
	game     Game
	identity func(*tele.User) string
	channel  func(*tele.Chat) string
}

// NewWOTDHandler creates a new WOTDHandler. identity and channel map Telegram
// users and chats to the names the game uses.
func NewWOTDHandler(game Game, identity func(*tele.User) string, channel func(*tele.Chat) string) *WOTDHandler {
	return &WOTDHandler{
		game:     game,
		identity: identity,
		channel:  channel,
	}
}

// HandleText feeds every group message to the game as a guess.
func (h *WOTDHandler) HandleText(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil || chat.Type == tele.ChatPrivate {
		return nil
	}

	msg := wotd.Message{
		Channel: h.channel(chat),
		Speaker: h.identity(sender),
		Text:    c.Text(),
	}
	verdict, err := h.game.HandleMessage(context.Background(), msg)
	if err != nil {
		log.Warn().Err(err).Str("user", msg.Speaker).Msg("Guess was not settled")
		return nil
	}
	if verdict != wotd.VerdictIgnored {
		log.Debug().Str("user", msg.Speaker).Str("verdict", verdict.String()).Msg("Guess evaluated")
	}
	return nil
}

// HandleSetTime handles the /wotd_settime command.
// Format: /wotd_settime <hour>[:<minute>] or /wotd_settime <hour> <minute>
func (h *WOTDHandler) HandleSetTime(c tele.Context) error {
	hour, minute, err := parseTriggerTime(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	d, err := h.game.SetTriggerTime(context.Background(), hour, minute)
	switch {
	case errors.Is(err, wotd.ErrInvalidHour):
		return c.Reply(msgBadHour)
	case errors.Is(err, wotd.ErrInvalidMinute):
		return c.Reply(msgBadMinute)
	case err != nil:
		log.Error().Err(err).Msg("Failed to save trigger time")
	}

	return c.Reply(triggerTimeReply(hour, minute, d, h.game.Status().Channel != ""))
}

// HandleReset handles the /wotd_reset command.
func (h *WOTDHandler) HandleReset(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}

	err := h.game.ResetNow(context.Background(), h.channel(chat))
	return c.Reply(resetReply(err, h.game.Status().Channel))
}

// HandleEnable handles the /wotd_enable command, binding the game to the
// chat it was issued in.
func (h *WOTDHandler) HandleEnable(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	if chat.Type == tele.ChatPrivate {
		return c.Reply("The word of the day needs a group chat")
	}

	d, err := h.game.Enable(context.Background(), h.channel(chat))
	if err != nil {
		log.Error().Err(err).Msg("Failed to enable word of the day")
	}
	return c.Reply(fmt.Sprintf("Done. Next scheduled reset is in %d seconds", int(d.Seconds())))
}

// HandleDisable handles the /wotd_disable command.
func (h *WOTDHandler) HandleDisable(c tele.Context) error {
	previous, err := h.game.Disable(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Failed to disable word of the day")
	}
	if previous == "" {
		return c.Reply("Word of the day was not enabled")
	}
	return c.Reply(fmt.Sprintf("Word of the day disabled for %s", previous))
}

// HandleReload handles the /wotd_reload command.
func (h *WOTDHandler) HandleReload(c tele.Context) error {
	n, err := h.game.ReloadDictionary()
	if err != nil {
		log.Error().Err(err).Msg("Failed to reload dictionary")
		return c.Reply("❌ Could not reload the dictionary, keeping the old one")
	}
	return c.Reply(fmt.Sprintf("Dictionary reloaded, %d words", n))
}

// HandleStatus handles the /wotd_status command.
func (h *WOTDHandler) HandleStatus(c tele.Context) error {
	return c.Reply(statusReply(h.game.Status()))
}

const (
	msgBadHour   = "What kind of hour is that?"
	msgBadMinute = "What kind of minute is that?"
	msgUsage     = "Usage: /wotd_settime <hour>[:<minute>]"
)

// parseTriggerTime accepts "H", "H:MM" or "H MM". Range checks are left to
// the engine.
func parseTriggerTime(args []string) (hour, minute int, err error) {
	if len(args) == 1 && strings.Contains(args[0], ":") {
		args = strings.SplitN(args[0], ":", 2)
	}
	if len(args) < 1 || len(args) > 2 {
		return 0, 0, errors.New(msgUsage)
	}

	hour, err = strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, 0, errors.New(msgBadHour)
	}
	if len(args) == 2 {
		minute, err = strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil {
			return 0, 0, errors.New(msgBadMinute)
		}
	}
	return hour, minute, nil
}

func triggerTimeReply(hour, minute int, d time.Duration, enabled bool) string {
	verb := "would"
	if enabled {
		verb = "will"
	}
	return fmt.Sprintf("WOTD reset %s happen at %02d:%02d, which is in %d seconds",
		verb, hour, minute, int(d.Seconds()))
}

func resetReply(err error, configured string) string {
	switch {
	case err == nil:
		return "Done"
	case errors.Is(err, wotd.ErrWrongChannel):
		return fmt.Sprintf("I can only do that in %s", configured)
	case errors.Is(err, wotd.ErrResetInProgress):
		return "A reset is already running"
	case errors.Is(err, wotd.ErrNoChannel):
		return "Word of the day is not enabled anywhere"
	default:
		log.Error().Err(err).Msg("Manual reset failed")
		return "❌ Reset failed"
	}
}

func statusReply(s wotd.Status) string {
	var b strings.Builder
	if s.Channel == "" {
		b.WriteString("Word of the day is disabled\n")
	} else {
		fmt.Fprintf(&b, "Word of the day is running in %s\n", s.Channel)
	}
	fmt.Fprintf(&b, "Reset time: %02d:%02d\n", s.Hour, s.Minute)
	fmt.Fprintf(&b, "Phase: %s\n", s.Phase)
	fmt.Fprintf(&b, "Winners: %d/%d", len(s.Winners), s.MaxWinners)
	if len(s.Winners) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(s.Winners, ", "))
	}
	if s.NextReset > 0 {
		fmt.Fprintf(&b, "\nNext reset in %s", s.NextReset.Round(time.Second))
	}
	return b.String()
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wotd-bot/internal/wotd"
)

var (
	// ErrUnknownIdentity is returned when an identity cannot be mapped back
	// to a Telegram user.
	ErrUnknownIdentity = errors.New("unknown identity")
	// ErrInvalidChannel is returned for channel names that are not chat IDs.
	ErrInvalidChannel = errors.New("invalid channel")
)

// API is the subset of *tele.Bot the chat adapter needs.
type API interface {
	AdminsOf(chat *tele.Chat) ([]tele.ChatMember, error)
	Promote(chat *tele.Chat, member *tele.ChatMember) error
	SetAdminTitle(chat *tele.Chat, user *tele.User, title string) error
	Ban(chat *tele.Chat, member *tele.ChatMember, revokeMessages ...bool) error
	Unban(chat *tele.Chat, user *tele.User, forBanned ...bool) error
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

var _ API = (*tele.Bot)(nil)

// Chat implements the game's chat collaborator on top of a Telegram group.
// The reward is a custom administrator title: winners are promoted with the
// bare minimum of rights and given the title, and demoted on revoke.
type Chat struct {
	api   API
	dir   *Directory
	title string
}

var _ wotd.Chat = (*Chat)(nil)

// NewChat creates a chat adapter awarding the given administrator title.
func NewChat(api API, dir *Directory, title string) *Chat {
	return &Chat{api: api, dir: dir, title: title}
}

// ChannelOf returns the game channel name for a Telegram chat.
func ChannelOf(chat *tele.Chat) string {
	return strconv.FormatInt(chat.ID, 10)
}

func parseChannel(channel string) (*tele.Chat, error) {
	id, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}
	return &tele.Chat{ID: id}, nil
}

func (c *Chat) user(identity string) (*tele.User, error) {
	id, ok := c.dir.Lookup(identity)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIdentity, identity)
	}
	return &tele.User{ID: id}, nil
}

// Members lists the chat administrators; the ones carrying the reward title
// are reported as rewarded.
func (c *Chat) Members(ctx context.Context, channel string) ([]wotd.Member, error) {
	chat, err := parseChannel(channel)
	if err != nil {
		return nil, err
	}

	admins, err := c.api.AdminsOf(chat)
	if err != nil {
		return nil, fmt.Errorf("list admins of %s: %w", channel, err)
	}

	members := make([]wotd.Member, 0, len(admins))
	for _, m := range admins {
		if m.User == nil {
			continue
		}
		c.dir.Observe(m.User)
		members = append(members, wotd.Member{
			Identity: IdentityOf(m.User),
			Rewarded: m.Role == tele.Administrator && m.Title == c.title,
		})
	}
	return members, nil
}

// GrantReward promotes identity and sets the reward title.
func (c *Chat) GrantReward(ctx context.Context, channel, identity string) error {
	chat, err := parseChannel(channel)
	if err != nil {
		return err
	}
	u, err := c.user(identity)
	if err != nil {
		return err
	}

	member := &tele.ChatMember{
		User:   u,
		Rights: tele.Rights{CanInviteUsers: true},
	}
	if err := c.api.Promote(chat, member); err != nil {
		return fmt.Errorf("promote %s: %w", identity, err)
	}
	if err := c.api.SetAdminTitle(chat, u, c.title); err != nil {
		return fmt.Errorf("set title for %s: %w", identity, err)
	}
	return nil
}

// RevokeReward demotes identity, which also drops the title.
func (c *Chat) RevokeReward(ctx context.Context, channel, identity string) error {
	chat, err := parseChannel(channel)
	if err != nil {
		return err
	}
	u, err := c.user(identity)
	if err != nil {
		return err
	}

	if err := c.api.Promote(chat, &tele.ChatMember{User: u, Rights: tele.Rights{}}); err != nil {
		return fmt.Errorf("demote %s: %w", identity, err)
	}
	return nil
}

// Kick removes identity from the chat without a lasting ban. Telegram bans
// carry no reason, so the reason is posted to the chat first.
func (c *Chat) Kick(ctx context.Context, channel, identity, reason string) error {
	chat, err := parseChannel(channel)
	if err != nil {
		return err
	}
	u, err := c.user(identity)
	if err != nil {
		return err
	}

	text, opts := mention(identity, u.ID, reason)
	if _, err := c.api.Send(chat, text, opts...); err != nil {
		log.Warn().Err(err).Str("user", identity).Msg("Failed to post kick reason")
	}
	if err := c.api.Ban(chat, &tele.ChatMember{User: u}); err != nil {
		return fmt.Errorf("ban %s: %w", identity, err)
	}
	if err := c.api.Unban(chat, u); err != nil {
		return fmt.Errorf("unban %s: %w", identity, err)
	}
	return nil
}

// mention addresses text to identity. Users without a username cannot be
// @-mentioned, so they get an HTML link to their account instead.
func mention(identity string, id int64, text string) (string, []interface{}) {
	if identity != strconv.FormatInt(id, 10) {
		return fmt.Sprintf("@%s %s", identity, text), nil
	}
	link := fmt.Sprintf(`<a href="tg://user?id=%d">%s</a> %s`, id, html.EscapeString(identity), html.EscapeString(text))
	return link, []interface{}{tele.ModeHTML}
}

// SendMessage posts text to the chat.
func (c *Chat) SendMessage(ctx context.Context, channel, text string) error {
	chat, err := parseChannel(channel)
	if err != nil {
		return err
	}
	if _, err := c.api.Send(chat, text); err != nil {
		return fmt.Errorf("send to %s: %w", channel, err)
	}
	return nil
}

// SendNotice messages identity privately. Telegram only delivers it if the
// user has started a conversation with the bot.
func (c *Chat) SendNotice(ctx context.Context, identity, text string) error {
	u, err := c.user(identity)
	if err != nil {
		return err
	}
	if _, err := c.api.Send(u, text); err != nil {
		return fmt.Errorf("notify %s: %w", identity, err)
	}
	return nil
}

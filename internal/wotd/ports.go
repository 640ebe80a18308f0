package wotd

import (
	"context"
	"time"

	"wotd-bot/internal/model"
)

// Member is a channel participant as reported by the chat transport.
type Member struct {
	Identity string
	// Rewarded is true while the member holds the reward status.
	Rewarded bool
}

// Message is an inbound chat message.
type Message struct {
	Channel string
	Speaker string
	Text    string
}

// Chat is the channel-control collaborator the engine issues side effects to.
type Chat interface {
	Members(ctx context.Context, channel string) ([]Member, error)
	GrantReward(ctx context.Context, channel, identity string) error
	RevokeReward(ctx context.Context, channel, identity string) error
	Kick(ctx context.Context, channel, identity, reason string) error
	SendMessage(ctx context.Context, channel, text string) error
	SendNotice(ctx context.Context, identity, text string) error
}

// ConfigStore persists the game record atomically.
type ConfigStore interface {
	Save(ctx context.Context, cfg *model.GameConfig) error
}

// WordSource supplies secret words.
type WordSource interface {
	Pick() (string, error)
	Reload(path string) (int, error)
}

// Timer holds at most one pending callback.
type Timer interface {
	// Arm replaces any pending callback with fn, run after d.
	Arm(d time.Duration, fn func())
	// Cancel drops the pending callback, if any.
	Cancel()
}

// Package model defines the persisted data structures.
package model

import (
	"slices"
	"time"
)

// GameConfigKey identifies the single game record in a store.
const GameConfigKey = "wotd"

// GameConfig is the persisted state of the word of the day game.
// A nil Channel means the game is not bound to a chat and the scheduler
// stays disarmed. A nil Word only occurs while a round is being reset.
type GameConfig struct {
	Channel    *string       `json:"channel"`
	Hour       int           `json:"hour"`
	Minute     int           `json:"minute"`
	Dictionary string        `json:"dictionary"`
	IdleTime   time.Duration `json:"idle_time"`
	MaxWinners int           `json:"max_winners"`
	Word       *string       `json:"the_word"`
	Winners    []string      `json:"winners"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (g *GameConfig) Clone() *GameConfig {
	c := *g
	if g.Channel != nil {
		channel := *g.Channel
		c.Channel = &channel
	}
	if g.Word != nil {
		word := *g.Word
		c.Word = &word
	}
	c.Winners = slices.Clone(g.Winners)
	if c.Winners == nil {
		c.Winners = []string{}
	}
	return &c
}

// ChannelName returns the configured channel or the empty string.
func (g *GameConfig) ChannelName() string {
	if g.Channel == nil {
		return ""
	}
	return *g.Channel
}

// HasWinner reports whether identity already won this round.
func (g *GameConfig) HasWinner(identity string) bool {
	return slices.Contains(g.Winners, identity)
}

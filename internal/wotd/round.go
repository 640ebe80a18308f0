package wotd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"wotd-bot/internal/pkg/lock"
)

// onTimer runs when the scheduled trigger time arrives. An active channel
// pushes the reset back until it has been quiet for the idle time.
func (e *Engine) onTimer() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	ctx := e.ctx
	idle := e.cfg.IdleTime
	elapsed := e.now().Sub(e.round.lastSpoken)
	if elapsed < idle {
		wait := idle - elapsed
		e.armLocked(wait)
		e.mu.Unlock()

		log.Info().
			Dur("wait", wait).
			Msg("Was going to reset the word of the day but the channel is active, trying again later")
		return
	}
	e.mu.Unlock()

	if err := e.ResetRound(ctx, ""); err != nil && !errors.Is(err, ErrResetInProgress) {
		log.Error().Err(err).Msg("Scheduled word of the day reset failed")
	}
}

// ResetNow is the operator-issued reset. channel is where the command was
// issued; it must match the configured channel when one is set.
func (e *Engine) ResetNow(ctx context.Context, channel string) error {
	e.mu.Lock()
	configured := e.cfg.ChannelName()
	if configured != "" && configured != channel {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWrongChannel, configured)
	}
	e.disarmLocked()
	e.mu.Unlock()

	err := e.ResetRound(ctx, channel)
	if errors.Is(err, ErrResetInProgress) {
		// The running reset may already have armed the timer we cancelled.
		e.reschedule()
	}
	return err
}

// ResetRound ends the current round and starts the next one. Only one reset
// runs at a time; a concurrent call returns ErrResetInProgress without doing
// anything. channel is used only when no channel is configured.
func (e *Engine) ResetRound(ctx context.Context, channel string) error {
	err := e.guard.TryDo(resetKey, func() error {
		return e.resetRound(ctx, channel)
	})
	if errors.Is(err, lock.ErrBusy) {
		log.Info().Msg("Word of the day reset already running, dropping trigger")
		return ErrResetInProgress
	}
	return err
}

func (e *Engine) resetRound(ctx context.Context, channel string) error {
	e.mu.Lock()
	target := e.cfg.ChannelName()
	if target == "" {
		target = channel
	}
	if target == "" {
		e.mu.Unlock()
		log.Error().Msg("Word of the day reset called without a channel")
		return ErrNoChannel
	}
	e.phase = PhaseAnnouncing
	previous := slices.Clone(e.cfg.Winners)
	// A win still in its obscuring delay sees the new round ID and is
	// dropped instead of granted.
	e.round = roundState{id: uuid.New(), lastSpoken: e.round.lastSpoken}
	roundID := e.round.id
	e.mu.Unlock()

	log.Info().Str("channel", target).Int("winners", len(previous)).Msg("Doing word of the day")

	// Wins confirmed before the round ID changed may still be granting.
	e.grants.Wait()
	e.revokeRewards(ctx, target, previous)

	e.mu.Lock()
	e.cfg.Winners = []string{}
	word := e.cfg.Word
	e.cfg.Word = nil
	e.mu.Unlock()

	switch {
	case word == nil:
		e.say(ctx, target, startMessage())
	case len(previous) > 0:
		e.say(ctx, target, congratulationsMessage(*word))
	default:
		e.say(ctx, target, nobodyGuessedMessage(*word))
	}

	e.sleep(ctx, e.rules.AnnouncePause)
	e.say(ctx, target, callToActionMessage())

	e.mu.Lock()
	e.phase = PhaseSelecting
	e.mu.Unlock()

	next, pickErr := e.words.Pick()

	e.mu.Lock()
	if pickErr != nil {
		e.phase = PhaseIdle
	} else {
		e.cfg.Word = &next
		e.phase = PhaseActive
	}
	e.mu.Unlock()

	if pickErr != nil {
		log.Error().Err(pickErr).Str("channel", target).Msg("Failed to choose a new word of the day")
	} else {
		log.Info().
			Str("channel", target).
			Str("round", roundID.String()).
			Str("word", next).
			Msg("New word of the day")
	}

	// Persistence failures are logged by persist; the round goes on.
	_ = e.persist(ctx)

	e.reschedule()
	return nil
}

// revokeRewards takes the reward status back from previous winners that still
// hold it. The requests run concurrently and are all awaited. If membership
// cannot be queried every previous winner is revoked, since revoking is
// harmless for someone who no longer holds the status.
func (e *Engine) revokeRewards(ctx context.Context, channel string, previous []string) {
	if len(previous) == 0 {
		return
	}

	targets := previous
	members, err := e.chat.Members(ctx, channel)
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("Failed to list channel members, revoking every previous winner")
	} else {
		rewarded := make(map[string]struct{}, len(members))
		for _, m := range members {
			if m.Rewarded {
				rewarded[m.Identity] = struct{}{}
			}
		}
		targets = targets[:0:0]
		for _, w := range previous {
			if _, ok := rewarded[w]; ok {
				targets = append(targets, w)
			}
		}
	}

	var g errgroup.Group
	for _, identity := range targets {
		g.Go(func() error {
			if err := e.chat.RevokeReward(ctx, channel, identity); err != nil {
				log.Warn().Err(err).Str("channel", channel).Str("user", identity).Msg("Failed to revoke reward")
				return fmt.Errorf("revoke %s: %w", identity, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Int("requested", len(targets)).Msg("Some rewards could not be revoked")
	}
}

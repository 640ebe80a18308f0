package wotd

import (
	"context"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

// Verdict is the outcome of evaluating one chat message.
type Verdict int

const (
	VerdictIgnored Verdict = iota
	VerdictKickedParrot
	VerdictKickedLate
	VerdictWon
)

func (v Verdict) String() string {
	switch v {
	case VerdictIgnored:
		return "ignored"
	case VerdictKickedParrot:
		return "kicked_parrot"
	case VerdictKickedLate:
		return "kicked_late"
	case VerdictWon:
		return "won"
	default:
		return "unknown"
	}
}

// HandleMessage evaluates an inbound chat message as a guess.
//
// Every message counts as channel activity. Messages outside the game
// channel, from people who already won, or without the word are ignored.
// Copying a recent winning line gets the speaker kicked, as does guessing
// right within LateWindow of the last win once every slot is taken.
// Otherwise the speaker wins; unless they took the last slot the win is
// confirmed after an obscuring delay so the triggering line is not obvious.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) (Verdict, error) {
	now := e.now()

	e.mu.Lock()
	e.round.lastSpoken = now

	channel := e.cfg.ChannelName()
	if e.phase != PhaseActive || e.cfg.Word == nil || channel == "" ||
		msg.Channel != channel || e.cfg.HasWinner(msg.Speaker) {
		e.mu.Unlock()
		return VerdictIgnored, nil
	}

	word := strings.ToLower(*e.cfg.Word)
	tokens := Tokenize(msg.Text)
	if !slices.Contains(tokens, word) {
		e.mu.Unlock()
		return VerdictIgnored, nil
	}

	sinceWin := now.Sub(e.round.lastWin)

	if strings.ToLower(strings.TrimSpace(msg.Text)) != word &&
		IsParrot(tokens, e.round.winLines, e.rules.ParrotRatio) &&
		sinceWin < e.rules.ParrotWindow {
		e.mu.Unlock()
		e.kick(ctx, channel, msg.Speaker, parrotReason())
		return VerdictKickedParrot, nil
	}

	if len(e.cfg.Winners) >= e.cfg.MaxWinners {
		e.mu.Unlock()
		if sinceWin < e.rules.LateWindow {
			e.kick(ctx, channel, msg.Speaker, lateKickReason)
			return VerdictKickedLate, nil
		}
		return VerdictIgnored, nil
	}

	e.cfg.Winners = append(e.cfg.Winners, msg.Speaker)
	lastWin := len(e.cfg.Winners) >= e.cfg.MaxWinners
	roundID := e.round.id
	idle := e.cfg.IdleTime
	secret := *e.cfg.Word
	e.mu.Unlock()

	log.Info().Str("user", msg.Speaker).Str("channel", channel).Msg("User has guessed the word of the day")
	_ = e.persist(ctx)

	if !lastWin {
		e.sleep(ctx, e.obscure(idle))
	}

	// The win time and line are recorded only now, so nobody gets kicked
	// as a parrot for a line that has not visibly won yet.
	e.mu.Lock()
	if e.round.id != roundID {
		e.mu.Unlock()
		log.Warn().Str("user", msg.Speaker).Msg("Round was reset before the win was confirmed")
		return VerdictIgnored, ErrRoundChanged
	}
	e.round.lastWin = e.now()
	e.round.winLines = append(e.round.winLines, tokens)
	e.round.winLineOwners = append(e.round.winLineOwners, msg.Speaker)
	e.grants.Add(1)
	e.mu.Unlock()

	err := e.chat.GrantReward(ctx, channel, msg.Speaker)
	e.grants.Done()
	if err != nil {
		log.Warn().Err(err).Str("user", msg.Speaker).Msg("Failed to grant reward")
	}

	if lastWin {
		e.say(ctx, channel, roundCompleteMessage(secret))
	} else if err := e.chat.SendNotice(ctx, msg.Speaker, secretNotice(secret)); err != nil {
		log.Warn().Err(err).Str("user", msg.Speaker).Msg("Failed to notify winner")
	}

	return VerdictWon, nil
}

func (e *Engine) kick(ctx context.Context, channel, identity, reason string) {
	log.Info().Str("user", identity).Str("reason", reason).Msg("Kicking guesser")
	if err := e.chat.Kick(ctx, channel, identity, reason); err != nil {
		log.Warn().Err(err).Str("user", identity).Msg("Failed to kick user")
	}
}

// RenameIdentity follows a participant's identity change. A winner keeps
// their slot under the new identity. It reports whether anything changed.
func (e *Engine) RenameIdentity(ctx context.Context, oldIdentity, newIdentity string) bool {
	if oldIdentity == newIdentity {
		return false
	}

	e.mu.Lock()
	idx := slices.Index(e.cfg.Winners, oldIdentity)
	if idx < 0 {
		e.mu.Unlock()
		return false
	}
	line := slices.Index(e.round.winLineOwners, oldIdentity)
	if slices.Contains(e.cfg.Winners, newIdentity) {
		// One person, one slot: the merged entry keeps a single win line.
		e.cfg.Winners = slices.Delete(e.cfg.Winners, idx, idx+1)
		if line >= 0 {
			e.round.winLines = slices.Delete(e.round.winLines, line, line+1)
			e.round.winLineOwners = slices.Delete(e.round.winLineOwners, line, line+1)
		}
	} else {
		e.cfg.Winners[idx] = newIdentity
		if line >= 0 {
			e.round.winLineOwners[line] = newIdentity
		}
	}
	e.mu.Unlock()

	log.Info().Str("old", oldIdentity).Str("new", newIdentity).Msg("Winner changed identity")
	_ = e.persist(ctx)
	return true
}

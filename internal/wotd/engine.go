// Package wotd implements the word of the day game: a secret word chosen on a
// daily schedule, guessed in a chat channel by a limited number of winners who
// hold a reward status until the next round.
package wotd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fastrand"

	"wotd-bot/internal/model"
	"wotd-bot/internal/pkg/lock"
)

const resetKey = "round-reset"

// Phase is the position of the game in its round cycle.
type Phase int

const (
	// PhaseIdle means no word has been chosen yet.
	PhaseIdle Phase = iota
	// PhaseAnnouncing covers revoking rewards and announcing the outcome.
	PhaseAnnouncing
	// PhaseSelecting covers picking and persisting the next word.
	PhaseSelecting
	// PhaseActive accepts guesses.
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAnnouncing:
		return "announcing"
	case PhaseSelecting:
		return "selecting"
	case PhaseActive:
		return "active"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Rules tunes the anti-cheat heuristics and announcement pacing.
type Rules struct {
	ParrotRatio   float64
	ParrotWindow  time.Duration
	LateWindow    time.Duration
	AnnouncePause time.Duration
}

// DefaultRules returns the standard game tuning.
func DefaultRules() Rules {
	return Rules{
		ParrotRatio:   DefaultParrotRatio,
		ParrotWindow:  2 * time.Minute,
		LateWindow:    10 * time.Second,
		AnnouncePause: 2 * time.Second,
	}
}

// Options holds the engine collaborators. Chat, Store and Words are
// required; the rest fall back to real clocks and randomness.
type Options struct {
	Chat  Chat
	Store ConfigStore
	Words WordSource
	Timer Timer
	Rules Rules

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
	// ObscureDelay returns the pause before a non-final win is confirmed.
	// It must stay below idle so a pending win cannot straddle a reset.
	ObscureDelay func(idle time.Duration) time.Duration
}

// roundState is the in-memory, per-round bookkeeping. winLines[i] is the
// winning line of winLineOwners[i].
type roundState struct {
	id            uuid.UUID
	lastSpoken    time.Time
	lastWin       time.Time
	winLines      [][]string
	winLineOwners []string
}

// Engine owns the game record and round state. Timer fires, operator
// commands and chat messages all go through its methods.
type Engine struct {
	chat    Chat
	store   ConfigStore
	words   WordSource
	timer   Timer
	rules   Rules
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration)
	obscure func(idle time.Duration) time.Duration
	guard   *lock.Guard

	mu      sync.Mutex
	cfg     *model.GameConfig
	round   roundState
	phase   Phase
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	// nextFire is when the armed timer goes off; zero when disarmed.
	nextFire time.Time

	// grants counts confirmed wins whose reward request is still in flight.
	// A reset waits for them before looking at who holds the reward.
	grants sync.WaitGroup

	saveMu sync.Mutex
}

// New creates an engine for the given persisted game record.
func New(cfg *model.GameConfig, opts Options) *Engine {
	e := &Engine{
		chat:    opts.Chat,
		store:   opts.Store,
		words:   opts.Words,
		timer:   opts.Timer,
		rules:   opts.Rules,
		now:     opts.Now,
		sleep:   opts.Sleep,
		obscure: opts.ObscureDelay,
		guard:   lock.NewGuard(),
		cfg:     cfg.Clone(),
		round:   roundState{id: uuid.New()},
		ctx:     context.Background(),
	}
	if e.timer == nil {
		e.timer = NewTimer(MinimumDelay)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.sleep == nil {
		e.sleep = sleepContext
	}
	if e.obscure == nil {
		e.obscure = RandomDelay(5*time.Second, 30*time.Second)
	}
	if e.rules == (Rules{}) {
		e.rules = DefaultRules()
	}
	if e.cfg.Word != nil {
		e.phase = PhaseActive
	}
	return e
}

// Start arms the scheduler when a channel is configured.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx, e.cancel = context.WithCancel(ctx)
	e.started = true
	d, armed := e.scheduleLocked()

	ev := log.Info().Str("phase", e.phase.String())
	if armed {
		ev = ev.Str("channel", e.cfg.ChannelName()).Dur("next_reset", d)
	}
	ev.Msg("Word of the day engine started")
}

// Stop cancels the scheduler and any pause in progress.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.started = false
	e.disarmLocked()
	if e.cancel != nil {
		e.cancel()
	}
	log.Info().Msg("Word of the day engine stopped")
}

// scheduleLocked re-arms the timer for the next trigger time. It reports
// whether the timer was armed; it is not without a channel or after Stop.
func (e *Engine) scheduleLocked() (time.Duration, bool) {
	if !e.started || e.cfg.Channel == nil {
		e.disarmLocked()
		return 0, false
	}
	d := DelayUntil(e.cfg.Hour, e.cfg.Minute, e.now())
	e.armLocked(d)
	return d, true
}

func (e *Engine) armLocked(d time.Duration) {
	e.timer.Arm(d, e.onTimer)
	e.nextFire = e.now().Add(d)
}

func (e *Engine) disarmLocked() {
	e.timer.Cancel()
	e.nextFire = time.Time{}
}

func (e *Engine) reschedule() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduleLocked()
}

// SetTriggerTime changes the daily reset time and re-arms the scheduler.
// It returns the delay until the new trigger time.
func (e *Engine) SetTriggerTime(ctx context.Context, hour, minute int) (time.Duration, error) {
	if hour < 0 || hour > 23 {
		return 0, ErrInvalidHour
	}
	if minute < 0 || minute > 59 {
		return 0, ErrInvalidMinute
	}

	e.mu.Lock()
	e.cfg.Hour = hour
	e.cfg.Minute = minute
	d := DelayUntil(hour, minute, e.now())
	e.scheduleLocked()
	e.mu.Unlock()

	log.Info().Int("hour", hour).Int("minute", minute).Msg("Word of the day trigger time changed")
	return d, e.persist(ctx)
}

// Enable binds the game to channel and arms the scheduler.
func (e *Engine) Enable(ctx context.Context, channel string) (time.Duration, error) {
	if channel == "" {
		return 0, ErrNoChannel
	}

	e.mu.Lock()
	e.cfg.Channel = &channel
	d := DelayUntil(e.cfg.Hour, e.cfg.Minute, e.now())
	e.scheduleLocked()
	e.mu.Unlock()

	log.Info().Str("channel", channel).Msg("Word of the day enabled")
	return d, e.persist(ctx)
}

// Disable unbinds the game from its channel and disarms the scheduler. It
// returns the channel that was configured, if any.
func (e *Engine) Disable(ctx context.Context) (string, error) {
	e.mu.Lock()
	previous := e.cfg.ChannelName()
	e.cfg.Channel = nil
	e.scheduleLocked()
	e.mu.Unlock()

	log.Info().Str("channel", previous).Msg("Word of the day disabled")
	return previous, e.persist(ctx)
}

// ReloadDictionary re-reads the word source from the configured path.
func (e *Engine) ReloadDictionary() (int, error) {
	e.mu.Lock()
	path := e.cfg.Dictionary
	e.mu.Unlock()

	n, err := e.words.Reload(path)
	if err != nil {
		return 0, fmt.Errorf("reload dictionary %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("words", n).Msg("Dictionary reloaded")
	return n, nil
}

// Status is an operator view of the game. It never carries the word.
type Status struct {
	Channel    string
	Hour       int
	Minute     int
	Phase      Phase
	Winners    []string
	MaxWinners int
	// NextReset is the time left on the armed timer, including a retry
	// pushed back by channel activity. It is zero when disarmed.
	NextReset time.Duration
}

// Status returns a snapshot of the game for operators.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Channel:    e.cfg.ChannelName(),
		Hour:       e.cfg.Hour,
		Minute:     e.cfg.Minute,
		Phase:      e.phase,
		Winners:    append([]string(nil), e.cfg.Winners...),
		MaxWinners: e.cfg.MaxWinners,
	}
	if !e.nextFire.IsZero() {
		s.NextReset = max(e.nextFire.Sub(e.now()), 0)
	}
	return s
}

// persist saves a snapshot of the game record. Snapshots are taken and
// written under saveMu so the store sees them in mutation order.
func (e *Engine) persist(ctx context.Context) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	e.cfg.UpdatedAt = e.now()
	snapshot := e.cfg.Clone()
	e.mu.Unlock()

	if err := e.store.Save(context.WithoutCancel(ctx), snapshot); err != nil {
		log.Warn().Err(err).Msg("Failed to save word of the day state")
		return fmt.Errorf("save game state: %w", err)
	}
	return nil
}

func (e *Engine) say(ctx context.Context, channel, text string) {
	if err := e.chat.SendMessage(ctx, channel, text); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("Failed to send message")
	}
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RandomDelay returns an obscuring delay generator drawing whole seconds
// uniformly from [lo, hi], with hi capped one second below the idle time.
func RandomDelay(lo, hi time.Duration) func(idle time.Duration) time.Duration {
	return func(idle time.Duration) time.Duration {
		upper := hi
		if upper > idle-time.Second {
			upper = idle - time.Second
		}
		if upper <= 0 {
			return 0
		}
		lower := lo
		if lower > upper {
			lower = upper
		}
		steps := uint32((upper - lower) / time.Second)
		return lower + time.Duration(fastrand.Uint32n(steps+1))*time.Second
	}
}

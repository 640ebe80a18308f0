package wotd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wotd-bot/internal/model"
)

type kickCall struct {
	Identity string
	Reason   string
}

type noticeCall struct {
	Identity string
	Text     string
}

// fakeChat records every side effect the engine issues.
type fakeChat struct {
	mu         sync.Mutex
	members    []Member
	membersErr error
	revokeErr  error
	// membersGate, when set, blocks Members until it is closed.
	membersGate    chan struct{}
	membersStarted chan struct{}
	// grantGate, when set, blocks GrantReward until it is closed.
	grantGate    chan struct{}
	grantStarted chan struct{}
	// trackRewards makes Members report whoever currently holds the reward.
	trackRewards bool
	holding      map[string]bool

	granted  []string
	revoked  []string
	kicks    []kickCall
	messages []string
	notices  []noticeCall
}

func (c *fakeChat) Members(ctx context.Context, channel string) ([]Member, error) {
	c.mu.Lock()
	gate, started := c.membersGate, c.membersStarted
	c.membersStarted = nil
	c.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	members := append([]Member(nil), c.members...)
	if c.trackRewards {
		for identity, held := range c.holding {
			if held {
				members = append(members, Member{Identity: identity, Rewarded: true})
			}
		}
	}
	return members, c.membersErr
}

func (c *fakeChat) GrantReward(ctx context.Context, channel, identity string) error {
	c.mu.Lock()
	gate, started := c.grantGate, c.grantStarted
	c.grantStarted = nil
	c.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.granted = append(c.granted, identity)
	if c.holding == nil {
		c.holding = make(map[string]bool)
	}
	c.holding[identity] = true
	return nil
}

func (c *fakeChat) RevokeReward(ctx context.Context, channel, identity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked = append(c.revoked, identity)
	if c.revokeErr == nil {
		delete(c.holding, identity)
	}
	return c.revokeErr
}

func (c *fakeChat) Kick(ctx context.Context, channel, identity, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kicks = append(c.kicks, kickCall{Identity: identity, Reason: reason})
	return nil
}

func (c *fakeChat) SendMessage(ctx context.Context, channel, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, text)
	return nil
}

func (c *fakeChat) SendNotice(ctx context.Context, identity, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, noticeCall{Identity: identity, Text: text})
	return nil
}

func (c *fakeChat) snapshot() fakeChat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fakeChat{
		granted:  append([]string(nil), c.granted...),
		revoked:  append([]string(nil), c.revoked...),
		kicks:    append([]kickCall(nil), c.kicks...),
		messages: append([]string(nil), c.messages...),
		notices:  append([]noticeCall(nil), c.notices...),
	}
}

// fakeTimer remembers the last armed callback; tests fire it by hand.
type fakeTimer struct {
	mu      sync.Mutex
	armed   bool
	delay   time.Duration
	fn      func()
	arms    int
	cancels int
}

func (t *fakeTimer) Arm(d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
	t.delay = d
	t.fn = fn
	t.arms++
}

func (t *fakeTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = false
	t.cancels++
}

func (t *fakeTimer) state() (armed bool, delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed, t.delay
}

func (t *fakeTimer) fire() {
	t.mu.Lock()
	fn := t.fn
	t.armed = false
	t.mu.Unlock()
	fn()
}

type fakeStore struct {
	mu    sync.Mutex
	saves []*model.GameConfig
	err   error
}

func (s *fakeStore) Save(ctx context.Context, cfg *model.GameConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, cfg.Clone())
	return s.err
}

func (s *fakeStore) last() *model.GameConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return nil
	}
	return s.saves[len(s.saves)-1]
}

// fakeWords hands out words in order, cycling.
type fakeWords struct {
	mu      sync.Mutex
	words   []string
	next    int
	reloads []string
}

func (w *fakeWords) Pick() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.words) == 0 {
		return "", errors.New("no words")
	}
	word := w.words[w.next%len(w.words)]
	w.next++
	return word, nil
}

func (w *fakeWords) Reload(path string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reloads = append(w.reloads, path)
	return len(w.words), nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	engine *Engine
	chat   *fakeChat
	timer  *fakeTimer
	store  *fakeStore
	words  *fakeWords
	clock  *fakeClock

	mu     sync.Mutex
	sleeps []time.Duration
	// onSleep, when set, runs after a pause is recorded.
	onSleep func(d time.Duration)
}

const testChannel = "#wotd"

func testConfig() *model.GameConfig {
	channel := testChannel
	return &model.GameConfig{
		Channel:    &channel,
		Hour:       0,
		Minute:     0,
		Dictionary: "/usr/share/dict/words",
		IdleTime:   300 * time.Second,
		MaxWinners: 3,
		Winners:    []string{},
	}
}

func withWord(cfg *model.GameConfig, word string) *model.GameConfig {
	cfg.Word = &word
	return cfg
}

func newHarness(t *testing.T, cfg *model.GameConfig) *harness {
	t.Helper()

	h := &harness{
		chat:  &fakeChat{},
		timer: &fakeTimer{},
		store: &fakeStore{},
		words: &fakeWords{words: []string{"walrus", "lantern", "meadow"}},
		clock: &fakeClock{now: time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)},
	}
	h.engine = New(cfg, Options{
		Chat:  h.chat,
		Store: h.store,
		Words: h.words,
		Timer: h.timer,
		Rules: DefaultRules(),
		Now:   h.clock.Now,
		Sleep: func(ctx context.Context, d time.Duration) {
			h.mu.Lock()
			h.sleeps = append(h.sleeps, d)
			hook := h.onSleep
			h.mu.Unlock()
			if hook != nil {
				hook(d)
			}
		},
		ObscureDelay: func(idle time.Duration) time.Duration { return 7 * time.Second },
	})
	h.engine.Start(context.Background())
	t.Cleanup(h.engine.Stop)
	return h
}

func (h *harness) guess(t *testing.T, speaker, text string) Verdict {
	t.Helper()
	v, err := h.engine.HandleMessage(context.Background(), Message{Channel: testChannel, Speaker: speaker, Text: text})
	if err != nil {
		t.Fatalf("HandleMessage(%q, %q): %v", speaker, text, err)
	}
	return v
}

func (h *harness) word() string {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	if h.engine.cfg.Word == nil {
		return ""
	}
	return *h.engine.cfg.Word
}

func (h *harness) winners() []string {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	return append([]string(nil), h.engine.cfg.Winners...)
}

func (h *harness) winLines() int {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	return len(h.engine.round.winLines)
}

func (h *harness) winLineOwners() []string {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	return append([]string(nil), h.engine.round.winLineOwners...)
}

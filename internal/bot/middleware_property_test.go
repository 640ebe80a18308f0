package bot

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"wotd-bot/internal/config"
)

type fakeContext struct {
	tele.Context
	sender  *tele.User
	chat    *tele.Chat
	text    string
	replies []string
}

func (c *fakeContext) Sender() *tele.User { return c.sender }
func (c *fakeContext) Chat() *tele.Chat   { return c.chat }
func (c *fakeContext) Text() string       { return c.text }

func (c *fakeContext) Reply(what interface{}, opts ...interface{}) error {
	c.replies = append(c.replies, fmt.Sprint(what))
	return nil
}

type rename struct{ Old, New string }

type fakeRenamer struct {
	renames []rename
}

func (r *fakeRenamer) RenameIdentity(ctx context.Context, oldIdentity, newIdentity string) bool {
	r.renames = append(r.renames, rename{oldIdentity, newIdentity})
	return true
}

func run(mw tele.MiddlewareFunc, c tele.Context) (called bool, err error) {
	err = mw(func(tele.Context) error {
		called = true
		return nil
	})(c)
	return called, err
}

// TestAdminMiddlewareProperty checks that a command goes through if and only
// if the sender is in the admin list.
func TestAdminMiddlewareProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := rapid.SliceOfN(rapid.Int64Range(1, 1000000000), 1, 10).Draw(t, "adminIDs")
		cfg := &config.Config{Admin: config.AdminConfig{IDs: adminIDs}}

		var userID int64
		if rapid.Bool().Draw(t, "isAdmin") {
			userID = rapid.SampledFrom(adminIDs).Draw(t, "adminID")
		} else {
			userID = rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		}

		expected := false
		for _, id := range adminIDs {
			if id == userID {
				expected = true
				break
			}
		}

		c := &fakeContext{sender: &tele.User{ID: userID}, text: "/wotd_reset"}
		called, err := run(AdminMiddleware(cfg), c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if called != expected {
			t.Fatalf("userID=%d adminIDs=%v: called=%v, want %v", userID, adminIDs, called, expected)
		}
		if !called && len(c.replies) != 1 {
			t.Fatalf("rejected command should get exactly one reply, got %v", c.replies)
		}
	})
}

func TestAdminMiddleware_NoSender(t *testing.T) {
	cfg := &config.Config{Admin: config.AdminConfig{IDs: []int64{1}}}

	called, err := run(AdminMiddleware(cfg), &fakeContext{})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestDirectoryMiddleware_ReportsRenames(t *testing.T) {
	dir, err := NewDirectory(8)
	require.NoError(t, err)
	renamer := &fakeRenamer{}
	mw := DirectoryMiddleware(dir, renamer)

	for _, name := range []string{"alice", "alice", "alice2"} {
		called, err := run(mw, &fakeContext{sender: &tele.User{ID: 9, Username: name}})
		require.NoError(t, err)
		assert.True(t, called)
	}

	assert.Equal(t, []rename{{Old: "alice", New: "alice2"}}, renamer.renames)

	called, err := run(mw, &fakeContext{})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRecoveryMiddleware(t *testing.T) {
	mw := RecoveryMiddleware()
	err := mw(func(tele.Context) error {
		panic("boom")
	})(&fakeContext{})
	assert.NoError(t, err)
}

package lock

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestTryDoRunsAtMostOnceProperty checks that concurrent TryDo calls on the
// same key never overlap and that every caller either ran or got ErrBusy.
func TestTryDoRunsAtMostOnceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		callers := rapid.IntRange(2, 20).Draw(t, "callers")

		g := NewGuard()
		var inFlight, maxInFlight, ran, busy atomic.Int32
		release := make(chan struct{})

		var wg sync.WaitGroup
		wg.Add(callers)
		for i := 0; i < callers; i++ {
			go func() {
				defer wg.Done()
				err := g.TryDo("reset", func() error {
					n := inFlight.Add(1)
					for {
						m := maxInFlight.Load()
						if n <= m || maxInFlight.CompareAndSwap(m, n) {
							break
						}
					}
					ran.Add(1)
					<-release
					inFlight.Add(-1)
					return nil
				})
				if errors.Is(err, ErrBusy) {
					busy.Add(1)
				}
			}()
		}

		for ran.Load() == 0 {
			runtime.Gosched()
		}
		close(release)
		wg.Wait()

		if maxInFlight.Load() > 1 {
			t.Fatalf("TryDo overlapped: %d concurrent holders", maxInFlight.Load())
		}
		if ran.Load()+busy.Load() != int32(callers) {
			t.Fatalf("lost callers: ran=%d busy=%d callers=%d", ran.Load(), busy.Load(), callers)
		}
	})
}

// TestTryDoForgetsIdleKeysProperty checks that keys are dropped once every
// TryDo on them has returned, whatever fn returned.
func TestTryDoForgetsIdleKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 1, 20).Draw(t, "keys")
		failing := rapid.SliceOfN(rapid.Bool(), len(keys), len(keys)).Draw(t, "failing")

		g := NewGuard()
		for i, key := range keys {
			_ = g.TryDo(key, func() error {
				if failing[i] {
					return errors.New("failed")
				}
				return nil
			})
		}

		g.mu.Lock()
		remaining := len(g.locks)
		g.mu.Unlock()
		if remaining != 0 {
			t.Fatalf("expected idle keys to be forgotten, %d left", remaining)
		}
	})
}

func TestTryDo_BusyWhileHeld(t *testing.T) {
	g := NewGuard()
	km, ok := g.tryLock("reset")
	require.True(t, ok)

	called := false
	err := g.TryDo("reset", func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, called)

	g.unlock("reset", km)

	err = g.TryDo("reset", func() error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestTryDo_ReleasesOnError(t *testing.T) {
	g := NewGuard()
	boom := errors.New("boom")

	err := g.TryDo("reset", func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, g.TryDo("reset", func() error { return nil }))
}

func TestTryDo_ReleasesOnPanic(t *testing.T) {
	g := NewGuard()

	assert.Panics(t, func() {
		_ = g.TryDo("reset", func() error { panic("boom") })
	})
	assert.NoError(t, g.TryDo("reset", func() error { return nil }))
}

func TestTryDo_KeysAreIndependent(t *testing.T) {
	g := NewGuard()

	err := g.TryDo("a", func() error {
		return g.TryDo("b", func() error { return nil })
	})
	assert.NoError(t, err)

	err = g.TryDo("a", func() error {
		return g.TryDo("a", func() error { return nil })
	})
	assert.ErrorIs(t, err, ErrBusy)
}

package bot

import (
	"fmt"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	tele "gopkg.in/telebot.v3"
)

// Directory remembers recently seen chat participants so game identities can
// be turned back into Telegram user IDs, and name changes can be noticed.
type Directory struct {
	mu     sync.Mutex
	byName *lru.ARCCache
	byID   *lru.ARCCache
}

// NewDirectory creates a directory holding up to size participants.
func NewDirectory(size int) (*Directory, error) {
	byName, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("lru new instance of name cache: %w", err)
	}
	byID, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("lru new instance of id cache: %w", err)
	}
	return &Directory{byName: byName, byID: byID}, nil
}

// IdentityOf returns the game identity of a Telegram user: the username when
// set, the numeric ID otherwise.
func IdentityOf(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// Observe records u and returns the identity it was previously known by, if
// that differs from the current one.
func (d *Directory) Observe(u *tele.User) (previous string, renamed bool) {
	identity := IdentityOf(u)

	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.byID.Get(u.ID); ok {
		if old := v.(string); old != identity {
			d.byName.Remove(old)
			previous, renamed = old, true
		}
	}
	d.byID.Add(u.ID, identity)
	d.byName.Add(identity, u.ID)
	return previous, renamed
}

// Lookup resolves an identity to a user ID. Numeric identities resolve to
// themselves even when the user has not been seen.
func (d *Directory) Lookup(identity string) (int64, bool) {
	d.mu.Lock()
	v, ok := d.byName.Get(identity)
	d.mu.Unlock()
	if ok {
		return v.(int64), true
	}
	if id, err := strconv.ParseInt(identity, 10, 64); err == nil {
		return id, true
	}
	return 0, false
}

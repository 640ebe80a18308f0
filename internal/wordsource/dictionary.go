// Package wordsource loads candidate secret words from a dictionary file,
// one word per line.
package wordsource

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/valyala/fastrand"
)

// ErrEmptyDictionary is returned when no word is available to pick.
var ErrEmptyDictionary = errors.New("dictionary has no words")

// Dictionary is a reloadable in-memory word list.
type Dictionary struct {
	mu    sync.RWMutex
	words []string
}

// Load reads the dictionary at path.
func Load(path string) (*Dictionary, error) {
	d := &Dictionary{}
	if _, err := d.Reload(path); err != nil {
		return nil, err
	}
	return d, nil
}

// FromWords builds a dictionary from an explicit list, skipping blanks.
func FromWords(words ...string) *Dictionary {
	d := &Dictionary{}
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			d.words = append(d.words, w)
		}
	}
	return d
}

// Reload replaces the word list with the contents of path and returns the
// number of words read. On error the current list is kept.
func (d *Dictionary) Reload(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if w := strings.TrimSpace(scanner.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read dictionary: %w", err)
	}
	if len(words) == 0 {
		return 0, ErrEmptyDictionary
	}

	d.mu.Lock()
	d.words = words
	d.mu.Unlock()

	return len(words), nil
}

// Pick returns a uniformly random word. Words may repeat across picks.
func (d *Dictionary) Pick() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.words) == 0 {
		return "", ErrEmptyDictionary
	}
	return d.words[fastrand.Uint32n(uint32(len(d.words)))], nil
}

// Len returns the number of loaded words.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.words)
}

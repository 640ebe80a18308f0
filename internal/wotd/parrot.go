package wotd

import "strings"

// DefaultParrotRatio is the share of a message's words that must appear in a
// previous winning line for the message to count as parroting.
const DefaultParrotRatio = 0.6

// punctuation matches the ASCII punctuation trimmed from token edges.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Tokenize lower-cases text, splits it on whitespace and strips surrounding
// punctuation from every token. Duplicates are dropped and the first
// occurrence order is kept. A field made only of punctuation becomes a single
// "" token, so it still counts towards the parrot ratio.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tok := strings.Trim(f, punctuation)
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// IsParrot reports whether more than ratio of the distinct words are shared
// with any single line in history. Comparison is case-insensitive and
// ignores order and repetition. An empty word list is never a parrot.
func IsParrot(words []string, history [][]string, ratio float64) bool {
	candidate := wordSet(words)
	if len(candidate) == 0 {
		return false
	}

	for _, line := range history {
		previous := wordSet(line)

		shared := 0
		for w := range candidate {
			if _, ok := previous[w]; ok {
				shared++
			}
		}

		if float64(shared)/float64(len(candidate)) > ratio {
			return true
		}
	}

	return false
}

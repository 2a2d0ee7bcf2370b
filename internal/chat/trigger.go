// Package chat connects the generator to a chat bot: it recognizes trigger
// messages, generates a collectible, and replies with the image.
package chat

import (
	"strings"
	"time"
)

// Trigger recognizes messages that ask for a collectible: any
// whitespace-separated word equal (case-insensitively) to a trigger word.
type Trigger struct {
	words map[string]bool
}

func NewTrigger(words ...string) *Trigger {
	t := &Trigger{words: make(map[string]bool, len(words))}
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			t.words[w] = true
		}
	}
	return t
}

func (t *Trigger) Matches(text string) bool {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if t.words[word] {
			return true
		}
	}
	return false
}

// Message is the part of an incoming chat message the bot looks at.
type Message struct {
	ID     int64
	ChatID int64
	Date   time.Time
	From   string
	Text   string
}

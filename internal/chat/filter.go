// Package chat moderates player chat before it is relayed to a lobby or room.
package chat

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"bomberman-arena/internal/protocol"
)

// Moderator rate limits and cleans chat lines
type Moderator struct {
	limiter *RateLimiter
}

// NewModerator wraps a limiter
func NewModerator(limiter *RateLimiter) *Moderator {
	return &Moderator{limiter: limiter}
}

// Review returns the line to relay, or a protocol error for the sender
func (m *Moderator) Review(playerID, text string) (string, error) {
	clean := Sanitize(text)
	if clean == "" {
		return "", protocol.Errorf(protocol.CodeInvalidChat, "chat message is empty")
	}
	if utf8.RuneCountInString(clean) > protocol.MaxChatLength {
		return "", protocol.Errorf(protocol.CodeInvalidChat, "chat must be 1-%d characters", protocol.MaxChatLength)
	}
	if m.limiter != nil && !m.limiter.Allow(playerID) {
		return "", protocol.Errorf(protocol.CodeRateLimited, "slow down")
	}
	return clean, nil
}

// Forget releases a player's limiter state
func (m *Moderator) Forget(playerID string) {
	if m.limiter != nil {
		m.limiter.Forget(playerID)
	}
}

// Sanitize drops control and format characters and collapses whitespace runs
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := false
	for _, r := range text {
		switch {
		case r == utf8.RuneError:
			continue
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

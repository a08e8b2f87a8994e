package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Emoji is the closed set of reaction kinds a voter may leave on a video.
type Emoji string

const (
	EmojiStrong Emoji = "💪"
	EmojiFire   Emoji = "🔥"
	EmojiLift   Emoji = "🏋️"
	EmojiClap   Emoji = "👏"
	EmojiGoat   Emoji = "🐐"
)

var emojiNames = map[string]Emoji{
	"strong": EmojiStrong,
	"fire":   EmojiFire,
	"lift":   EmojiLift,
	"clap":   EmojiClap,
	"goat":   EmojiGoat,
}

// AllEmojis returns every accepted reaction kind.
func AllEmojis() []Emoji {
	return []Emoji{EmojiStrong, EmojiFire, EmojiLift, EmojiClap, EmojiGoat}
}

// Valid reports whether e belongs to the closed reaction set.
func (e Emoji) Valid() bool {
	for _, known := range AllEmojis() {
		if e == known {
			return true
		}
	}
	return false
}

// ParseEmoji accepts either the emoji glyph or its short name ("fire").
func ParseEmoji(s string) (Emoji, error) {
	s = strings.TrimSpace(s)
	if e := Emoji(s); e.Valid() {
		return e, nil
	}
	// The lifter glyph is often sent without the variation selector.
	if s == "🏋" {
		return EmojiLift, nil
	}
	if e, ok := emojiNames[strings.ToLower(s)]; ok {
		return e, nil
	}
	return "", fmt.Errorf("unknown reaction %q", s)
}

// VoterKey identifies a reactor. It is either an anonymous fingerprint or
// an authenticated user key; the core only relies on its uniqueness.
type VoterKey string

const userVoterPrefix = "user:"

// UserVoterKey returns the voter key used for an authenticated user.
func UserVoterKey(userID int64) VoterKey {
	return VoterKey(userVoterPrefix + strconv.FormatInt(userID, 10))
}

// FingerprintVoterKey wraps an anonymous fingerprint digest.
func FingerprintVoterKey(digest string) VoterKey {
	return VoterKey("anon:" + digest)
}

// IsZero reports whether the key is empty.
func (k VoterKey) IsZero() bool {
	return k == ""
}

// Package validation checks user-supplied post content and lookup input.
package validation

import (
	"unicode"

	"github.com/rivo/uniseg"
)

const (
	zeroWidthJoiner    = '\u200d'
	variationSelector  = '\ufe0f'
	combiningKeycap    = '\u20e3'
	hairComponentFirst = 0x1f9b0
	hairComponentLast  = 0x1f9b3
)

// IsEmojiOnly reports whether every grapheme cluster of s is an emoji.
// The empty string is not emoji-only.
func IsEmojiOnly(s string) bool {
	if s == "" {
		return false
	}
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		if !isEmojiCluster(g.Runes()) {
			return false
		}
	}
	return true
}

// isEmojiCluster accepts pictographic sequences (including ZWJ and modifier
// sequences), regional-indicator flag pairs and keycap sequences.
func isEmojiCluster(runes []rune) bool {
	if len(runes) == 0 {
		return false
	}
	for _, r := range runes {
		if !isEmojiRune(r) {
			return false
		}
	}

	first := runes[0]
	switch {
	case unicode.Is(extendedPictographic, first), unicode.Is(emojiModifiers, first):
		return true
	case unicode.Is(regionalIndicators, first):
		return len(runes) == 2 && unicode.Is(regionalIndicators, runes[1])
	case isKeycapBase(first):
		return isKeycapSequence(runes)
	default:
		return false
	}
}

func isEmojiRune(r rune) bool {
	switch {
	case r == zeroWidthJoiner, r == variationSelector, r == combiningKeycap:
		return true
	case r >= hairComponentFirst && r <= hairComponentLast:
		return true
	case isKeycapBase(r):
		return true
	}
	return unicode.In(r, extendedPictographic, emojiModifiers, regionalIndicators, tagCharacters)
}

func isKeycapBase(r rune) bool {
	return r == '#' || r == '*' || (r >= '0' && r <= '9')
}

// isKeycapSequence matches base [VS16] U+20E3.
func isKeycapSequence(runes []rune) bool {
	switch len(runes) {
	case 2:
		return runes[1] == combiningKeycap
	case 3:
		return runes[1] == variationSelector && runes[2] == combiningKeycap
	default:
		return false
	}
}

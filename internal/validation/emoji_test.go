package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmojiOnly(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"single", "\U0001F600", true},
		{"several", "\U0001F525\U0001F680\U0001F389", true},
		{"heart with variation selector", "\u2764\ufe0f", true},
		{"skin tone modifier", "\U0001F44D\U0001F3FD", true},
		{"zwj family", "\U0001F468\u200d\U0001F469\u200d\U0001F467", true},
		{"flag pair", "\U0001F1FA\U0001F1F8", true},
		{"keycap", "1\ufe0f\u20e3", true},
		{"keycap without selector", "#\u20e3", true},
		{"subdivision flag", "\U0001F3F4\U000E0067\U000E0062\U000E0065\U000E006E\U000E0067\U000E007F", true},
		{"empty", "", false},
		{"ascii letters", "hello", false},
		{"mixed", "\U0001F600a", false},
		{"space between", "\U0001F600 \U0001F600", false},
		{"bare digit", "7", false},
		{"lone regional indicator", "\U0001F1FA", false},
		{"newline", "\U0001F600\n", false},
		{"cjk", "\u732b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmojiOnly(tt.input))
		})
	}
}

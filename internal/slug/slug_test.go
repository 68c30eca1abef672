package slug

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestGenerate(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Great Game: Part 2!", "great-game-part-2"},
		{"Elden Ring", "elden-ring"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Multiple   spaces\tand\nlines", "multiple-spaces-and-lines"},
		{"Hyphen -- heavy---title", "hyphen-heavy-title"},
		{"-dash-wrapped-", "dash-wrapped"},
		{"Don't Starve", "dont-starve"},
		{"Pokémon Légendes", "pokmon-lgendes"},
		{"100% Orange Juice", "100-orange-juice"},
		{"a : b", "a-b"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.title))
		})
	}
}

func TestGenerateAlphabet(t *testing.T) {
	titles := []string{
		"The Witcher 3: Wild Hunt — GOTY",
		"--Half-Life²--",
		"FINAL FANTASY VII REMAKE & INTERGRADE",
		"　ideographic space　title　",
		"Tom Clancy's Rainbow Six® Siege",
		"a b",
		strings.Repeat("long title ", 40),
	}

	for _, title := range titles {
		s := Generate(title)
		if s == "" {
			continue
		}
		assert.Regexp(t, slugPattern, s, "title %q", title)
		assert.True(t, Valid(s), "Generate(%q) = %q should be Valid", title, s)
		assert.LessOrEqual(t, len(s), MaxLength)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	for _, title := range []string{"Great Game: Part 2!", "x--y", "Ünïcödé"} {
		once := Generate(title)
		assert.Equal(t, once, Generate(once))
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("great-game-part-2"))
	assert.True(t, Valid("a"))

	for _, s := range []string{"", "-a", "a-", "a--b", "A", "a_b", "../etc/passwd", "a/b", "a.json"} {
		assert.False(t, Valid(s), "%q", s)
	}
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "game-copy", WithSuffix("game-copy", 1))
	assert.Equal(t, "game-copy-2", WithSuffix("game-copy", 2))

	long := strings.Repeat("a", MaxLength)
	assert.Equal(t, strings.Repeat("a", MaxLength-2)+"-2", WithSuffix(long, 2))
	assert.Len(t, WithSuffix(long, 123), MaxLength)

	// A cut that lands on a hyphen must not leave a double hyphen.
	hyphenated := strings.Repeat("a", MaxLength-4) + "-bbb"
	got := WithSuffix(hyphenated, 12)
	assert.Equal(t, strings.Repeat("a", MaxLength-4)+"-12", got)
	assert.True(t, Valid(got))
}

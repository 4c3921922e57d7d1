package commit

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	domainErrors "github.com/fe-devtools/devflow/internal/errors"
)

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "correct button padding", true},
		{"empty", "", false},
		{"exactly 64", strings.Repeat("a", 64), true},
		{"65 characters", strings.Repeat("a", 65), false},
		{"uppercase", "Correct button padding", false},
		{"cjk", "修正 button padding", false},
		{"cjk upper bound", "fix 鿿", false},
		{"just below cjk range", "fix ䷿", true},
		{"accented lowercase counts runes", strings.Repeat("é", 64), true},
		{"digits and punctuation", "bump deps to 5.36.1 (#42)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, domainErrors.ErrInvalidCommitMessage))
				assert.Equal(t, domainErrors.TypeValidation, domainErrors.KindOf(err))
			}
			assert.Equal(t, tt.valid, IsValidMessage(tt.input))
		})
	}
}

func TestValidateMessage_MatchesDefinition(t *testing.T) {
	alphabet := []rune("abcXYZ -_.0中文一鿿é")
	rnd := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		n := rnd.Intn(70)
		runes := make([]rune, n)
		for j := range runes {
			runes[j] = alphabet[rnd.Intn(len(alphabet))]
		}
		s := string(runes)

		hasCJK := false
		for _, r := range s {
			if r >= 0x4E00 && r <= 0x9FFF {
				hasCJK = true
			}
		}
		want := !(s == "" || utf8.RuneCountInString(s) > 64 || s != strings.ToLower(s) || hasCJK)

		assert.Equal(t, want, IsValidMessage(s), "input %q", s)
	}
}

func TestValidateTicket(t *testing.T) {
	tests := []struct {
		ticket string
		valid  bool
	}{
		{"FE-1234", true},
		{"APP2-1", true},
		{"123-45", true},
		{"fe-1234", false},
		{"FE1234", false},
		{"FE-", false},
		{"-12", false},
		{"FE-12a", false},
		{" FE-12", false},
		{"FE_12", false},
		{"N/A", false},
	}

	for _, tt := range tests {
		t.Run(tt.ticket, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidTicket(tt.ticket))
			if !tt.valid {
				assert.True(t, errors.Is(ValidateTicket(tt.ticket), domainErrors.ErrInvalidTicket))
			}
		})
	}
}

func TestValidateType(t *testing.T) {
	for _, typ := range Types {
		assert.NoError(t, ValidateType(typ))
	}
	assert.True(t, errors.Is(ValidateType("feature"), domainErrors.ErrInvalidCommitType))
	assert.Error(t, ValidateType("FIX"))
}

func TestFormatAndParseMessage(t *testing.T) {
	assert.Equal(t, "fix(FE-1234): correct button padding", FormatMessage("fix", "FE-1234", "correct button padding"))
	assert.Equal(t, "chore: bump deps", FormatMessage("chore", "N/A", "bump deps"))
	assert.Equal(t, "chore: bump deps", FormatMessage("chore", "", "bump deps"))

	msg, ok := ParseMessage("fix(FE-1234): correct button padding\n\nbody")
	assert.True(t, ok)
	assert.Equal(t, Message{Type: "fix", Ticket: "FE-1234", Subject: "correct button padding"}, msg)
	assert.Equal(t, "fix(FE-1234): correct button padding", msg.String())

	msg, ok = ParseMessage("feat(ui)!: drop legacy theme")
	assert.True(t, ok)
	assert.Equal(t, "N/A", msg.Ticket)
	assert.True(t, msg.Breaking)

	_, ok = ParseMessage("random text")
	assert.False(t, ok)
}

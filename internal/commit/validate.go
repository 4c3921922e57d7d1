package commit

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/regex"
)

// MaxMessageLength is counted in characters, not bytes.
const MaxMessageLength = 64

var Types = []string{
	"feat", "fix", "docs", "style", "refactor", "perf", "test", "build", "ci", "chore", "revert",
}

// Message is a parsed conventional commit header.
type Message struct {
	Type     string
	Ticket   string
	Breaking bool
	Subject  string
}

func (m Message) String() string {
	return FormatMessage(m.Type, m.Ticket, m.Subject)
}

// IsValidMessage reports whether s is non-empty, at most 64 characters,
// entirely lowercase and free of CJK ideographs.
func IsValidMessage(s string) bool {
	return ValidateMessage(s) == nil
}

// ValidateMessage is IsValidMessage returning the failed rule as a VALIDATION error.
func ValidateMessage(s string) error {
	switch {
	case s == "":
		return errors.ErrInvalidCommitMessage.WithContext("reason", "empty")
	case utf8.RuneCountInString(s) > MaxMessageLength:
		return errors.ErrInvalidCommitMessage.
			WithContext("reason", "too long").
			WithContext("length", utf8.RuneCountInString(s))
	case s != strings.ToLower(s):
		return errors.ErrInvalidCommitMessage.WithContext("reason", "not lowercase")
	case regex.CJK.MatchString(s):
		return errors.ErrInvalidCommitMessage.WithContext("reason", "contains CJK characters")
	}
	return nil
}

func IsValidTicket(t string) bool {
	return regex.Ticket.MatchString(t)
}

func ValidateTicket(t string) error {
	if !IsValidTicket(t) {
		return errors.ErrInvalidTicket.WithContext("ticket", t)
	}
	return nil
}

func ValidateType(t string) error {
	for _, known := range Types {
		if t == known {
			return nil
		}
	}
	return errors.ErrInvalidCommitType.WithContext("type", t)
}

// FormatMessage builds "type(TICKET): message", or "type: message" when the
// ticket is empty or N/A.
func FormatMessage(commitType, ticket, message string) string {
	if ticket == "" || ticket == models.NoTicket {
		return fmt.Sprintf("%s: %s", commitType, message)
	}
	return fmt.Sprintf("%s(%s): %s", commitType, ticket, message)
}

// ParseMessage parses a conventional commit header. The scope is kept as the
// ticket only when it has the ticket shape.
func ParseMessage(header string) (Message, bool) {
	line := strings.SplitN(strings.TrimSpace(header), "\n", 2)[0]
	m := regex.ConventionalCommit.FindStringSubmatch(line)
	if m == nil {
		return Message{}, false
	}

	msg := Message{
		Type:     m[1],
		Ticket:   models.NoTicket,
		Breaking: m[4] == "!",
		Subject:  strings.TrimSpace(m[5]),
	}
	if IsValidTicket(m[3]) {
		msg.Ticket = m[3]
	}
	return msg, true
}

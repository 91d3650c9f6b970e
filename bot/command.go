package bot

import (
	"strings"
)

// Intent is what a chat message asks for.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentPresent
	IntentAbsent
	IntentHoliday
	IntentStatus
	IntentTest
)

// IsWrite reports whether the intent records something for today.
func (i Intent) IsWrite() bool {
	return i == IntentPresent || i == IntentAbsent || i == IntentHoliday
}

// Command is a parsed chat message.
type Command struct {
	Intent Intent
	Reason string // absent only; casing kept
}

// ParseCommand reads "present", "absent <reason>", "holiday", "status" and
// "test", case-insensitively, with or without a leading slash.
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "/")

	word, rest, _ := strings.Cut(text, " ")
	switch strings.ToLower(word) {
	case "present":
		return Command{Intent: IntentPresent}
	case "absent":
		return Command{Intent: IntentAbsent, Reason: strings.TrimSpace(rest)}
	case "holiday":
		return Command{Intent: IntentHoliday}
	case "status", "today":
		return Command{Intent: IntentStatus}
	case "test":
		return Command{Intent: IntentTest}
	default:
		return Command{Intent: IntentUnknown}
	}
}

// Reply texts.
const (
	UsageText     = "Use:\npresent\nabsent <reason>\nholiday\nstatus"
	PromptText    = "📘 Attendance Time\nReply with:\npresent\nabsent <reason>\nholiday"
	RestDayText   = "😴 Sunday is a rest day, nothing to mark."
	HolidayIgnore = "📅 Today is a holiday, attendance ignored"
)

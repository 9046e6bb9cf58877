package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"todogram/internal/models"
)

type IntentKind int

const (
	IntentUnknown IntentKind = iota
	IntentStart
	IntentHelp
	IntentLink
	IntentTasks
	IntentCreate
	IntentEdit
	IntentComplete
	IntentDelete
	IntentRemind
	IntentTomorrow
	IntentReminders
	IntentUnremind
	IntentFind
	IntentLists
)

// Intent is the parsed form of one inbound chat message. Command strings are
// matched only in ParseIntent; handlers dispatch on Kind and typed fields.
type Intent struct {
	Kind       IntentKind
	Filter     string // tasks: all|today|overdue|upcoming
	APIKey     string // link
	TaskID     int    // edit, complete, delete, remind, tomorrow
	ReminderID int    // unremind
	Field      string // edit
	Value      string // edit
	Text       string // create: raw "Title | Description | Date" tail
	Hour       int    // remind
	Minute     int    // remind
	Interval   models.RepeatInterval
	Term       string // find
}

// UsageError is malformed command input; its message is the corrective reply
// sent back to the user.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string { return e.msg }

func usage(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}

const (
	editUsage   = "Usage:\n/edit #ID title New title\n/edit #ID due 2024-12-31\n/edit #ID status InProgress\n\nTask IDs are shown in /tasks"
	remindUsage = "Usage:\n/remind #ID HH:mm\n/remind #ID 15:30 daily\n/remind #ID 09:00 weekly"
)

// ParseIntent turns raw message text into an Intent. Free text containing a
// pipe is an implicit create; other free text and unrecognized commands map
// to IntentUnknown.
func ParseIntent(text string) (*Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return &Intent{Kind: IntentUnknown}, nil
	}

	if !strings.HasPrefix(text, "/") {
		if strings.Contains(text, "|") {
			return &Intent{Kind: IntentCreate, Text: text}, nil
		}
		return &Intent{Kind: IntentUnknown}, nil
	}

	fields := strings.Fields(text)
	command := strings.ToLower(fields[0])
	if at := strings.Index(command, "@"); at > 0 {
		// Group chats address commands as /cmd@botname.
		command = command[:at]
	}
	args := fields[1:]
	tail := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))

	switch command {
	case "/start":
		return &Intent{Kind: IntentStart}, nil

	case "/help":
		return &Intent{Kind: IntentHelp}, nil

	case "/link", "/apikey":
		if len(args) < 1 {
			return nil, usage("Usage: /link YOUR_API_KEY")
		}
		return &Intent{Kind: IntentLink, APIKey: args[0]}, nil

	case "/tasks":
		filter := "all"
		if len(args) > 0 {
			switch strings.ToLower(args[0]) {
			case "today", "overdue", "upcoming":
				filter = strings.ToLower(args[0])
			default:
				return nil, usage("Usage: /tasks [today|overdue|upcoming]")
			}
		}
		return &Intent{Kind: IntentTasks, Filter: filter}, nil

	case "/create":
		if tail == "" {
			return nil, usage("To create a task use:\n/create Title | Description | 2024-12-31")
		}
		return &Intent{Kind: IntentCreate, Text: tail}, nil

	case "/edit":
		if len(args) < 3 {
			return nil, usage(editUsage)
		}
		id, err := parseTaskID(args[0])
		if err != nil {
			return nil, usage(editUsage)
		}
		field := strings.ToLower(args[1])
		switch field {
		case "title", "desc", "description", "due", "duedate", "status":
		default:
			return nil, usage("Unknown field: %s", args[1])
		}
		return &Intent{Kind: IntentEdit, TaskID: id, Field: field, Value: strings.Join(args[2:], " ")}, nil

	case "/complete":
		id, err := requireTaskID(args, "Usage: /complete #ID\nTask IDs are shown in /tasks")
		if err != nil {
			return nil, err
		}
		return &Intent{Kind: IntentComplete, TaskID: id}, nil

	case "/delete":
		id, err := requireTaskID(args, "Usage: /delete #ID\nTask IDs are shown in /tasks")
		if err != nil {
			return nil, err
		}
		return &Intent{Kind: IntentDelete, TaskID: id}, nil

	case "/remind", "/reminder":
		if len(args) < 2 {
			return nil, usage(remindUsage)
		}
		id, err := parseTaskID(args[0])
		if err != nil {
			return nil, usage(remindUsage)
		}
		hour, minute, err := parseClock(args[1])
		if err != nil {
			return nil, usage(remindUsage)
		}
		interval := models.RepeatNone
		if len(args) > 2 {
			interval, err = models.ParseRepeatInterval(strings.ToLower(args[2]))
			if err != nil {
				return nil, usage("Unknown repeat interval %q. Use daily, weekly or monthly.", args[2])
			}
		}
		return &Intent{Kind: IntentRemind, TaskID: id, Hour: hour, Minute: minute, Interval: interval}, nil

	case "/tomorrow":
		id, err := requireTaskID(args, "Usage: /tomorrow #ID sets a reminder for tomorrow at 09:00")
		if err != nil {
			return nil, err
		}
		return &Intent{Kind: IntentTomorrow, TaskID: id}, nil

	case "/reminders":
		return &Intent{Kind: IntentReminders}, nil

	case "/unremind":
		if len(args) < 1 {
			return nil, usage("Usage: /unremind ID\nReminder IDs are shown in /reminders")
		}
		id, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
		if err != nil || id <= 0 {
			return nil, usage("Usage: /unremind ID\nReminder IDs are shown in /reminders")
		}
		return &Intent{Kind: IntentUnremind, ReminderID: id}, nil

	case "/find":
		if len(args) < 1 {
			return nil, usage("Usage: /find ID or /find title")
		}
		return &Intent{Kind: IntentFind, Term: strings.Join(args, " ")}, nil

	case "/lists":
		return &Intent{Kind: IntentLists}, nil

	default:
		return &Intent{Kind: IntentUnknown}, nil
	}
}

// parseTaskID accepts both "#7" and "7".
func parseTaskID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func requireTaskID(args []string, usageMsg string) (int, error) {
	if len(args) < 1 {
		return 0, &UsageError{msg: usageMsg}
	}
	id, err := parseTaskID(args[0])
	if err != nil {
		return 0, &UsageError{msg: usageMsg}
	}
	return id, nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

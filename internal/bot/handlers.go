package bot

import (
	"context"
	"errors"
	"log"
	"time"

	"todogram/internal/gateway"
	"todogram/internal/models"
)

// TaskGateway is the slice of the task API the interpreter needs.
type TaskGateway interface {
	FetchTask(ctx context.Context, apiKey string, taskID int) (*models.TaskSummary, error)
	ListAssignedTasks(ctx context.Context, apiKey string) ([]*models.TaskSummary, error)
	ListLists(ctx context.Context, apiKey string) ([]*models.ListSummary, error)
	CreateTask(ctx context.Context, apiKey string, req gateway.CreateTaskRequest) error
	UpdateTask(ctx context.Context, apiKey string, taskID int, fields map[string]any) error
	DeleteTask(ctx context.Context, apiKey string, taskID int) error
}

type ReminderStore interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	ListPending(ctx context.Context, chatID int64) ([]*models.Reminder, error)
	Delete(ctx context.Context, reminderID int, chatID int64) error
}

type LinkStore interface {
	GetByChatID(ctx context.Context, chatID int64) (*models.ChatLink, error)
	Upsert(ctx context.Context, link *models.ChatLink) error
	TouchActivity(ctx context.Context, chatID int64, at time.Time) error
}

type Handlers struct {
	gateway   TaskGateway
	reminders ReminderStore
	links     LinkStore
	now       func() time.Time
}

func New(gw TaskGateway, reminders ReminderStore, links LinkStore) *Handlers {
	return &Handlers{
		gateway:   gw,
		reminders: reminders,
		links:     links,
		now:       time.Now,
	}
}

const (
	replyLinkPrompt = "Please link your account first: /link YOUR_API_KEY"
	replyRelink     = "Your API key is no longer valid. Link your account again with /link YOUR_API_KEY"
	replyInternal   = "Something went wrong. Please try again."
	replyUnknown    = "Unknown command. Use /help to see available commands."
)

// Process turns one inbound chat message into a reply. It never propagates a
// failure: the webhook boundary must always acknowledge receipt, so every
// error surfaces as reply text here.
func (h *Handlers) Process(ctx context.Context, chatID int64, username, text string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic handling message from chat %d: %v", chatID, r)
			reply = replyInternal
		}
	}()

	intent, err := ParseIntent(text)
	if err != nil {
		var usageErr *UsageError
		if errors.As(err, &usageErr) {
			return usageErr.Error()
		}
		log.Printf("Failed to parse message from chat %d: %v", chatID, err)
		return replyInternal
	}

	// Start, help and link work before an account is linked.
	switch intent.Kind {
	case IntentStart:
		return startText
	case IntentHelp:
		return helpText
	case IntentLink:
		return h.handleLink(ctx, chatID, username, intent.APIKey)
	}

	link, err := h.links.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return replyLinkPrompt
		}
		log.Printf("Failed to load chat link for %d: %v", chatID, err)
		return replyInternal
	}

	if err := h.links.TouchActivity(ctx, chatID, h.now().UTC()); err != nil {
		log.Printf("Failed to update activity for chat %d: %v", chatID, err)
	}

	reply, err = h.dispatch(ctx, link, intent)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			return replyRelink
		}
		log.Printf("Command failed for chat %d: %v", chatID, err)
		return replyInternal
	}
	return reply
}

func (h *Handlers) dispatch(ctx context.Context, link *models.ChatLink, intent *Intent) (string, error) {
	switch intent.Kind {
	case IntentTasks:
		return h.handleTasks(ctx, link, intent.Filter)
	case IntentCreate:
		return h.handleCreate(ctx, link, intent.Text)
	case IntentEdit:
		return h.handleEdit(ctx, link, intent)
	case IntentComplete:
		return h.handleComplete(ctx, link, intent.TaskID)
	case IntentDelete:
		return h.handleDeleteTask(ctx, link, intent.TaskID)
	case IntentRemind:
		return h.handleRemind(ctx, link, intent)
	case IntentTomorrow:
		return h.handleTomorrow(ctx, link, intent.TaskID)
	case IntentReminders:
		return h.handleReminderList(ctx, link)
	case IntentUnremind:
		return h.handleUnremind(ctx, link, intent.ReminderID)
	case IntentFind:
		return h.handleFind(ctx, link, intent.Term)
	case IntentLists:
		return h.handleLists(ctx, link)
	default:
		return replyUnknown, nil
	}
}

// Link validates the API key against the task API and stores the chat link.
// Shared by the /link chat command and the HTTP link endpoint.
func (h *Handlers) Link(ctx context.Context, chatID int64, username, apiKey string) error {
	if _, err := h.gateway.ListAssignedTasks(ctx, apiKey); err != nil {
		return err
	}
	return h.links.Upsert(ctx, &models.ChatLink{
		ChatID:   chatID,
		Username: username,
		APIKey:   apiKey,
	})
}

func (h *Handlers) handleLink(ctx context.Context, chatID int64, username, apiKey string) string {
	if err := h.Link(ctx, chatID, username, apiKey); err != nil {
		log.Printf("Failed to link chat %d: %v", chatID, err)
		return "❌ Invalid API key"
	}
	return "✅ Account linked successfully!"
}

const startText = `👋 Welcome to the TodoList bot!

Available commands:
/link KEY - Link your account
/tasks - Active tasks
/tasks today - Tasks due today
/tasks overdue - Overdue tasks
/tasks upcoming - Upcoming tasks
/create Title | Description | 2024-12-31 - Create a task
/edit ID [title|desc|due|status] VALUE - Edit a task
/complete ID - Complete a task
/delete ID - Delete a task
/lists - Your lists
/help - Help`

const helpText = `📖 *Available commands:*

📋 *Tasks:*
/tasks - Active tasks
/tasks today - Due today
/tasks overdue - Overdue
/tasks upcoming - Upcoming
/create Title | Description | 2024-12-31 - Create
/find ID or title - Find a task

✏️ *Editing:*
/edit #ID title New title
/edit #ID due 2024-12-31
/edit #ID status InProgress
/complete #ID - Complete
/delete #ID - Delete

🔔 *Reminders:*
/remind #ID HH:mm - Remind at a time
/remind #ID 09:00 daily - Every day
/remind #ID 10:00 weekly - Every week
/tomorrow #ID - Tomorrow at 09:00
/reminders - Your reminders
/unremind ID - Delete a reminder

📁 *Lists:*
/lists - Your lists

🔢 Task IDs are shown as #number in /tasks`

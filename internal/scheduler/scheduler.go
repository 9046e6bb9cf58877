package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"todogram/internal/models"
)

const fallbackTitle = "your task"

type ReminderStore interface {
	ListDue(ctx context.Context, now time.Time, windowBack time.Duration) ([]*models.Reminder, error)
	MarkSent(ctx context.Context, reminderID int, sentAt time.Time) error
	Create(ctx context.Context, reminder *models.Reminder) error
}

type LinkStore interface {
	GetByChatID(ctx context.Context, chatID int64) (*models.ChatLink, error)
}

type TaskFetcher interface {
	FetchTask(ctx context.Context, apiKey string, taskID int) (*models.TaskSummary, error)
}

type Sender interface {
	Send(chatID int64, text string)
}

// Scheduler polls the reminder store on a fixed interval and dispatches
// reminders that became due inside a trailing window. Reminders older than
// the window stay unsent: catch-up delivery is deliberately out of scope.
type Scheduler struct {
	reminders     ReminderStore
	links         LinkStore
	tasks         TaskFetcher
	sender        Sender
	checkInterval time.Duration
	window        time.Duration
	now           func() time.Time
}

func New(reminders ReminderStore, links LinkStore, tasks TaskFetcher, sender Sender) *Scheduler {
	return &Scheduler{
		reminders:     reminders,
		links:         links,
		tasks:         tasks,
		sender:        sender,
		checkInterval: 1 * time.Minute,
		window:        5 * time.Minute,
		now:           time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	log.Println("Scheduler started")
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run first check
	s.check(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	now := s.now().UTC()
	due, err := s.reminders.ListDue(ctx, now, s.window)
	if err != nil {
		log.Printf("Failed to get due reminders: %v", err)
		return
	}

	for _, reminder := range due {
		// One bad reminder must not block the rest of the batch.
		if err := s.process(ctx, reminder, now); err != nil {
			log.Printf("Failed to process reminder %d: %v", reminder.ID, err)
		}
	}
}

// process dispatches a reminder and then commits its state: first the send
// attempt, then mark-sent, then the successor insert for recurring ones. A
// crash between phases re-delivers at most once on a later tick.
func (s *Scheduler) process(ctx context.Context, reminder *models.Reminder, now time.Time) error {
	s.sender.Send(reminder.ChatID, s.buildText(ctx, reminder))

	if err := s.reminders.MarkSent(ctx, reminder.ID, now); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	log.Printf("Sent reminder %d to chat %d", reminder.ID, reminder.ChatID)

	if !reminder.IsRecurring() || reminder.NextFireAt == nil {
		return nil
	}

	// Recurrence inserts a fresh row; the fired row stays immutable. A next
	// fire time that fell behind while the process was down skips ahead to
	// the next future occurrence instead of replaying the backlog.
	fireAt := *reminder.NextFireAt
	if !fireAt.After(now) {
		fireAt = reminder.RepeatInterval.NextAfter(fireAt, now)
	}
	successor := &models.Reminder{
		ChatID:         reminder.ChatID,
		TaskID:         reminder.TaskID,
		FireAt:         fireAt,
		Message:        reminder.Message,
		RepeatInterval: reminder.RepeatInterval,
	}
	if err := s.reminders.Create(ctx, successor); err != nil {
		return fmt.Errorf("create successor: %w", err)
	}
	log.Printf("Scheduled next reminder for task %d at %s", reminder.TaskID, fireAt.Format("2006-01-02 15:04"))
	return nil
}

func (s *Scheduler) buildText(ctx context.Context, reminder *models.Reminder) string {
	return fmt.Sprintf("🔔 *Reminder!*\n\n*%s*\n⏰ %s\n\nℹ️ %s",
		s.taskTitle(ctx, reminder), reminder.FireAt.Format("15:04"), reminder.Message)
}

// taskTitle resolves the task's current title for display, falling back to a
// placeholder when the link or the task API is unavailable.
func (s *Scheduler) taskTitle(ctx context.Context, reminder *models.Reminder) string {
	link, err := s.links.GetByChatID(ctx, reminder.ChatID)
	if err != nil {
		log.Printf("Failed to resolve chat link for reminder %d: %v", reminder.ID, err)
		return fallbackTitle
	}

	task, err := s.tasks.FetchTask(ctx, link.APIKey, reminder.TaskID)
	if err != nil {
		log.Printf("Failed to fetch task %d for reminder %d: %v", reminder.TaskID, reminder.ID, err)
		return fallbackTitle
	}
	return task.Title
}

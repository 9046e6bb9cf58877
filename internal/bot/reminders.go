package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"todogram/internal/gateway"
	"todogram/internal/models"
)

const reminderTimeLayout = "15:04 2006-01-02"

func (h *Handlers) handleRemind(ctx context.Context, link *models.ChatLink, intent *Intent) (string, error) {
	fireAt := nextClockOccurrence(h.now().UTC(), intent.Hour, intent.Minute)
	return h.createReminder(ctx, link, intent.TaskID, fireAt, intent.Interval)
}

func (h *Handlers) handleTomorrow(ctx context.Context, link *models.ChatLink, taskID int) (string, error) {
	now := h.now().UTC()
	fireAt := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return h.createReminder(ctx, link, taskID, fireAt, models.RepeatNone)
}

// nextClockOccurrence places the given wall-clock time on today's UTC date,
// rolling to tomorrow when it has already passed.
func nextClockOccurrence(now time.Time, hour, minute int) time.Time {
	fireAt := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if fireAt.Before(now) {
		fireAt = fireAt.Add(24 * time.Hour)
	}
	return fireAt
}

func (h *Handlers) createReminder(ctx context.Context, link *models.ChatLink, taskID int, fireAt time.Time, interval models.RepeatInterval) (string, error) {
	// The task must exist before a reminder can point at it.
	task, err := h.gateway.FetchTask(ctx, link.APIKey, taskID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Sprintf("Task #%d not found", taskID), nil
		}
		if gateway.IsUnauthorized(err) {
			return "", err
		}
		log.Printf("Failed to fetch task %d for chat %d: %v", taskID, link.ChatID, err)
		return "❌ Failed to set the reminder", nil
	}

	reminder := &models.Reminder{
		ChatID:         link.ChatID,
		TaskID:         taskID,
		FireAt:         fireAt,
		Message:        fmt.Sprintf("⏰ Reminder: %s", task.Title),
		RepeatInterval: interval,
	}
	if err := h.reminders.Create(ctx, reminder); err != nil {
		log.Printf("Failed to create reminder for chat %d: %v", link.ChatID, err)
		return "❌ Failed to set the reminder", nil
	}

	repeatText := ""
	if interval.IsRecurring() {
		repeatText = fmt.Sprintf(" (repeats %s)", interval)
	}
	return fmt.Sprintf("✅ Reminder set for %s UTC%s\nReminder ID: #%d",
		fireAt.Format(reminderTimeLayout), repeatText, reminder.ID), nil
}

func (h *Handlers) handleReminderList(ctx context.Context, link *models.ChatLink) (string, error) {
	reminders, err := h.reminders.ListPending(ctx, link.ChatID)
	if err != nil {
		log.Printf("Failed to list reminders for chat %d: %v", link.ChatID, err)
		return "❌ Failed to fetch reminders", nil
	}

	if len(reminders) == 0 {
		return "📭 You have no active reminders", nil
	}

	var sb strings.Builder
	sb.WriteString("🔔 *Your reminders:*\n")
	for _, r := range reminders {
		fmt.Fprintf(&sb, "\n`#%d` ⏳ Task #%d\n   🕐 %s UTC\n", r.ID, r.TaskID, r.FireAt.Format(reminderTimeLayout))
		if r.IsRecurring() {
			fmt.Fprintf(&sb, "   🔁 repeats %s\n", r.RepeatInterval)
		}
		if r.Message != "" {
			fmt.Fprintf(&sb, "   📝 %s\n", r.Message)
		}
	}
	sb.WriteString("\nℹ️ Use /unremind ID to delete a reminder")
	return sb.String(), nil
}

func (h *Handlers) handleUnremind(ctx context.Context, link *models.ChatLink, reminderID int) (string, error) {
	err := h.reminders.Delete(ctx, reminderID, link.ChatID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "Reminder not found", nil
		}
		log.Printf("Failed to delete reminder %d for chat %d: %v", reminderID, link.ChatID, err)
		return "❌ Failed to delete the reminder", nil
	}
	return fmt.Sprintf("🗑️ Reminder #%d deleted", reminderID), nil
}

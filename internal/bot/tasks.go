package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"todogram/internal/gateway"
	"todogram/internal/models"
)

const taskPageSize = 15

const dueDateLayout = "2006-01-02"

func (h *Handlers) handleTasks(ctx context.Context, link *models.ChatLink, filter string) (string, error) {
	tasks, err := h.listTasks(ctx, link)
	if err != nil {
		return "", err
	}

	now := h.now().UTC()
	filtered := filterTasks(tasks, filter, now)
	if len(filtered) == 0 {
		switch filter {
		case "today":
			return "📭 You have no tasks due today", nil
		case "overdue":
			return "📭 You have no overdue tasks", nil
		case "upcoming":
			return "📭 You have no upcoming tasks", nil
		default:
			return "📭 You have no active tasks", nil
		}
	}

	sortByDueDate(filtered)

	var header string
	switch filter {
	case "today":
		header = "📅 *Tasks due today*"
	case "overdue":
		header = "🚨 *Overdue tasks*"
	case "upcoming":
		header = "🔮 *Upcoming tasks*"
	default:
		header = "📋 *Active tasks*"
	}

	return renderTaskList(header, filtered, now), nil
}

// listTasks fetches the assigned-task list. Display paths degrade to an empty
// list on gateway failure; an invalid key still surfaces as a re-link prompt.
func (h *Handlers) listTasks(ctx context.Context, link *models.ChatLink) ([]*models.TaskSummary, error) {
	tasks, err := h.gateway.ListAssignedTasks(ctx, link.APIKey)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			return nil, err
		}
		log.Printf("Failed to list tasks for chat %d: %v", link.ChatID, err)
		return nil, nil
	}
	return tasks, nil
}

// filterTasks keeps non-done tasks matching the filter at UTC-day granularity.
func filterTasks(tasks []*models.TaskSummary, filter string, now time.Time) []*models.TaskSummary {
	today := models.UTCDay(now)
	var out []*models.TaskSummary
	for _, t := range tasks {
		if t.IsDone() {
			continue
		}
		if filter != "all" && t.DueDate == nil {
			continue
		}
		switch filter {
		case "today":
			if !models.UTCDay(*t.DueDate).Equal(today) {
				continue
			}
		case "overdue":
			if !models.UTCDay(*t.DueDate).Before(today) {
				continue
			}
		case "upcoming":
			if !models.UTCDay(*t.DueDate).After(today) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// sortByDueDate orders ascending by due date, tasks without one last.
func sortByDueDate(tasks []*models.TaskSummary) {
	sort.SliceStable(tasks, func(i, j int) bool {
		di, dj := tasks[i].DueDate, tasks[j].DueDate
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return di.Before(*dj)
	})
}

func renderTaskList(header string, tasks []*models.TaskSummary, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d)\n\n", header, len(tasks))

	shown := tasks
	if len(shown) > taskPageSize {
		shown = shown[:taskPageSize]
	}
	for _, t := range shown {
		sb.WriteString(renderTaskLine(t, now))
	}
	if len(tasks) > taskPageSize {
		fmt.Fprintf(&sb, "... and %d more tasks\n", len(tasks)-taskPageSize)
	}

	sb.WriteString("\nℹ️ Task IDs are shown as `#number`. Use /edit #ID to edit.")
	return sb.String()
}

func renderTaskLine(t *models.TaskSummary, now time.Time) string {
	overdue := ""
	if t.IsOverdue(now) {
		overdue = "🚨 "
	}
	line := fmt.Sprintf("`#%d` %s%s *%s*\n", t.ID, overdue, statusIcon(t.Status), t.Title)
	if t.DueDate != nil {
		line += fmt.Sprintf("   📅 %s\n", t.DueDate.Format(dueDateLayout))
	}
	if t.Description != "" {
		line += fmt.Sprintf("   📝 %s\n", truncate(t.Description, 50))
	}
	return line + "\n"
}

func statusIcon(status string) string {
	switch strings.ToLower(status) {
	case "pending":
		return "⏳"
	case "inprogress":
		return "🔄"
	case "done":
		return "✅"
	default:
		return "📝"
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func (h *Handlers) handleCreate(ctx context.Context, link *models.ChatLink, text string) (string, error) {
	parts := strings.SplitN(text, "|", 3)
	title := strings.TrimSpace(parts[0])
	if title == "" {
		return "To create a task use:\n/create Title | Description | 2024-12-31", nil
	}

	var description string
	if len(parts) > 1 {
		description = strings.TrimSpace(parts[1])
	}

	var dueDate *time.Time
	if len(parts) > 2 {
		// Unparseable dates are dropped, not rejected: the task is still
		// created, just without a due date.
		if parsed, err := time.Parse(dueDateLayout, strings.TrimSpace(parts[2])); err == nil {
			dueDate = &parsed
		}
	}

	lists, err := h.gateway.ListLists(ctx, link.APIKey)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			return "", err
		}
		log.Printf("Failed to fetch lists for chat %d: %v", link.ChatID, err)
		return "❌ Could not fetch your lists", nil
	}
	if len(lists) == 0 {
		return "Create a list in the web app first", nil
	}

	req := gateway.CreateTaskRequest{
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		ListID:      lists[0].ID,
	}
	if err := h.gateway.CreateTask(ctx, link.APIKey, req); err != nil {
		if gateway.IsUnauthorized(err) {
			return "", err
		}
		log.Printf("Failed to create task for chat %d: %v", link.ChatID, err)
		return "❌ Failed to create the task", nil
	}

	dueText := ""
	if dueDate != nil {
		dueText = fmt.Sprintf(" (due %s)", dueDate.Format(dueDateLayout))
	}
	return fmt.Sprintf("✅ Task %q created%s!", title, dueText), nil
}

func (h *Handlers) handleEdit(ctx context.Context, link *models.ChatLink, intent *Intent) (string, error) {
	fields := map[string]any{}
	switch intent.Field {
	case "title":
		fields["title"] = intent.Value
	case "desc", "description":
		fields["description"] = intent.Value
	case "due", "duedate":
		// Unlike create, a bad date here is an error: the user asked for
		// exactly one change and silently skipping it would look like success.
		parsed, err := time.Parse(dueDateLayout, intent.Value)
		if err != nil {
			return "Invalid date format. Use YYYY-MM-DD", nil
		}
		fields["dueDate"] = parsed
	case "status":
		fields["status"] = intent.Value
	}

	if err := h.gateway.UpdateTask(ctx, link.APIKey, intent.TaskID, fields); err != nil {
		if gateway.IsUnauthorized(err) {
			return "", err
		}
		log.Printf("Failed to update task %d for chat %d: %v", intent.TaskID, link.ChatID, err)
		return fmt.Sprintf("❌ Failed to update task #%d", intent.TaskID), nil
	}
	return fmt.Sprintf("✅ Task #%d updated!", intent.TaskID), nil
}

func (h *Handlers) handleComplete(ctx context.Context, link *models.ChatLink, taskID int) (string, error) {
	fields := map[string]any{"status": "Done"}
	if err := h.gateway.UpdateTask(ctx, link.APIKey, taskID, fields); err != nil {
		if gateway.IsUnauthorized(err) {
			return "", err
		}
		log.Printf("Failed to complete task %d for chat %d: %v", taskID, link.ChatID, err)
		return fmt.Sprintf("❌ Failed to complete task #%d", taskID), nil
	}
	return fmt.Sprintf("✅ Task #%d completed!", taskID), nil
}

func (h *Handlers) handleDeleteTask(ctx context.Context, link *models.ChatLink, taskID int) (string, error) {
	if err := h.gateway.DeleteTask(ctx, link.APIKey, taskID); err != nil {
		if gateway.IsUnauthorized(err) {
			return "", err
		}
		log.Printf("Failed to delete task %d for chat %d: %v", taskID, link.ChatID, err)
		return fmt.Sprintf("❌ Failed to delete task #%d", taskID), nil
	}
	return fmt.Sprintf("🗑️ Task #%d deleted!", taskID), nil
}

func (h *Handlers) handleFind(ctx context.Context, link *models.ChatLink, term string) (string, error) {
	tasks, err := h.listTasks(ctx, link)
	if err != nil {
		return "", err
	}

	var found []*models.TaskSummary
	if id, convErr := strconv.Atoi(strings.TrimPrefix(term, "#")); convErr == nil {
		for _, t := range tasks {
			if t.ID == id {
				found = append(found, t)
			}
		}
	} else {
		needle := strings.ToLower(term)
		for _, t := range tasks {
			if strings.Contains(strings.ToLower(t.Title), needle) ||
				strings.Contains(strings.ToLower(t.Description), needle) {
				found = append(found, t)
			}
		}
	}

	if len(found) == 0 {
		return fmt.Sprintf("🔍 No tasks found for %q", term), nil
	}

	now := h.now().UTC()
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 *Tasks found:* %d\n\n", len(found))
	for _, t := range found {
		sb.WriteString(renderTaskLine(t, now))
	}
	return sb.String(), nil
}

func (h *Handlers) handleLists(ctx context.Context, link *models.ChatLink) (string, error) {
	lists, err := h.gateway.ListLists(ctx, link.APIKey)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			return "", err
		}
		log.Printf("Failed to fetch lists for chat %d: %v", link.ChatID, err)
		lists = nil
	}

	if len(lists) == 0 {
		return "📭 You have no lists", nil
	}

	var sb strings.Builder
	sb.WriteString("📁 *Your lists:*\n")
	for _, list := range lists {
		fmt.Fprintf(&sb, "• %s (%d tasks)\n", list.Title, list.TasksCount)
	}
	return sb.String(), nil
}

package models

import (
	"strings"
	"time"
)

// TaskSummary is the task shape returned by the internal task API.
type TaskSummary struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Status      string     `json:"status"`
}

func (t *TaskSummary) IsDone() bool {
	return strings.EqualFold(t.Status, "done")
}

func (t *TaskSummary) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && UTCDay(*t.DueDate).Before(UTCDay(now)) && !t.IsDone()
}

// ListSummary is a todo list as returned by the internal task API.
type ListSummary struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	TasksCount int    `json:"tasksCount"`
}

// UTCDay truncates t to midnight of its UTC calendar day. Due-date filters
// compare at day granularity in UTC.
func UTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

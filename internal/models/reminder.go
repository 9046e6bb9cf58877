package models

import (
	"fmt"
	"time"
)

// RepeatInterval governs whether a successor reminder is generated after a
// reminder fires.
type RepeatInterval string

const (
	RepeatNone    RepeatInterval = "none"
	RepeatDaily   RepeatInterval = "daily"
	RepeatWeekly  RepeatInterval = "weekly"
	RepeatMonthly RepeatInterval = "monthly"
)

// ParseRepeatInterval validates a user-supplied interval string. Unrecognized
// values are rejected rather than silently treated as "none".
func ParseRepeatInterval(s string) (RepeatInterval, error) {
	switch RepeatInterval(s) {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return RepeatInterval(s), nil
	default:
		return "", fmt.Errorf("%w: unknown repeat interval %q", ErrValidation, s)
	}
}

func (i RepeatInterval) IsRecurring() bool {
	return i != RepeatNone && i != ""
}

// Next advances t by one calendar unit of the interval. Never called for none.
func (i RepeatInterval) Next(t time.Time) time.Time {
	switch i {
	case RepeatDaily:
		return t.AddDate(0, 0, 1)
	case RepeatWeekly:
		return t.AddDate(0, 0, 7)
	case RepeatMonthly:
		return t.AddDate(0, 1, 0)
	}
	return t
}

// NextAfter advances t by whole intervals until the result lands after now.
// Recurring reminders that fell behind while the process was down skip ahead
// to their next future occurrence instead of replaying the backlog.
func (i RepeatInterval) NextAfter(t, now time.Time) time.Time {
	next := i.Next(t)
	for !next.After(now) {
		next = i.Next(next)
	}
	return next
}

type Reminder struct {
	ID             int            `json:"id"`
	ChatID         int64          `json:"chat_id"`
	TaskID         int            `json:"task_id"`
	FireAt         time.Time      `json:"fire_at"`
	Sent           bool           `json:"sent"`
	SentAt         *time.Time     `json:"sent_at"`
	Message        string         `json:"message"`
	RepeatInterval RepeatInterval `json:"repeat_interval"`
	NextFireAt     *time.Time     `json:"next_fire_at"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (r *Reminder) IsRecurring() bool {
	return r.RepeatInterval.IsRecurring()
}

package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"todogram/internal/database"
	"todogram/internal/models"
)

const reminderColumns = "id, chat_id, task_id, fire_at, sent, sent_at, message, repeat_interval, next_fire_at, created_at"

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create inserts an unsent reminder. Fire time is normalized to UTC and, for
// recurring reminders, the next fire time is computed here so the stored row
// is self-contained.
func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	interval, err := models.ParseRepeatInterval(string(reminder.RepeatInterval))
	if err != nil {
		return err
	}

	reminder.FireAt = reminder.FireAt.UTC()
	if interval.IsRecurring() {
		next := interval.Next(reminder.FireAt)
		reminder.NextFireAt = &next
	} else {
		reminder.NextFireAt = nil
	}

	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (chat_id, task_id, fire_at, message, repeat_interval, next_fire_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, sent, created_at`,
		reminder.ChatID, reminder.TaskID, reminder.FireAt, reminder.Message,
		reminder.RepeatInterval, reminder.NextFireAt,
	).Scan(&reminder.ID, &reminder.Sent, &reminder.CreatedAt)
}

// ListPending returns a chat's unsent reminders, soonest first.
func (r *ReminderRepository) ListPending(ctx context.Context, chatID int64) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+`
		 FROM reminders WHERE chat_id = $1 AND NOT sent
		 ORDER BY fire_at ASC`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

// ListDue returns unsent reminders whose fire time falls inside the closed
// interval [now - windowBack, now]. Reminders older than the window are left
// behind on purpose: missed reminders are never delivered late.
func (r *ReminderRepository) ListDue(ctx context.Context, now time.Time, windowBack time.Duration) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+`
		 FROM reminders WHERE NOT sent AND fire_at <= $1 AND fire_at >= $2
		 ORDER BY fire_at ASC`,
		now, now.Add(-windowBack),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

func (r *ReminderRepository) MarkSent(ctx context.Context, reminderID int, sentAt time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET sent = true, sent_at = $1 WHERE id = $2`,
		sentAt.UTC(), reminderID,
	)
	return err
}

// Delete removes a reminder scoped to the owning chat identity. Deleting
// another chat's reminder reports ErrNotFound, never cross-tenant success.
func (r *ReminderRepository) Delete(ctx context.Context, reminderID int, chatID int64) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders WHERE id = $1 AND chat_id = $2`,
		reminderID, chatID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanReminders(rows pgx.Rows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder := &models.Reminder{}
		if err := rows.Scan(&reminder.ID, &reminder.ChatID, &reminder.TaskID, &reminder.FireAt,
			&reminder.Sent, &reminder.SentAt, &reminder.Message, &reminder.RepeatInterval,
			&reminder.NextFireAt, &reminder.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

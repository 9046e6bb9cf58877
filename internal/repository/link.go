package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"todogram/internal/database"
	"todogram/internal/models"
)

type LinkRepository struct {
	db *database.DB
}

func NewLinkRepository(db *database.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Upsert stores the chat link, replacing any previous key for the chat.
// Relinking rotates the credential without touching the chat's reminders.
func (r *LinkRepository) Upsert(ctx context.Context, link *models.ChatLink) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO telegram_links (chat_id, username, api_key)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (chat_id) DO UPDATE
		 SET username = EXCLUDED.username, api_key = EXCLUDED.api_key, linked_at = now()
		 RETURNING id, linked_at`,
		link.ChatID, link.Username, link.APIKey,
	).Scan(&link.ID, &link.LinkedAt)
}

func (r *LinkRepository) GetByChatID(ctx context.Context, chatID int64) (*models.ChatLink, error) {
	link := &models.ChatLink{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, chat_id, username, api_key, linked_at, last_activity
		 FROM telegram_links WHERE chat_id = $1`,
		chatID,
	).Scan(&link.ID, &link.ChatID, &link.Username, &link.APIKey, &link.LinkedAt, &link.LastActivity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return link, nil
}

func (r *LinkRepository) TouchActivity(ctx context.Context, chatID int64, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE telegram_links SET last_activity = $1 WHERE chat_id = $2`,
		at.UTC(), chatID,
	)
	return err
}

package models

import "time"

// ChatLink associates a Telegram chat identity with an application user's
// bot-scoped API key. The reminder core reads it to discover which key to
// present to the task API.
type ChatLink struct {
	ID           int        `json:"id"`
	ChatID       int64      `json:"chat_id"`
	Username     string     `json:"username"`
	APIKey       string     `json:"api_key"`
	LinkedAt     time.Time  `json:"linked_at"`
	LastActivity *time.Time `json:"last_activity"`
}

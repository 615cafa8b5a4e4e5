package models

import "time"

// Session backs a manager JWT so it can be revoked before it expires.
type Session struct {
	SessionID string    `json:"session_id"`
	KeyID     string    `json:"key_id"`
	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const ManagerRole Role = "manager"

// Manager is an operator authenticated through a configured API key.
type Manager struct {
	KeyID     string `json:"key_id"`
	Role      Role   `json:"role"`
	SessionID string `json:"session_id,omitempty"`
}

type SessionRequest struct {
	APIKey string `json:"api_key" validate:"required,min=16"`
}

type SessionResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// HashAPIKey produces the bcrypt hash stored in configuration.
func HashAPIKey(key string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(key)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// MatchAPIKey returns the index of the hash that matches key, or -1.
func MatchAPIKey(hashes []string, key string) int {
	key = strings.TrimSpace(key)
	for i, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(key)) == nil {
			return i
		}
	}
	return -1
}

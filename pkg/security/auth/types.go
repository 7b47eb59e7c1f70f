package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidKey is returned for a key that is not configured.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrKeyDisabled is returned for a configured key that was switched off.
	ErrKeyDisabled = errors.New("API key disabled")
)

// APIKeyInfo represents an API key and the user it authenticates.
type APIKeyInfo struct {
	Key       string
	UserID    string
	Enabled   bool
	CreatedAt time.Time
}

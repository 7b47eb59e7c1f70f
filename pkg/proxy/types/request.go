package types

import (
	"fmt"
	"strings"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	// Model overrides the provider's default model. Optional.
	Model string `json:"model,omitempty"`

	// Messages is the conversation history, oldest first.
	Messages []Message `json:"messages"`

	// Temperature controls randomness (0-2). Optional.
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens caps the completion length. Optional.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// Message is one message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is the body of POST /v1/generate/{action}.
type GenerateRequest struct {
	// Prompt describes what to generate.
	Prompt string `json:"prompt"`

	// Model overrides the provider's default model. Optional.
	Model string `json:"model,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateAccountRequest is the body of POST /admin/quota.
type CreateAccountRequest struct {
	UserID string `json:"userId"`
	Tier   string `json:"tier"`
}

// ValidationError reports an invalid field in a request body.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validRoles = map[string]bool{"system": true, "user": true, "assistant": true}

// Validate checks the chat request.
func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	for i, msg := range r.Messages {
		if !validRoles[msg.Role] {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("invalid role %q", msg.Role),
			}
		}
		if strings.TrimSpace(msg.Content) == "" {
			return &ValidationError{Field: fmt.Sprintf("messages[%d].content", i), Message: "content is required"}
		}
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return &ValidationError{Field: "temperature", Message: "must be between 0 and 2"}
	}
	if r.MaxTokens < 0 {
		return &ValidationError{Field: "max_tokens", Message: "must be non-negative"}
	}
	return nil
}

// Validate checks the generate request.
func (r *GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	return nil
}

// Validate checks the login request.
func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if r.Password == "" {
		return &ValidationError{Field: "password", Message: "password is required"}
	}
	return nil
}

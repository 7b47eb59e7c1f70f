package openai

import (
	"errors"

	"mercator-hq/bulwark/pkg/providers"
)

// errNoChoices marks a 200 response without a completion. It surfaces as a
// ParseError, which is retried like a bad gateway.
var errNoChoices = errors.New("response has no choices")

// Wire types for POST /chat/completions. Only the fields the proxy reads or
// sends are declared.
type (
	chatRequest struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		Temperature float64       `json:"temperature,omitempty"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
		User        string        `json:"user,omitempty"`
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatResponse struct {
		ID      string       `json:"id"`
		Created int64        `json:"created"`
		Model   string       `json:"model"`
		Choices []chatChoice `json:"choices"`
		Usage   *chatUsage   `json:"usage"`
	}

	chatChoice struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}

	chatUsage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}
)

func toChatRequest(req *providers.CompletionRequest, defaultModel string) *chatRequest {
	out := &chatRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		User:        req.User,
	}
	if out.Model == "" {
		out.Model = defaultModel
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, chatMessage(m))
	}
	return out
}

// fromChatResponse reads the first choice. Some compatible servers omit
// usage or its total; the total is then derived from the parts.
func fromChatResponse(resp *chatResponse) (*providers.CompletionResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, errNoChoices
	}
	first := resp.Choices[0]

	out := &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      first.Message.Content,
		FinishReason: finishReason(first.FinishReason),
		Created:      resp.Created,
	}
	if u := resp.Usage; u != nil {
		out.Usage = providers.TokenUsage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
		if out.Usage.TotalTokens == 0 {
			out.Usage.TotalTokens = u.PromptTokens + u.CompletionTokens
		}
	}
	return out, nil
}

func finishReason(reason string) string {
	switch reason {
	case "length":
		return providers.FinishReasonLength
	case "content_filter":
		return providers.FinishReasonContentFilter
	case "stop", "tool_calls", "function_call":
		return providers.FinishReasonStop
	default:
		return reason
	}
}

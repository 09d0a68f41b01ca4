// Package assist drafts suggested agent replies from the live transcript.
// The workspace core never depends on it; a failed suggestion is an error
// for the caller, not a degraded chat.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/chat"
)

// ErrNoTranscript indicates there are no messages to suggest from.
var ErrNoTranscript = errors.New("no transcript to suggest from")

const systemPrompt = `You are drafting a reply for a customer support agent.
Write one short, courteous reply to the customer's latest message.
Reply with the message text only.`

// Suggester drafts replies with a chat completion model.
type Suggester struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewSuggester creates a suggester. An empty model selects GPT-4o mini.
func NewSuggester(apiKey, model string, logger *slog.Logger) *Suggester {
	if model == "" {
		model = openai.GPT4oMini
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Suggester{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// SuggestReply returns one drafted agent reply for the transcript.
func (s *Suggester) SuggestReply(ctx context.Context, customerName string, history []chat.Message) (string, error) {
	if len(history) == 0 {
		return "", ErrNoTranscript
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt + "\nThe customer's name is " + customerName + ".",
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.SenderType == "agent" || m.SenderType == "ai" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: msgs,
	})
	if err != nil {
		s.logger.Error("suggestion request failed", "error", err)
		return "", fmt.Errorf("requesting suggestion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

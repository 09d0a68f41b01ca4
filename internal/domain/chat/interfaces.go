package chat

import "context"

// StateStore persists the chat window snapshot. Writes are best-effort:
// implementations log failures instead of returning them.
type StateStore interface {
	SaveChatWindow(win Window)
	LoadChatWindow() Window
}

// HistoryFetcher loads the transcript of a chat session from the backend.
type HistoryFetcher interface {
	ChatHistory(ctx context.Context, sessionID string) ([]Message, error)
}

// Package statestore adapts the durable KV store into the workspace and
// chat persistence ports. Missing keys, invalid JSON,
// and malformed entries all degrade to safe defaults, and writes never
// surface errors to callers. The dashboard keeps working with in-memory
// state when persistence is unavailable.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/chat"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/workspace"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/storage"
)

const (
	keyTabs       = "tabs"
	keyActiveTab  = "active-tab"
	keyChatWindow = "chat-window"

	writeTimeout = 5 * time.Second
)

// Store persists workspace state under fixed keys in a KV store.
type Store struct {
	kv     storage.KV
	logger *slog.Logger
}

// New creates a store over the given KV backend.
func New(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// SaveTabs writes the tab list and active-tab pointer. Best-effort.
func (s *Store) SaveTabs(tabs []workspace.Tab, activeID string) {
	s.write(keyTabs, tabs)
	s.write(keyActiveTab, activeID)
}

// LoadTabs reads the tab list and active-tab pointer. Malformed entries
// are dropped, an overview tab is synthesized if absent, and the returned
// active id always refers to a tab in the returned list.
func (s *Store) LoadTabs() ([]workspace.Tab, string) {
	tabs := s.loadTabList()

	hasOverview := false
	for _, tab := range tabs {
		if tab.Type == workspace.TypeOverview {
			hasOverview = true
			break
		}
	}
	if !hasOverview {
		tabs = append([]workspace.Tab{workspace.NewOverviewTab()}, tabs...)
	}

	var activeID string
	if raw, err := s.read(keyActiveTab); err == nil {
		if err := json.Unmarshal(raw, &activeID); err != nil {
			s.logger.Warn("discarding corrupt active-tab value", "error", err)
			activeID = ""
		}
	}

	found := false
	for _, tab := range tabs {
		if tab.ID == activeID {
			found = true
			break
		}
	}
	if !found {
		activeID = tabs[0].ID
	}

	return tabs, activeID
}

// SaveChatWindow writes the chat window snapshot. Best-effort.
func (s *Store) SaveChatWindow(win chat.Window) {
	s.write(keyChatWindow, win)
}

// LoadChatWindow reads the chat window snapshot, defaulting to a hidden
// window on any read or parse failure.
func (s *Store) LoadChatWindow() chat.Window {
	raw, err := s.read(keyChatWindow)
	if err != nil {
		return chat.Window{}
	}
	var win chat.Window
	if err := json.Unmarshal(raw, &win); err != nil {
		s.logger.Warn("discarding corrupt chat-window value", "error", err)
		return chat.Window{}
	}
	return win
}

// loadTabList decodes the stored tab array, dropping entries that lack a
// string id, title, or type.
func (s *Store) loadTabList() []workspace.Tab {
	raw, err := s.read(keyTabs)
	if err != nil {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn("discarding corrupt tab list", "error", err)
		return nil
	}

	tabs := make([]workspace.Tab, 0, len(items))
	for _, item := range items {
		var tab workspace.Tab
		if err := json.Unmarshal(item, &tab); err != nil {
			s.logger.Warn("dropping malformed tab entry", "error", err)
			continue
		}
		if tab.ID == "" || tab.Title == "" || tab.Type == "" {
			s.logger.Warn("dropping tab entry with missing fields", "tab", tab.ID)
			continue
		}
		tabs = append(tabs, tab)
	}
	return tabs
}

func (s *Store) read(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("state read failed", "key", key, "error", err)
		}
		return nil, err
	}
	return raw, nil
}

func (s *Store) write(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("state encode failed", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.kv.Set(ctx, key, raw); err != nil {
		s.logger.Warn("state write failed", "key", key, "error", err)
	}
}

package workspace

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service owns the ordered tab collection and the active-tab pointer.
// Mutations are applied in call order under one lock; every mutation ends
// with a best-effort snapshot write to the state store.
type Service struct {
	mu       sync.Mutex
	tabs     []Tab
	activeID string
	store    StateStore
	logger   *slog.Logger
}

// NewService creates a registry hydrated from the state store. The loaded
// tab list always contains the overview tab.
func NewService(store StateStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, logger: logger}
	if store != nil {
		s.tabs, s.activeID = store.LoadTabs()
	}
	if len(s.tabs) == 0 {
		s.tabs = []Tab{NewOverviewTab()}
		s.activeID = OverviewTabID
	}
	return s
}

// OpenTabRequest describes a tab to open. A request with the id of an
// existing tab only activates it.
type OpenTabRequest struct {
	ID        string
	Title     string
	Type      TabType
	Data      map[string]any
	Closeable *bool
}

// Snapshot returns a copy of the tab list and the active tab id.
func (s *Service) Snapshot() ([]Tab, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyTabsLocked(), s.activeID
}

// OpenTab opens or activates a tab and returns its id. Re-opening an
// existing id activates it without creating a duplicate.
func (s *Service) OpenTab(req OpenTabRequest) (string, error) {
	if !ValidType(req.Type) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTabType, req.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID != "" {
		if _, ok := s.findLocked(req.ID); ok {
			s.activeID = req.ID
			s.persistLocked()
			return req.ID, nil
		}
	}

	id := req.ID
	if id == "" {
		id = generateTabID(req.Type)
	}
	closeable := true
	if req.Closeable != nil {
		closeable = *req.Closeable
	}
	if req.Type == TypeOverview {
		closeable = false
	}

	s.tabs = append(s.tabs, Tab{
		ID:        id,
		Title:     req.Title,
		Type:      req.Type,
		Data:      req.Data,
		Closeable: closeable,
	})
	s.activeID = id
	s.persistLocked()
	return id, nil
}

// CloseTab removes a tab. Closing the active tab activates the tab now at
// the same index, else the previous one, else the first remaining tab.
// Non-closeable tabs and unknown ids are ignored.
func (s *Service) CloseTab(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.findLocked(id)
	if !ok {
		s.logger.Warn("close of unknown tab ignored", "tab", id)
		return
	}
	if !s.tabs[idx].Closeable {
		s.logger.Warn("close of pinned tab ignored", "tab", id)
		return
	}

	wasActive := s.activeID == id
	s.tabs = append(s.tabs[:idx], s.tabs[idx+1:]...)

	if wasActive {
		switch {
		case len(s.tabs) == 0:
			s.activeID = ""
		case idx < len(s.tabs):
			s.activeID = s.tabs[idx].ID
		case idx-1 >= 0 && idx-1 < len(s.tabs):
			s.activeID = s.tabs[idx-1].ID
		default:
			s.activeID = s.tabs[0].ID
		}
	}
	s.persistLocked()
}

// UpdateTabRequest is a shallow partial update. Data keys merge into the
// existing bag; nil fields leave the tab unchanged.
type UpdateTabRequest struct {
	Title    *string
	Data     map[string]any
	Modified *bool
}

// UpdateTab shallow-merges the partial into a tab. Unknown ids are a no-op.
func (s *Service) UpdateTab(id string, req UpdateTabRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.findLocked(id)
	if !ok {
		s.logger.Warn("update of unknown tab ignored", "tab", id)
		return
	}
	tab := &s.tabs[idx]
	if req.Title != nil {
		tab.Title = *req.Title
	}
	if req.Modified != nil {
		tab.Modified = *req.Modified
	}
	if len(req.Data) > 0 {
		if tab.Data == nil {
			tab.Data = make(map[string]any, len(req.Data))
		}
		for k, v := range req.Data {
			tab.Data[k] = v
		}
	}
	s.persistLocked()
}

// RefreshTab stamps a fresh refreshKey into the tab's data bag. Consumers
// treat a changed refreshKey as a remount/refetch signal.
func (s *Service) RefreshTab(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.findLocked(id)
	if !ok {
		s.logger.Warn("refresh of unknown tab ignored", "tab", id)
		return
	}
	tab := &s.tabs[idx]
	if tab.Data == nil {
		tab.Data = make(map[string]any, 1)
	}
	tab.Data["refreshKey"] = time.Now().UnixMilli()
	s.persistLocked()
}

// CloseAllTabs collapses the registry to just the overview tab and
// activates it.
func (s *Service) CloseAllTabs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	overview := NewOverviewTab()
	for _, tab := range s.tabs {
		if tab.Type == TypeOverview {
			overview = tab
			break
		}
	}
	s.tabs = []Tab{overview}
	s.activeID = overview.ID
	s.persistLocked()
}

// CloseOtherTabs collapses the registry to the overview tab plus the kept
// tab, and activates the kept tab. Unknown ids are a no-op.
func (s *Service) CloseOtherTabs(keepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keepIdx, ok := s.findLocked(keepID)
	if !ok {
		s.logger.Warn("close-others with unknown tab ignored", "tab", keepID)
		return
	}
	keep := s.tabs[keepIdx]

	kept := make([]Tab, 0, 2)
	if keep.Type != TypeOverview {
		overview := NewOverviewTab()
		for _, tab := range s.tabs {
			if tab.Type == TypeOverview {
				overview = tab
				break
			}
		}
		kept = append(kept, overview)
	}
	kept = append(kept, keep)

	s.tabs = kept
	s.activeID = keep.ID
	s.persistLocked()
}

func (s *Service) findLocked(id string) (int, bool) {
	for i, tab := range s.tabs {
		if tab.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Service) copyTabsLocked() []Tab {
	out := make([]Tab, len(s.tabs))
	copy(out, s.tabs)
	return out
}

func (s *Service) persistLocked() {
	if s.store == nil {
		return
	}
	s.store.SaveTabs(s.copyTabsLocked(), s.activeID)
}

func generateTabID(t TabType) string {
	return fmt.Sprintf("%s-%d-%s", t, time.Now().UnixMilli(), uuid.NewString()[:8])
}

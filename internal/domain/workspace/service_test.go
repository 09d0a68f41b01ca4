package workspace_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/workspace"
)

// recordingStore captures snapshots handed to the persistence port.
type recordingStore struct {
	tabs     []workspace.Tab
	activeID string
	saves    int
}

func (s *recordingStore) SaveTabs(tabs []workspace.Tab, activeID string) {
	s.tabs = tabs
	s.activeID = activeID
	s.saves++
}

func (s *recordingStore) LoadTabs() ([]workspace.Tab, string) {
	return s.tabs, s.activeID
}

func newRegistry(t *testing.T) (*workspace.Service, *recordingStore) {
	t.Helper()
	store := &recordingStore{}
	return workspace.NewService(store, nil), store
}

func TestNewService_StartsWithOverview(t *testing.T) {
	svc, _ := newRegistry(t)

	tabs, activeID := svc.Snapshot()
	require.Len(t, tabs, 1)
	require.Equal(t, workspace.TypeOverview, tabs[0].Type)
	require.Equal(t, workspace.OverviewTabID, activeID)
	require.False(t, tabs[0].Closeable)
}

func TestOpenTab_DefaultsAndActivation(t *testing.T) {
	svc, _ := newRegistry(t)

	id, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "Chat - Jane"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tabs, activeID := svc.Snapshot()
	require.Len(t, tabs, 2)
	require.Equal(t, id, activeID)
	require.Equal(t, "Chat - Jane", tabs[1].Title)
	require.True(t, tabs[1].Closeable)
}

func TestOpenTab_IdempotentOnExplicitID(t *testing.T) {
	svc, _ := newRegistry(t)

	first, err := svc.OpenTab(workspace.OpenTabRequest{
		ID:    "case-42",
		Type:  workspace.TypeCaseDetails,
		Title: "Case 42",
	})
	require.NoError(t, err)
	require.Equal(t, "case-42", first)

	// Activate another tab, then re-open the same id.
	_, err = svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeEscalations, Title: "Escalations"})
	require.NoError(t, err)

	second, err := svc.OpenTab(workspace.OpenTabRequest{ID: "case-42", Type: workspace.TypeCaseDetails})
	require.NoError(t, err)
	require.Equal(t, first, second)

	tabs, activeID := svc.Snapshot()
	require.Len(t, tabs, 3)
	require.Equal(t, "case-42", activeID)
}

func TestOpenTab_RejectsUnknownType(t *testing.T) {
	svc, _ := newRegistry(t)

	_, err := svc.OpenTab(workspace.OpenTabRequest{Type: "bogus", Title: "Nope"})
	require.ErrorIs(t, err, workspace.ErrInvalidTabType)
}

func TestOpenTab_ExplicitNonCloseable(t *testing.T) {
	svc, _ := newRegistry(t)

	pinned := false
	id, err := svc.OpenTab(workspace.OpenTabRequest{
		Type:      workspace.TypeSettings,
		Title:     "Settings",
		Closeable: &pinned,
	})
	require.NoError(t, err)

	tabs, _ := svc.Snapshot()
	require.False(t, tabs[1].Closeable)

	// A pinned tab survives a direct close.
	svc.CloseTab(id)
	tabs, _ = svc.Snapshot()
	require.Len(t, tabs, 2)
}

func TestCloseTab_SameIndexTieBreak(t *testing.T) {
	svc, _ := newRegistry(t)

	a, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "A"})
	require.NoError(t, err)
	b, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "B"})
	require.NoError(t, err)
	c, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "C"})
	require.NoError(t, err)

	// Activate B, then close it: C takes over via the same-index rule.
	_, err = svc.OpenTab(workspace.OpenTabRequest{ID: b, Type: workspace.TypeChat})
	require.NoError(t, err)
	svc.CloseTab(b)

	_, activeID := svc.Snapshot()
	require.Equal(t, c, activeID)
	_ = a
}

func TestCloseTab_PreviousIndexTieBreak(t *testing.T) {
	svc, _ := newRegistry(t)

	a, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "A"})
	require.NoError(t, err)
	b, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "B"})
	require.NoError(t, err)

	// B is active and last; closing it falls back to the previous tab.
	svc.CloseTab(b)

	_, activeID := svc.Snapshot()
	require.Equal(t, a, activeID)
}

func TestCloseTab_InactiveKeepsActive(t *testing.T) {
	svc, _ := newRegistry(t)

	a, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "A"})
	require.NoError(t, err)
	b, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "B"})
	require.NoError(t, err)

	svc.CloseTab(a)

	_, activeID := svc.Snapshot()
	require.Equal(t, b, activeID)
}

func TestCloseTab_UnknownIsNoop(t *testing.T) {
	svc, _ := newRegistry(t)

	svc.CloseTab("does-not-exist")
	tabs, _ := svc.Snapshot()
	require.Len(t, tabs, 1)
}

func TestCloseAllTabs_CollapsesToOverview(t *testing.T) {
	svc, _ := newRegistry(t)

	_, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "A"})
	require.NoError(t, err)
	_, err = svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeEscalations, Title: "B"})
	require.NoError(t, err)

	svc.CloseAllTabs()

	tabs, activeID := svc.Snapshot()
	require.Len(t, tabs, 1)
	require.Equal(t, workspace.TypeOverview, tabs[0].Type)
	require.Equal(t, tabs[0].ID, activeID)
}

func TestCloseOtherTabs_KeepsOverviewAndTarget(t *testing.T) {
	svc, _ := newRegistry(t)

	_, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "A"})
	require.NoError(t, err)
	keep, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeCaseDetails, Title: "Keep"})
	require.NoError(t, err)
	_, err = svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeEscalations, Title: "C"})
	require.NoError(t, err)

	svc.CloseOtherTabs(keep)

	tabs, activeID := svc.Snapshot()
	require.Len(t, tabs, 2)
	require.Equal(t, workspace.TypeOverview, tabs[0].Type)
	require.Equal(t, keep, tabs[1].ID)
	require.Equal(t, keep, activeID)
}

func TestCloseOtherTabs_OverviewTarget(t *testing.T) {
	svc, _ := newRegistry(t)

	_, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "A"})
	require.NoError(t, err)

	svc.CloseOtherTabs(workspace.OverviewTabID)

	tabs, activeID := svc.Snapshot()
	require.Len(t, tabs, 1)
	require.Equal(t, workspace.TypeOverview, tabs[0].Type)
	require.Equal(t, workspace.OverviewTabID, activeID)
}

func TestUpdateTab_ShallowMerge(t *testing.T) {
	svc, _ := newRegistry(t)

	id, err := svc.OpenTab(workspace.OpenTabRequest{
		Type:  workspace.TypeCaseDetails,
		Title: "Case 7",
		Data:  map[string]any{"caseNumber": "7", "keep": true},
	})
	require.NoError(t, err)

	title := "Case 7 (updated)"
	modified := true
	svc.UpdateTab(id, workspace.UpdateTabRequest{
		Title:    &title,
		Modified: &modified,
		Data:     map[string]any{"caseNumber": "7b"},
	})

	tabs, _ := svc.Snapshot()
	tab := tabs[1]
	require.Equal(t, title, tab.Title)
	require.True(t, tab.Modified)
	require.Equal(t, "7b", tab.Data["caseNumber"])
	require.Equal(t, true, tab.Data["keep"])
}

func TestUpdateTab_UnknownIsNoop(t *testing.T) {
	svc, _ := newRegistry(t)

	title := "Nope"
	svc.UpdateTab("missing", workspace.UpdateTabRequest{Title: &title})

	tabs, _ := svc.Snapshot()
	require.Len(t, tabs, 1)
	require.NotEqual(t, title, tabs[0].Title)
}

func TestRefreshTab_StampsIncreasingKey(t *testing.T) {
	svc, _ := newRegistry(t)

	id, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeEscalations, Title: "E"})
	require.NoError(t, err)

	svc.RefreshTab(id)
	tabs, _ := svc.Snapshot()
	first, ok := tabs[1].Data["refreshKey"].(int64)
	require.True(t, ok)
	require.Positive(t, first)

	svc.RefreshTab(id)
	tabs, _ = svc.Snapshot()
	second := tabs[1].Data["refreshKey"].(int64)
	require.GreaterOrEqual(t, second, first)
}

func TestMutations_PersistSnapshots(t *testing.T) {
	svc, store := newRegistry(t)

	id, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "A"})
	require.NoError(t, err)
	require.Equal(t, id, store.activeID)
	require.Len(t, store.tabs, 2)

	svc.CloseTab(id)
	require.Len(t, store.tabs, 1)
	require.Equal(t, workspace.OverviewTabID, store.activeID)
}

// Active-tab validity: after any mutating operation the active id refers
// to a tab in the registry.
func TestActiveTabAlwaysValid(t *testing.T) {
	svc, _ := newRegistry(t)

	checkValid := func() {
		tabs, activeID := svc.Snapshot()
		require.NotEmpty(t, tabs)
		found := false
		for _, tab := range tabs {
			if tab.ID == activeID {
				found = true
			}
		}
		require.True(t, found, "active id %q not in registry", activeID)
	}

	ids := make([]string, 0, 4)
	for _, title := range []string{"A", "B", "C", "D"} {
		id, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: title})
		require.NoError(t, err)
		ids = append(ids, id)
		checkValid()
	}

	svc.CloseTab(ids[2])
	checkValid()
	svc.CloseOtherTabs(ids[0])
	checkValid()
	svc.CloseAllTabs()
	checkValid()
}

// Overview survives any sequence of bulk and single closes.
func TestOverviewIndestructible(t *testing.T) {
	svc, _ := newRegistry(t)

	hasOverview := func() bool {
		tabs, _ := svc.Snapshot()
		for _, tab := range tabs {
			if tab.Type == workspace.TypeOverview {
				return true
			}
		}
		return false
	}

	a, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeChat, Title: "A"})
	require.NoError(t, err)
	b, err := svc.OpenTab(workspace.OpenTabRequest{Type: workspace.TypeEscalations, Title: "B"})
	require.NoError(t, err)

	svc.CloseTab(workspace.OverviewTabID)
	require.True(t, hasOverview())
	svc.CloseOtherTabs(a)
	require.True(t, hasOverview())
	svc.CloseTab(a)
	require.True(t, hasOverview())
	svc.CloseAllTabs()
	require.True(t, hasOverview())
	_ = b
}

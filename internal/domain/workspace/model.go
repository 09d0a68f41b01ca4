package workspace

// TabType identifies which view a workspace tab hosts.
type TabType string

const (
	TypeOverview      TabType = "overview"
	TypeChat          TabType = "chat"
	TypeEscalations   TabType = "escalations"
	TypeSettings      TabType = "settings"
	TypeProductSearch TabType = "product-search"
	TypeServiceSearch TabType = "service-search"
	TypeCaseDetails   TabType = "case-details"
	TypeNewTab        TabType = "new-tab"
)

// ValidType reports whether t is a known tab type.
func ValidType(t TabType) bool {
	switch t {
	case TypeOverview, TypeChat, TypeEscalations, TypeSettings,
		TypeProductSearch, TypeServiceSearch, TypeCaseDetails, TypeNewTab:
		return true
	}
	return false
}

// Tab is one workspace view instance in the dashboard shell.
type Tab struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Type      TabType        `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Closeable bool           `json:"closeable"`
	Modified  bool           `json:"modified,omitempty"`
}

// OverviewTabID is the id of the synthesized overview tab.
const OverviewTabID = "overview"

// NewOverviewTab returns the pinned overview tab. It is never closeable.
func NewOverviewTab() Tab {
	return Tab{
		ID:        OverviewTabID,
		Title:     "Overview",
		Type:      TypeOverview,
		Closeable: false,
	}
}

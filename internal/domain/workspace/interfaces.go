package workspace

// StateStore persists the tab list and active-tab pointer. Writes are
// best-effort: implementations log failures instead of returning them, so
// the registry keeps working when persistence degrades.
type StateStore interface {
	SaveTabs(tabs []Tab, activeID string)
	LoadTabs() ([]Tab, string)
}

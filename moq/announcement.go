package moq

// Announcement is a (path, active) event: active=true signals a new or
// re-appearing broadcast, active=false signals withdrawal.
type Announcement struct {
	Path   BroadcastPath
	Active bool
}

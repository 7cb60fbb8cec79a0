package tracker

import "sync"

// ChangeTracker marks the model dirty with a logical timestamp on every
// mutation. Autosave and the sync engine both key off of it.
type ChangeTracker struct {
	mu            sync.Mutex
	dirty         bool
	lastUpdatedAt int64

	// OnDirty, when set, receives a status notification after each mark.
	OnDirty func()
}

func (ct *ChangeTracker) MarkDirty(nowMillis int64) {
	ct.mu.Lock()
	ct.dirty = true
	ct.lastUpdatedAt = nowMillis
	onDirty := ct.OnDirty
	ct.mu.Unlock()

	if onDirty != nil {
		onDirty()
	}
}

func (ct *ChangeTracker) IsDirty() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.dirty
}

func (ct *ChangeTracker) Clear() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.dirty = false
}

// ClearThrough resets the dirty flag only when no mutation landed after
// the given timestamp. An edit that raced a save in flight stays
// pending for the next flush.
func (ct *ChangeTracker) ClearThrough(updatedAt int64) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if ct.lastUpdatedAt <= updatedAt {
		ct.dirty = false
	}
}

func (ct *ChangeTracker) LastUpdatedAt() int64 {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.lastUpdatedAt
}

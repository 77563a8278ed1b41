package snapshot

import "go.uber.org/atomic"

// Holder publishes the current snapshot to concurrent readers
//
// Publishing is a single atomic pointer swap, so a reader observes either
// the old or the new snapshot, never a mix. A reader pins the snapshot it
// got with Acquire and must Release it when done.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder returns an empty holder
func NewHolder() *Holder {
	return &Holder{}
}

// Acquire returns the current snapshot pinned for reading, or nil if none
// has been published yet. The caller must call Release on the result.
func (h *Holder) Acquire() *Snapshot {
	for {
		s := h.current.Load()
		if s == nil {
			return nil
		}
		if s.retain() {
			return s
		}
		// s was retired after Load; current already points elsewhere
	}
}

// Current returns the current snapshot without pinning it
// Only metadata accessors are safe on the result; use Acquire for lookups.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Loaded reports whether a snapshot has been published
func (h *Holder) Loaded() bool {
	return h.current.Load() != nil
}

// Swap publishes next and retires the previous snapshot
// The previous reader is closed once its in-flight lookups finish.
func (h *Holder) Swap(next *Snapshot) {
	prev := h.current.Swap(next)
	if prev != nil && prev != next {
		prev.Release()
	}
}

// Close retires the current snapshot and leaves the holder empty
func (h *Holder) Close() error {
	h.Swap(nil)
	return nil
}

// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

package topology

import "sync/atomic"

// Holder publishes the current Snapshot to concurrent readers. Snapshots
// are replaced wholesale, so a reader that has loaded a Snapshot keeps a
// consistent view for as long as it holds it.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// Load returns the current Snapshot, or nil if none was published.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Store publishes s as the current Snapshot. Snapshots older than the
// current one are ignored, and false is returned.
func (h *Holder) Store(s *Snapshot) bool {
	for {
		old := h.current.Load()
		if old != nil && s.Timestamp.Before(old.Timestamp) {
			return false
		}
		if h.current.CompareAndSwap(old, s) {
			return true
		}
	}
}

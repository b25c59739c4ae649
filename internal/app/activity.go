package app

import "sync"

// activityRing keeps the most recent frame stats in arrival order.
type activityRing struct {
	mu    sync.Mutex
	items []FrameStats
	next  int
	full  bool
}

func newActivityRing(size int) *activityRing {
	return &activityRing{items: make([]FrameStats, size)}
}

func (r *activityRing) Add(s FrameStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.next] = s
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns the stored stats, oldest first.
func (r *activityRing) Snapshot() []FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]FrameStats, r.next)
		copy(out, r.items[:r.next])
		return out
	}
	out := make([]FrameStats, 0, len(r.items))
	out = append(out, r.items[r.next:]...)
	return append(out, r.items[:r.next]...)
}

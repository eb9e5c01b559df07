// Package track implements the per-session, per-vessel bounded window
// of recent positions used by the rule engine to derive (prev, curr)
// pairs. A Store is scoped to exactly one replay session and must be
// discarded at session end (spec §4.2, §9) — it must never be a
// process-wide singleton, so unlike the teacher's package-level maps
// this is a value each Replay Driver run owns and drops.
package track

import (
	"sync"

	"github.com/seawatch/trackwatch/internal/domain"
)

// Store is a mapping from vessel identifier to a bounded FIFO ring.
// Safe for concurrent use, though spec §5 only ever has the owning
// Replay Driver task mutate it.
type Store struct {
	mu       sync.Mutex
	capacity int
	rings    map[string][]domain.AisPoint
}

// New returns an empty Store with the given per-vessel capacity
// (spec default: track_window_size = 5).
func New(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		rings:    make(map[string][]domain.AisPoint),
	}
}

// Push appends point to its vessel's ring, evicting the oldest entry
// by strict FIFO insertion order once at capacity, and returns the
// resulting window (oldest first).
func (s *Store) Push(point domain.AisPoint) []domain.AisPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := s.rings[point.VesselID]
	ring = append(ring, point)
	if len(ring) > s.capacity {
		ring = ring[len(ring)-s.capacity:]
	}
	s.rings[point.VesselID] = ring

	out := make([]domain.AisPoint, len(ring))
	copy(out, ring)
	return out
}

// Previous returns the point immediately prior to the vessel's current
// last entry, i.e. the second-to-last pushed point, or ok=false if
// fewer than two points have been pushed for that vessel.
func (s *Store) Previous(vesselID string) (domain.AisPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := s.rings[vesselID]
	if len(ring) < 2 {
		return domain.AisPoint{}, false
	}
	return ring[len(ring)-2], true
}

// Window returns a copy of the current window for a vessel, oldest
// first.
func (s *Store) Window(vesselID string) []domain.AisPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := s.rings[vesselID]
	out := make([]domain.AisPoint, len(ring))
	copy(out, ring)
	return out
}

// Len returns the number of points currently held for vesselID.
func (s *Store) Len(vesselID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rings[vesselID])
}

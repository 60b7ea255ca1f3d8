package alerting

import "time"

const historyCapacity = 1000

// store holds every alert the engine has created: a bounded insertion-ordered
// history plus an index of unresolved high/critical alerts. It has no lock of
// its own — the Manager serializes all access.
//
// Both structures reference the same *Alert. History eviction does not touch
// the active index, so a very old alert can outlive its history entry while
// it remains unresolved.
type store struct {
	capacity int
	history  []*Alert // oldest first
	active   map[string]*Alert
}

func newStore(capacity int) *store {
	return &store{
		capacity: capacity,
		active:   make(map[string]*Alert),
	}
}

// add appends a to the history, evicting the oldest entry once the ring is
// full, and indexes it as active when its severity warrants tracking.
func (s *store) add(a *Alert) {
	s.history = append(s.history, a)
	if len(s.history) > s.capacity {
		s.history = s.history[len(s.history)-s.capacity:]
	}
	if a.Severity.Active() {
		s.active[a.ID] = a
	}
}

// resolve marks the active alert with the given id resolved and drops it
// from the index. The shared history entry reflects the change. Unknown and
// already-resolved ids report false.
func (s *store) resolve(id string, now time.Time) bool {
	a, ok := s.active[id]
	if !ok {
		return false
	}
	a.resolve(now)
	delete(s.active, id)
	return true
}

// activeAlerts returns copies of all unresolved tracked alerts.
func (s *store) activeAlerts() []*Alert {
	out := make([]*Alert, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, a.clone())
	}
	return out
}

// tail returns copies of the most recent limit history entries, oldest first.
func (s *store) tail(limit int) []*Alert {
	start := 0
	if limit < len(s.history) {
		start = len(s.history) - limit
	}
	out := make([]*Alert, 0, len(s.history)-start)
	for _, a := range s.history[start:] {
		out = append(out, a.clone())
	}
	return out
}

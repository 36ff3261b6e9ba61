package metrics

import "sync"

// EventStore keeps the most recent metric events in a ring.
type EventStore struct {
	mu     sync.RWMutex
	events []Metric
	limit  int
	id     MetricHandlerID
}

// NewEventStore registers a handler that records every emitted metric.
func NewEventStore(limit int) *EventStore {
	if limit <= 0 {
		limit = 500
	}
	s := &EventStore{limit: limit}
	s.id = RegisterMetricHandler(s.add)
	return s
}

func (s *EventStore) add(m Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, m)
	if len(s.events) > s.limit {
		s.events = append([]Metric(nil), s.events[len(s.events)-s.limit:]...)
	}
}

// Recent returns up to n events, newest last. n <= 0 returns all.
func (s *EventStore) Recent(n int) []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if n > 0 && n < len(s.events) {
		start = len(s.events) - n
	}
	out := make([]Metric, len(s.events)-start)
	copy(out, s.events[start:])
	return out
}

// Close stops recording.
func (s *EventStore) Close() {
	UnregisterMetricHandler(s.id)
}

package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// logRecord is one captured line served by /api/diagnostics/logs.
type logRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// logStore is a logrus hook that keeps the latest info-and-above lines in a
// fixed-size circular buffer. Once closed it ignores further entries; logrus
// has no way to detach a hook.
type logStore struct {
	mu     sync.Mutex
	buf    []logRecord
	next   int
	full   bool
	closed bool
}

func newLogStore(capacity int) *logStore {
	if capacity <= 0 {
		capacity = 200
	}
	return &logStore{buf: make([]logRecord, capacity)}
}

func (s *logStore) Levels() []logrus.Level {
	return logrus.AllLevels[:logrus.InfoLevel+1]
}

func (s *logStore) Fire(entry *logrus.Entry) error {
	rec := logRecord{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
	}
	for k, v := range entry.Data {
		switch k {
		case "component":
			rec.Component, _ = v.(string)
			continue
		case requestIDKey:
			rec.RequestID, _ = v.(string)
			continue
		}
		if rec.Fields == nil {
			rec.Fields = make(map[string]interface{}, len(entry.Data))
		}
		rec.Fields[k] = printable(v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.buf[s.next] = rec
	s.next = (s.next + 1) % len(s.buf)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// printable keeps JSON encoding of errors and stringers readable.
func printable(v interface{}) interface{} {
	switch val := v.(type) {
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	}
	return v
}

// snapshot returns the buffered records oldest first.
func (s *logStore) snapshot() []logRecord {
	if s == nil {
		return []logRecord{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.full {
		return append([]logRecord{}, s.buf[:s.next]...)
	}
	out := make([]logRecord, 0, len(s.buf))
	out = append(out, s.buf[s.next:]...)
	return append(out, s.buf[:s.next]...)
}

func (s *logStore) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

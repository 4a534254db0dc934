package stress

import (
	"time"

	"github.com/solivara/vigil/api/schemas"
)

// LogCapacity bounds the interaction log. Oldest entries are evicted
// first once the log is full.
const LogCapacity = 100

// LogEntry is one recorded operator interaction: the raw message text and
// the stress level in effect when it was received.
type LogEntry struct {
	At    time.Time
	Text  string
	Level schemas.StressLevel
}

// Log is a fixed-capacity FIFO history of operator interactions. It is
// not safe for concurrent use; the owning engine serializes access.
type Log struct {
	entries []LogEntry
	start   int
	count   int
}

// NewLog returns an empty interaction log with the standard capacity.
func NewLog() *Log {
	return &Log{entries: make([]LogEntry, LogCapacity)}
}

// Append records an entry, evicting the oldest one if the log is full.
func (l *Log) Append(entry LogEntry) {
	if l.count < len(l.entries) {
		l.entries[(l.start+l.count)%len(l.entries)] = entry
		l.count++
		return
	}
	l.entries[l.start] = entry
	l.start = (l.start + 1) % len(l.entries)
}

// Len returns the number of stored entries.
func (l *Log) Len() int { return l.count }

// Recent returns up to n entries, oldest first among the returned slice.
func (l *Log) Recent(n int) []LogEntry {
	if n > l.count {
		n = l.count
	}
	out := make([]LogEntry, 0, n)
	for i := l.count - n; i < l.count; i++ {
		out = append(out, l.entries[(l.start+i)%len(l.entries)])
	}
	return out
}

// All returns every stored entry, oldest first.
func (l *Log) All() []LogEntry { return l.Recent(l.count) }

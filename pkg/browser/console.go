package browser

import (
	"sync"
)

const defaultConsoleCapacity = 200

// ConsoleLog keeps the most recent console entries of a page.
type ConsoleLog struct {
	mu       sync.Mutex
	entries  []ConsoleEntry
	capacity int
	dropped  int
}

// NewConsoleLog creates a ring of the given capacity (default 200).
func NewConsoleLog(capacity int) *ConsoleLog {
	if capacity <= 0 {
		capacity = defaultConsoleCapacity
	}
	return &ConsoleLog{capacity: capacity}
}

// Add records an entry, evicting the oldest when full.
func (c *ConsoleLog) Add(entry ConsoleEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) == c.capacity {
		c.entries = c.entries[1:]
		c.dropped++
	}
	c.entries = append(c.entries, entry)
}

// Entries returns a copy of the retained entries, oldest first.
func (c *ConsoleLog) Entries() []ConsoleEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ConsoleEntry(nil), c.entries...)
}

// Problems returns retained errors and warnings only.
func (c *ConsoleLog) Problems() []ConsoleEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []ConsoleEntry
	for _, e := range c.entries {
		switch e.Type {
		case "error", "warning", "pageerror":
			out = append(out, e)
		}
	}
	return out
}

// Dropped is the number of entries evicted so far.
func (c *ConsoleLog) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Reset clears the log.
func (c *ConsoleLog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.dropped = 0
}

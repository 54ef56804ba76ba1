package trace

import "sync"

// RingBuffer keeps the most recent run entries. It is safe for concurrent use.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []Entry
	size    int
	head    int
	count   int
}

// NewRingBuffer creates a buffer holding up to size runs.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 50
	}
	return &RingBuffer{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Add records a run, evicting the oldest when full.
func (rb *RingBuffer) Add(e Entry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = e
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
}

// Last returns up to n runs, oldest first.
func (rb *RingBuffer) Last(n int) []Entry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	n = min(n, rb.count)
	if n <= 0 {
		return nil
	}
	out := make([]Entry, n)
	start := (rb.head - n + rb.size) % rb.size
	for i := range n {
		out[i] = rb.entries[(start+i)%rb.size]
	}
	return out
}

// Latest returns the most recent run, if any.
func (rb *RingBuffer) Latest() (Entry, bool) {
	last := rb.Last(1)
	if len(last) == 0 {
		return Entry{}, false
	}
	return last[0], true
}

// Count returns the number of runs held.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

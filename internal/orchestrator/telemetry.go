package orchestrator

import "sync"

const (
	defaultTelemetryCapacity = 100
	defaultTelemetryRetain   = 50
)

// TelemetryBuffer is a bounded in-memory buffer of per-request telemetry.
// When an append would exceed capacity the oldest records are evicted so the
// most-recent retain entries survive; eviction is atomic with respect to
// concurrent appends. Draining never blocks producers for longer than the
// copy-out.
type TelemetryBuffer struct {
	mu       sync.Mutex
	records  []RequestTelemetry
	capacity int
	retain   int
}

// NewTelemetryBuffer creates a buffer. Non-positive arguments fall back to
// the defaults (capacity 100, retain 50).
func NewTelemetryBuffer(capacity, retain int) *TelemetryBuffer {
	if capacity <= 0 {
		capacity = defaultTelemetryCapacity
	}
	if retain <= 0 || retain > capacity {
		retain = capacity / 2
		if retain == 0 {
			retain = 1
		}
	}
	return &TelemetryBuffer{
		records:  make([]RequestTelemetry, 0, capacity),
		capacity: capacity,
		retain:   retain,
	}
}

// Append adds one record, evicting the oldest half when full.
func (b *TelemetryBuffer) Append(rec RequestTelemetry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) >= b.capacity {
		keep := b.records[len(b.records)-b.retain:]
		b.records = append(b.records[:0], keep...)
	}
	b.records = append(b.records, rec)
}

// Drain returns all buffered records and clears the buffer.
func (b *TelemetryBuffer) Drain() []RequestTelemetry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]RequestTelemetry, len(b.records))
	copy(out, b.records)
	b.records = b.records[:0]
	return out
}

// Len returns the current number of buffered records.
func (b *TelemetryBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

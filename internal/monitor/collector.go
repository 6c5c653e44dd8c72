package monitor

import (
	"sort"
	"sync"
	"time"
)

// DefaultMaxSamples bounds the durations kept per operation
const DefaultMaxSamples = 512

// Collector times pipeline operations. It is safe for concurrent use.
type Collector struct {
	mu         sync.RWMutex
	timers     map[OperationType]*Timer
	maxSamples int
	started    time.Time
	now        func() time.Time
}

// New creates a collector with DefaultMaxSamples
func New() *Collector {
	return NewWithSamples(DefaultMaxSamples)
}

// NewWithSamples creates a collector keeping maxSamples durations per operation
func NewWithSamples(maxSamples int) *Collector {
	return &Collector{
		timers:     make(map[OperationType]*Timer),
		maxSamples: maxSamples,
		started:    time.Now(),
		now:        time.Now,
	}
}

// TrackOperation tracks an operation with timing
func (c *Collector) TrackOperation(operation OperationType, fn func()) {
	_ = c.TrackOperationWithError(operation, func() error {
		fn()
		return nil
	})
}

// TrackOperationWithError tracks an operation that may return an error.
// The error is returned unchanged.
func (c *Collector) TrackOperationWithError(operation OperationType, fn func() error) error {
	start := c.now()
	err := fn()
	c.Record(operation, c.now().Sub(start), err != nil)
	return err
}

// Record adds an observation measured elsewhere
func (c *Collector) Record(operation OperationType, duration time.Duration, failed bool) {
	c.timer(operation).Record(duration, failed)
}

func (c *Collector) timer(operation OperationType) *Timer {
	c.mu.RLock()
	t, ok := c.timers[operation]
	c.mu.RUnlock()
	if ok {
		return t
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[operation]; ok {
		return t
	}
	t = NewTimer(operation, c.maxSamples)
	c.timers[operation] = t
	return t
}

// GetSnapshot returns a current metrics snapshot, operations sorted by name
func (c *Collector) GetSnapshot() Snapshot {
	now := c.now()

	c.mu.RLock()
	operations := make([]OperationMetrics, 0, len(c.timers))
	for _, t := range c.timers {
		operations = append(operations, t.Metrics())
	}
	c.mu.RUnlock()

	sort.Slice(operations, func(i, j int) bool {
		return operations[i].Operation < operations[j].Operation
	})

	return Snapshot{
		Timestamp:  now,
		Uptime:     now.Sub(c.started),
		Memory:     collectMemory(),
		Operations: operations,
	}
}

// Reset drops every recorded observation
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = make(map[OperationType]*Timer)
	c.started = c.now()
}

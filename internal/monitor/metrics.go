package monitor

import (
	"math"
	"runtime"
	"sort"
	"sync"
	"time"
)

// OperationType represents different operation types being monitored
type OperationType string

const (
	OperationRetrieve   OperationType = "retrieve"
	OperationSelect     OperationType = "select"
	OperationLookup     OperationType = "lookup"
	OperationJustify    OperationType = "justify"
	OperationSpeech     OperationType = "speech"
	OperationCover      OperationType = "cover"
	OperationTranscribe OperationType = "transcribe"
	OperationRecommend  OperationType = "recommend"
)

// MemoryMetrics holds memory-related performance metrics
type MemoryMetrics struct {
	HeapAlloc    uint64 `json:"heap_alloc"`     // bytes allocated in heap
	Sys          uint64 `json:"sys"`            // total bytes from system
	NumGC        uint32 `json:"num_gc"`         // number of garbage collections
	PauseTotalNs uint64 `json:"pause_total_ns"` // total GC pause time
	Goroutines   int    `json:"goroutines"`
}

// Aggregates are duration statistics in milliseconds
type Aggregates struct {
	Min   float64 `json:"min_ms"`
	Max   float64 `json:"max_ms"`
	Avg   float64 `json:"avg_ms"`
	Count int     `json:"count"`
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
}

// OperationMetrics holds metrics for specific operations
type OperationMetrics struct {
	Operation    OperationType `json:"operation"`
	Count        int64         `json:"count"`
	SuccessCount int64         `json:"success_count"`
	ErrorCount   int64         `json:"error_count"`
	TotalTime    time.Duration `json:"total_time_ns"`
	LastTime     time.Duration `json:"last_time_ns"`
	Latency      Aggregates    `json:"latency"`
}

// Snapshot is a point-in-time view of all operations
type Snapshot struct {
	Timestamp  time.Time          `json:"timestamp"`
	Uptime     time.Duration      `json:"uptime_ns"`
	Memory     MemoryMetrics      `json:"memory"`
	Operations []OperationMetrics `json:"operations"`
}

// Timer records durations of one operation. Only the most recent
// samples are kept for percentiles.
type Timer struct {
	mu         sync.Mutex
	operation  OperationType
	count      int64
	errors     int64
	total      time.Duration
	last       time.Duration
	samples    []float64
	next       int
	maxSamples int
}

// NewTimer creates a timer keeping up to maxSamples durations
func NewTimer(operation OperationType, maxSamples int) *Timer {
	if maxSamples <= 0 {
		maxSamples = 1
	}
	return &Timer{operation: operation, maxSamples: maxSamples}
}

// Record adds one observation
func (t *Timer) Record(duration time.Duration, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count++
	if failed {
		t.errors++
	}
	t.total += duration
	t.last = duration

	ms := float64(duration) / float64(time.Millisecond)
	if len(t.samples) < t.maxSamples {
		t.samples = append(t.samples, ms)
		return
	}
	t.samples[t.next] = ms
	t.next = (t.next + 1) % t.maxSamples
}

// Metrics returns the current totals for the operation
func (t *Timer) Metrics() OperationMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	return OperationMetrics{
		Operation:    t.operation,
		Count:        t.count,
		SuccessCount: t.count - t.errors,
		ErrorCount:   t.errors,
		TotalTime:    t.total,
		LastTime:     t.last,
		Latency:      calculateAggregates(t.samples),
	}
}

// calculateAggregates calculates aggregates from a slice of values
func calculateAggregates(values []float64) Aggregates {
	if len(values) == 0 {
		return Aggregates{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return Aggregates{
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Avg:   sum / float64(len(values)),
		Count: len(values),
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
	}
}

// percentile calculates the nth percentile of sorted values
func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}

	index := p * float64(len(sortedValues)-1)
	lowerIdx := int(math.Floor(index))
	upperIdx := lowerIdx + 1

	if upperIdx >= len(sortedValues) {
		return sortedValues[len(sortedValues)-1]
	}

	// Linear interpolation
	weight := index - float64(lowerIdx)
	return sortedValues[lowerIdx]*(1-weight) + sortedValues[upperIdx]*weight
}

func collectMemory() MemoryMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryMetrics{
		HeapAlloc:    m.HeapAlloc,
		Sys:          m.Sys,
		NumGC:        m.NumGC,
		PauseTotalNs: m.PauseTotalNs,
		Goroutines:   runtime.NumGoroutine(),
	}
}

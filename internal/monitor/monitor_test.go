package monitor

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestTimer(t *testing.T) {
	timer := NewTimer(OperationSelect, 10)

	timer.Record(100*time.Millisecond, false)
	timer.Record(200*time.Millisecond, true)
	timer.Record(150*time.Millisecond, false)

	m := timer.Metrics()
	if m.Count != 3 || m.ErrorCount != 1 || m.SuccessCount != 2 {
		t.Errorf("counts = %+v", m)
	}
	if m.TotalTime != 450*time.Millisecond {
		t.Errorf("Expected total time 450ms, got %v", m.TotalTime)
	}
	if m.LastTime != 150*time.Millisecond {
		t.Errorf("Expected last time 150ms, got %v", m.LastTime)
	}
	if m.Latency.Min != 100 || m.Latency.Max != 200 || m.Latency.Avg != 150 {
		t.Errorf("latency = %+v", m.Latency)
	}
}

func TestTimer_SampleWindow(t *testing.T) {
	timer := NewTimer(OperationRetrieve, 2)

	timer.Record(10*time.Millisecond, false)
	timer.Record(20*time.Millisecond, false)
	timer.Record(30*time.Millisecond, false)

	m := timer.Metrics()
	if m.Count != 3 {
		t.Errorf("Expected count 3, got %d", m.Count)
	}
	if m.Latency.Count != 2 || m.Latency.Min != 20 || m.Latency.Max != 30 {
		t.Errorf("window should hold the last two samples, got %+v", m.Latency)
	}
}

func TestPercentileCalculation(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	if p50 := percentile(values, 0.5); p50 != 5.5 {
		t.Errorf("Expected P50 = 5.5, got %f", p50)
	}

	// Linear interpolation between 9 and 10
	if p95 := percentile(values, 0.95); math.Abs(p95-9.55) > 0.001 {
		t.Errorf("Expected P95 = 9.55, got %f", p95)
	}

	if p := percentile(nil, 0.5); p != 0 {
		t.Errorf("Expected P50 of empty slice = 0, got %f", p)
	}
}

func TestCollector(t *testing.T) {
	c := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 100 * time.Millisecond)
	}

	boom := errors.New("boom")
	if err := c.TrackOperationWithError(OperationSelect, func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("error should pass through, got %v", err)
	}
	c.TrackOperation(OperationRetrieve, func() {})
	c.Record(OperationCover, 2*time.Second, false)

	s := c.GetSnapshot()
	if len(s.Operations) != 3 {
		t.Fatalf("Expected 3 operations, got %d", len(s.Operations))
	}
	names := []OperationType{s.Operations[0].Operation, s.Operations[1].Operation, s.Operations[2].Operation}
	if names[0] != OperationCover || names[1] != OperationRetrieve || names[2] != OperationSelect {
		t.Errorf("operations not sorted: %v", names)
	}
	if s.Operations[2].ErrorCount != 1 || s.Operations[2].LastTime != 100*time.Millisecond {
		t.Errorf("select metrics = %+v", s.Operations[2])
	}

	c.Reset()
	if ops := c.GetSnapshot().Operations; len(ops) != 0 {
		t.Errorf("Expected no operations after reset, got %d", len(ops))
	}
}

func TestAssessHealth(t *testing.T) {
	tests := []struct {
		name string
		ops  []OperationMetrics
		want HealthStatus
	}{
		{
			name: "good",
			ops:  []OperationMetrics{{Operation: OperationSelect, Count: 10, Latency: Aggregates{P95: 800}}},
			want: HealthStatusGood,
		},
		{
			name: "failing speech",
			ops:  []OperationMetrics{{Operation: OperationSpeech, Count: 4, ErrorCount: 2}},
			want: HealthStatusWarning,
		},
		{
			name: "slow and failing",
			ops: []OperationMetrics{
				{Operation: OperationSelect, Count: 4, ErrorCount: 1, Latency: Aggregates{P95: 15000}},
				{Operation: OperationCover, Count: 2, ErrorCount: 2},
			},
			want: HealthStatusCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReport(Snapshot{Operations: tt.ops})
			if r.OverallHealth != tt.want {
				t.Errorf("health = %s, want %s (%v)", r.OverallHealth, tt.want, r.Recommendations)
			}
			if len(r.Recommendations) == 0 {
				t.Error("expected at least one recommendation")
			}
		})
	}
}

func TestFormatReport(t *testing.T) {
	r := NewReport(Snapshot{Operations: []OperationMetrics{
		{Operation: OperationJustify, Count: 1, LastTime: 1200 * time.Millisecond, Latency: Aggregates{P50: 1200, P95: 1200}},
	}})

	text, err := FormatReport(r, ReportFormatText)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Health: good") || !strings.Contains(text, "justify") {
		t.Errorf("text report = %s", text)
	}

	md, err := FormatReport(r, ReportFormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "| justify | 1 | 0 | 1.2s | 1200 | 1200 |") {
		t.Errorf("markdown report = %s", md)
	}

	if _, err := FormatReport(r, "csv"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func BenchmarkTimer(b *testing.B) {
	timer := NewTimer(OperationRetrieve, DefaultMaxSamples)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			timer.Record(time.Millisecond, false)
		}
	})
}

package monitor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ReportFormat represents the output format for reports
type ReportFormat string

const (
	ReportFormatJSON     ReportFormat = "json"
	ReportFormatText     ReportFormat = "text"
	ReportFormatMarkdown ReportFormat = "markdown"
)

// HealthStatus represents the overall pipeline health
type HealthStatus string

const (
	HealthStatusGood     HealthStatus = "good"
	HealthStatusWarning  HealthStatus = "warning"
	HealthStatusCritical HealthStatus = "critical"
)

// Thresholds beyond which an operation counts as an issue
const (
	slowOperationP95 = 10 * time.Second
	errorRateLimit   = 0.05
)

// Report is a snapshot with a health verdict and advice
type Report struct {
	Snapshot        Snapshot     `json:"snapshot"`
	TotalOperations int64        `json:"total_operations"`
	FailedOps       int64        `json:"failed_operations"`
	OverallHealth   HealthStatus `json:"overall_health"`
	Recommendations []string     `json:"recommendations"`
}

// NewReport evaluates a snapshot
func NewReport(s Snapshot) *Report {
	r := &Report{Snapshot: s}
	for _, op := range s.Operations {
		r.TotalOperations += op.Count
		r.FailedOps += op.ErrorCount
	}
	r.OverallHealth, r.Recommendations = assess(s)
	return r
}

// assess determines health from error rates and tail latency
func assess(s Snapshot) (HealthStatus, []string) {
	var recommendations []string
	issues := 0

	for _, op := range s.Operations {
		if op.Count == 0 {
			continue
		}
		if float64(op.ErrorCount)/float64(op.Count) > errorRateLimit {
			issues++
			recommendations = append(recommendations, fmt.Sprintf("%s fails often (%d of %d), check provider credentials and models", op.Operation, op.ErrorCount, op.Count))
		}
		if time.Duration(op.Latency.P95*float64(time.Millisecond)) > slowOperationP95 {
			issues++
			recommendations = append(recommendations, fmt.Sprintf("%s is slow (p95 %.0fms), consider a smaller model or fewer candidates", op.Operation, op.Latency.P95))
		}
	}

	status := HealthStatusGood
	switch {
	case issues >= 3:
		status = HealthStatusCritical
	case issues >= 1:
		status = HealthStatusWarning
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Pipeline performance is within normal parameters")
	}
	return status, recommendations
}

// FormatReport formats a report according to the specified format
func FormatReport(r *Report, format ReportFormat) (string, error) {
	switch format {
	case ReportFormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case ReportFormatText:
		return formatText(r), nil
	case ReportFormatMarkdown:
		return formatMarkdown(r), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatText(r *Report) string {
	var sb strings.Builder

	sb.WriteString("Pipeline Timings\n")
	fmt.Fprintf(&sb, "├─ Operations: %d (%d failed)\n", r.TotalOperations, r.FailedOps)
	fmt.Fprintf(&sb, "├─ Heap: %.1f MiB, %d goroutines\n", float64(r.Snapshot.Memory.HeapAlloc)/(1<<20), r.Snapshot.Memory.Goroutines)
	fmt.Fprintf(&sb, "└─ Health: %s\n", r.OverallHealth)

	for i, op := range r.Snapshot.Operations {
		branch := "├─"
		if i == len(r.Snapshot.Operations)-1 {
			branch = "└─"
		}
		fmt.Fprintf(&sb, "   %s %-10s n=%d err=%d last=%s p50=%.0fms p95=%.0fms\n",
			branch, op.Operation, op.Count, op.ErrorCount, op.LastTime.Round(time.Millisecond), op.Latency.P50, op.Latency.P95)
	}

	for _, rec := range r.Recommendations {
		fmt.Fprintf(&sb, "  - %s\n", rec)
	}
	return sb.String()
}

func formatMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("## Pipeline Timings\n\n")
	fmt.Fprintf(&sb, "**Health:** %s  \n", r.OverallHealth)
	fmt.Fprintf(&sb, "**Operations:** %d (%d failed)\n\n", r.TotalOperations, r.FailedOps)

	sb.WriteString("| Operation | Count | Errors | Last | p50 (ms) | p95 (ms) |\n")
	sb.WriteString("|-----------|-------|--------|------|----------|----------|\n")
	for _, op := range r.Snapshot.Operations {
		fmt.Fprintf(&sb, "| %s | %d | %d | %s | %.0f | %.0f |\n",
			op.Operation, op.Count, op.ErrorCount, op.LastTime.Round(time.Millisecond), op.Latency.P50, op.Latency.P95)
	}

	sb.WriteString("\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&sb, "- %s\n", rec)
	}
	return sb.String()
}

package cli

import (
	"context"
	"io"
	"time"

	"github.com/yildizm/librarian/internal/ai"
	"github.com/yildizm/librarian/internal/media"
	"github.com/yildizm/librarian/internal/monitor"
	"github.com/yildizm/librarian/internal/recommend"
	"github.com/yildizm/librarian/internal/retrieval"
)

// timedGenerator times chat calls. Forced tool calls are the title
// selection, free replies the justification.
type timedGenerator struct {
	ai.Generator
	metrics *monitor.Collector
}

func (g timedGenerator) Chat(ctx context.Context, req *ai.ChatRequest) (*ai.ChatResponse, error) {
	op := monitor.OperationJustify
	if req.ToolChoice != nil || len(req.Tools) > 0 {
		op = monitor.OperationSelect
	}

	var resp *ai.ChatResponse
	err := g.metrics.TrackOperationWithError(op, func() error {
		var err error
		resp, err = g.Generator.Chat(ctx, req)
		return err
	})
	return resp, err
}

type timedSearcher struct {
	recommend.Searcher
	metrics *monitor.Collector
}

func (s timedSearcher) Search(ctx context.Context, query string, k int) ([]retrieval.Candidate, error) {
	var out []retrieval.Candidate
	err := s.metrics.TrackOperationWithError(monitor.OperationRetrieve, func() error {
		var err error
		out, err = s.Searcher.Search(ctx, query, k)
		return err
	})
	return out, err
}

type timedLookup struct {
	recommend.SummaryLookup
	metrics *monitor.Collector
}

func (l timedLookup) SummaryByTitle(title string) (string, error) {
	var summary string
	err := l.metrics.TrackOperationWithError(monitor.OperationLookup, func() error {
		var err error
		summary, err = l.SummaryLookup.SummaryByTitle(title)
		return err
	})
	return summary, err
}

// timedMedia counts a failed outcome as an error; disabled outcomes are skipped
type timedMedia struct {
	recommend.MediaProducer
	metrics *monitor.Collector
}

func (m timedMedia) Speak(ctx context.Context, text string) media.Outcome {
	start := time.Now()
	o := m.MediaProducer.Speak(ctx, text)
	m.record(monitor.OperationSpeech, start, o)
	return o
}

func (m timedMedia) Cover(ctx context.Context, title string) media.Outcome {
	start := time.Now()
	o := m.MediaProducer.Cover(ctx, title)
	m.record(monitor.OperationCover, start, o)
	return o
}

func (m timedMedia) record(op monitor.OperationType, start time.Time, o media.Outcome) {
	if o.Status == media.StatusDisabled {
		return
	}
	m.metrics.Record(op, time.Since(start), o.Status == media.StatusFailed)
}

// writeStats prints the timing report in the closest supported format
func writeStats(w io.Writer, metrics *monitor.Collector) error {
	format := monitor.ReportFormatText
	switch getOutputFormat() {
	case "json":
		format = monitor.ReportFormatJSON
	case "markdown":
		format = monitor.ReportFormatMarkdown
	}

	text, err := monitor.FormatReport(monitor.NewReport(metrics.GetSnapshot()), format)
	if err != nil {
		return err
	}
	return writeOutput(w, []byte(text))
}

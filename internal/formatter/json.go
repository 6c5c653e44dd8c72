package formatter

import (
	"encoding/json"
	"time"

	"github.com/yildizm/librarian/internal/history"
	"github.com/yildizm/librarian/internal/media"
	"github.com/yildizm/librarian/internal/recommend"
	"github.com/yildizm/librarian/internal/retrieval"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

// RecommendationOutput is the JSON shape of a recommendation
type RecommendationOutput struct {
	RequestID   string                   `json:"request_id"`
	Query       string                   `json:"query"`
	State       recommend.State          `json:"state"`
	Trace       []recommend.State        `json:"trace"`
	Text        string                   `json:"text"`
	PickedTitle *string                  `json:"picked_title"`
	PickedScore *float64                 `json:"picked_score"`
	Rewritten   bool                     `json:"rewritten"`
	Grounding   []recommend.ContextEntry `json:"grounding"`
	Candidates  []retrieval.Candidate    `json:"candidates"`
	Media       *MediaOutput             `json:"media,omitempty"`
	DurationMS  int64                    `json:"duration_ms"`
}

// MediaOutput reports the side channels
type MediaOutput struct {
	Speech *OutcomeOutput `json:"speech,omitempty"`
	Cover  *OutcomeOutput `json:"cover,omitempty"`
}

// OutcomeOutput is a media.Outcome with its error rendered as text
type OutcomeOutput struct {
	Status media.Status `json:"status"`
	Path   string       `json:"path,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// SearchOutput is the JSON shape of a search
type SearchOutput struct {
	Query      string                `json:"query"`
	Candidates []retrieval.Candidate `json:"candidates"`
}

// HistoryOutput is the JSON shape of one history row
type HistoryOutput struct {
	Timestamp   time.Time `json:"timestamp"`
	Query       string    `json:"query"`
	PickedTitle *string   `json:"picked_title"`
	PickedScore *float64  `json:"picked_score"`
}

func (f *jsonFormatter) FormatRecommendation(res *recommend.Result) ([]byte, error) {
	out := &RecommendationOutput{
		RequestID:   res.RequestID,
		Query:       res.Query,
		State:       res.State,
		Trace:       res.Trace,
		Text:        res.Text,
		PickedTitle: optionalString(res.PickedTitle),
		PickedScore: res.PickedScore,
		Rewritten:   res.Rewritten,
		Grounding:   res.Grounding,
		Candidates:  res.Candidates,
		Media:       createMediaOutput(res),
		DurationMS:  res.Duration.Milliseconds(),
	}
	if out.Grounding == nil {
		out.Grounding = []recommend.ContextEntry{}
	}
	if out.Candidates == nil {
		out.Candidates = []retrieval.Candidate{}
	}

	return json.MarshalIndent(out, "", "  ")
}

func (f *jsonFormatter) FormatCandidates(query string, candidates []retrieval.Candidate) ([]byte, error) {
	if candidates == nil {
		candidates = []retrieval.Candidate{}
	}
	return json.MarshalIndent(&SearchOutput{Query: query, Candidates: candidates}, "", "  ")
}

func (f *jsonFormatter) FormatHistory(entries []history.Entry) ([]byte, error) {
	out := make([]HistoryOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryOutput{
			Timestamp:   e.Timestamp,
			Query:       e.Query,
			PickedTitle: optionalString(e.PickedTitle),
			PickedScore: e.PickedScore,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// createMediaOutput returns nil when no side channel was requested
func createMediaOutput(res *recommend.Result) *MediaOutput {
	out := &MediaOutput{
		Speech: createOutcomeOutput(res.Audio),
		Cover:  createOutcomeOutput(res.Image),
	}
	if out.Speech == nil && out.Cover == nil {
		return nil
	}
	return out
}

func createOutcomeOutput(o media.Outcome) *OutcomeOutput {
	if o.Status == media.StatusDisabled || o.Status == "" {
		return nil
	}
	out := &OutcomeOutput{Status: o.Status, Path: o.Path}
	if o.Status == media.StatusFailed {
		out.Error = o.Reason()
	}
	return out
}

// optionalString maps "" to JSON null
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

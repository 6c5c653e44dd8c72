// Package recommend runs the two-phase recommendation protocol: a forced
// title-selection tool call grounded on retrieved candidates, a summary
// lookup, then a short constrained justification.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yildizm/librarian/internal/ai"
	"github.com/yildizm/librarian/internal/guard"
	"github.com/yildizm/librarian/internal/logger"
	"github.com/yildizm/librarian/internal/media"
	"github.com/yildizm/librarian/internal/prefs"
	"github.com/yildizm/librarian/internal/retrieval"
)

// State is a step of the protocol
type State string

const (
	StateRejected        State = "REJECTED"
	StateRetrieved       State = "RETRIEVED"
	StateSelectionForced State = "TITLE_SELECTION_FORCED"
	StateToolExecuted    State = "TOOL_EXECUTED"
	StateJustified       State = "JUSTIFIED"
	StateAssembled       State = "ASSEMBLED"
)

// Searcher ranks catalog candidates for a query
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Candidate, error)
}

// SummaryLookup resolves a title to its stored summary. Not-found is a
// message, not an error; errors mean the catalog itself is unavailable.
type SummaryLookup interface {
	SummaryByTitle(title string) (string, error)
}

// PreferenceSource loads the user's likes and dislikes
type PreferenceSource interface {
	Load() (prefs.Set, error)
}

// Recorder appends one history row per call
type Recorder interface {
	Record(query, pickedTitle string, pickedScore *float64) error
}

// MediaProducer renders the optional side channels
type MediaProducer interface {
	Speak(ctx context.Context, text string) media.Outcome
	Cover(ctx context.Context, title string) media.Outcome
}

// Deps are the collaborators of an Orchestrator. Generator, Searcher and
// Lookup are required.
type Deps struct {
	Generator ai.Generator
	Searcher  Searcher
	Lookup    SummaryLookup
	Prefs     PreferenceSource
	History   Recorder
	Media     MediaProducer
	Guard     *guard.Guard
}

// Options tunes the protocol
type Options struct {
	Model                    string
	Temperature              float64
	K                        int
	GroundingSize            int
	SnippetRunes             int
	SummaryRunes             int
	Delta                    float64
	SelectionMaxTokens       int
	JustificationTemperature float64
	JustificationMaxTokens   int
}

// DefaultOptions returns the protocol defaults
func DefaultOptions() Options {
	return Options{
		Temperature:              0.2,
		K:                        retrieval.DefaultK,
		GroundingSize:            3,
		SnippetRunes:             280,
		SummaryRunes:             800,
		Delta:                    retrieval.DefaultDelta,
		SelectionMaxTokens:       200,
		JustificationTemperature: 0.1,
		JustificationMaxTokens:   200,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.K <= 0 {
		o.K = d.K
	}
	if o.GroundingSize <= 0 {
		o.GroundingSize = d.GroundingSize
	}
	if o.SnippetRunes <= 0 {
		o.SnippetRunes = d.SnippetRunes
	}
	if o.SummaryRunes <= 0 {
		o.SummaryRunes = d.SummaryRunes
	}
	if o.SelectionMaxTokens <= 0 {
		o.SelectionMaxTokens = d.SelectionMaxTokens
	}
	if o.JustificationMaxTokens <= 0 {
		o.JustificationMaxTokens = d.JustificationMaxTokens
	}
	if o.JustificationTemperature < 0 {
		o.JustificationTemperature = d.JustificationTemperature
	}
	return o
}

// Request is one recommendation call
type Request struct {
	Query string

	// K overrides the number of retrieved candidates
	K int

	// Temperature overrides the selection temperature
	Temperature *float64

	// Speech and Cover request the side channels
	Speech bool
	Cover  bool
}

// Result is the outcome of one call. PickedTitle is empty and PickedScore
// nil when nothing was picked.
type Result struct {
	RequestID   string                `json:"request_id"`
	Query       string                `json:"query"`
	State       State                 `json:"state"`
	Trace       []State               `json:"trace"`
	Text        string                `json:"text"`
	PickedTitle string                `json:"picked_title,omitempty"`
	PickedScore *float64              `json:"picked_score,omitempty"`
	Reasons     string                `json:"reasons,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Rewritten   bool                  `json:"rewritten"`
	Grounding   []ContextEntry        `json:"grounding"`
	Candidates  []retrieval.Candidate `json:"candidates"`
	Audio       media.Outcome         `json:"audio"`
	Image       media.Outcome         `json:"image"`
	Duration    time.Duration         `json:"duration"`
}

// Picked reports whether a title was selected
func (r *Result) Picked() bool {
	return r.PickedTitle != ""
}

// Rejected reports whether the query was refused
func (r *Result) Rejected() bool {
	return r.State == StateRejected
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

// enter moves res to s and logs the transition
func (o *Orchestrator) enter(res *Result, s State) {
	res.enter(s)
	o.log.DebugWithFields("state", []logger.Field{logger.RequestID(res.RequestID), logger.F("state", s)})
}

// Orchestrator runs recommendation calls. It holds no per-call state and
// is safe for concurrent use when its collaborators are.
type Orchestrator struct {
	deps Deps
	opts Options
	log  *logger.Logger
}

// New validates deps and builds an orchestrator
func New(deps Deps, opts Options, log *logger.Logger) (*Orchestrator, error) {
	if deps.Generator == nil {
		return nil, errors.New("recommend: generator is required")
	}
	if deps.Searcher == nil {
		return nil, errors.New("recommend: searcher is required")
	}
	if deps.Lookup == nil {
		return nil, errors.New("recommend: summary lookup is required")
	}
	if deps.Guard == nil {
		deps.Guard = guard.Default()
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Orchestrator{
		deps: deps,
		opts: opts.withDefaults(),
		log:  log.WithComponent("recommend"),
	}, nil
}

// Recommend runs one call. Refusals, selection fallbacks and collaborator
// failures are reported inside the Result; only embedding, store and
// generation failures are returned as errors.
func (o *Orchestrator) Recommend(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := &Result{
		RequestID: uuid.NewString(),
		Query:     req.Query,
		Audio:     media.Disabled(),
		Image:     media.Disabled(),
	}
	rid := logger.RequestID(res.RequestID)

	if o.deps.Guard.IsInappropriate(req.Query) {
		o.enter(res, StateRejected)
		res.Text = guard.RefusalMessage
		res.Grounding = []ContextEntry{}
		res.Candidates = []retrieval.Candidate{}
		o.record(res)
		o.log.InfoWithFields("query rejected", []logger.Field{rid})
		res.Duration = time.Since(start)
		return res, nil
	}

	if err := o.retrieve(ctx, req, res); err != nil {
		o.log.ErrorWithFields("retrieval failed", []logger.Field{rid, logger.Error(err)})
		return nil, err
	}
	o.log.DebugWithFields("retrieved", []logger.Field{rid, logger.Count(len(res.Candidates))})

	query := o.deps.Guard.RewriteIfNeeded(req.Query)
	res.Rewritten = query != req.Query

	title, err := o.selectTitle(ctx, req, res, query)
	if err != nil {
		o.log.ErrorWithFields("title selection failed", []logger.Field{rid, logger.Error(err)})
		return nil, err
	}

	if title == "" {
		o.log.WarnWithFields("no title selected, using fallback", []logger.Field{rid})
		res.Text = FallbackMessage
	} else {
		if err := o.justify(ctx, res, query, title); err != nil {
			o.log.ErrorWithFields("justification failed", []logger.Field{rid, logger.Error(err)})
			return nil, err
		}
		res.Text = assemble(res.PickedTitle, res.Reasons, res.Summary)
	}

	res.Text += citations(res.Grounding)
	o.enter(res, StateAssembled)
	o.record(res)

	o.sideChannels(ctx, req, res)

	res.Duration = time.Since(start)
	o.log.InfoWithFields("recommendation complete", []logger.Field{
		rid,
		logger.F("picked", res.PickedTitle),
		logger.Duration(res.Duration),
	})
	return res, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, req Request, res *Result) error {
	k := req.K
	if k <= 0 {
		k = o.opts.K
	}

	candidates, err := o.deps.Searcher.Search(ctx, req.Query, k)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if o.deps.Prefs != nil {
		set, err := o.deps.Prefs.Load()
		if err != nil {
			o.log.Warn("preferences unavailable, ranking without them: %v", err)
		} else {
			retrieval.Personalize(candidates, retrieval.Preferences{Liked: set.Liked, Disliked: set.Disliked}, o.opts.Delta)
		}
	}

	res.Candidates = candidates
	n := min(o.opts.GroundingSize, len(candidates))
	res.Grounding = make([]ContextEntry, 0, n)
	for i := 0; i < n; i++ {
		c := &candidates[i]
		res.Grounding = append(res.Grounding, ContextEntry{
			Title:   c.Title,
			Snippet: c.Snippet(o.opts.SnippetRunes),
			Score:   round4(c.Score),
		})
	}

	o.enter(res, StateRetrieved)
	return nil
}

// selectTitle forces the lookup tool call. A reply without a usable call is
// a contract violation and yields an empty title.
func (o *Orchestrator) selectTitle(ctx context.Context, req Request, res *Result, query string) (string, error) {
	temperature := o.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	chatReq := &ai.ChatRequest{
		Model:       o.opts.Model,
		Messages:    selectionMessages(query, res.Grounding),
		Tools:       []ai.Tool{summaryTool()},
		ToolChoice:  ai.ForceTool(ToolName),
		Temperature: &temperature,
		MaxTokens:   o.opts.SelectionMaxTokens,
		RequestID:   res.RequestID,
	}
	o.enter(res, StateSelectionForced)

	resp, err := o.deps.Generator.Chat(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("selection request failed: %w", err)
	}

	call, ok := resp.FirstToolCall(ToolName)
	if !ok {
		return "", nil
	}
	title, ok := parseTitle(call)
	if !ok {
		o.log.Debug("unusable tool arguments: %q", call.Arguments)
		return "", nil
	}
	return title, nil
}

func (o *Orchestrator) justify(ctx context.Context, res *Result, query, title string) error {
	res.PickedTitle = title
	res.PickedScore = scoreFor(res.Candidates, title)

	summary, err := o.deps.Lookup.SummaryByTitle(title)
	if err != nil {
		o.log.Warn("summary lookup failed: %v", err)
		summary = toolErrorPrefix + err.Error()
	}
	res.Summary = summary
	o.enter(res, StateToolExecuted)

	temperature := o.opts.JustificationTemperature
	resp, err := o.deps.Generator.Chat(ctx, &ai.ChatRequest{
		Model:       o.opts.Model,
		Messages:    justificationMessages(query, title, summary, res.Grounding, o.opts.SummaryRunes),
		Temperature: &temperature,
		MaxTokens:   o.opts.JustificationMaxTokens,
		RequestID:   res.RequestID,
	})
	if err != nil {
		return fmt.Errorf("justification request failed: %w", err)
	}

	res.Reasons = strings.TrimSpace(resp.Content)
	o.enter(res, StateJustified)
	return nil
}

func (o *Orchestrator) record(res *Result) {
	if o.deps.History == nil {
		return
	}
	if err := o.deps.History.Record(res.Query, res.PickedTitle, res.PickedScore); err != nil {
		o.log.Warn("failed to record history: %v", err)
	}
}

func (o *Orchestrator) sideChannels(ctx context.Context, req Request, res *Result) {
	if o.deps.Media == nil {
		return
	}
	if req.Speech && res.Text != "" {
		res.Audio = o.deps.Media.Speak(ctx, res.Text)
	}
	if req.Cover {
		res.Image = o.deps.Media.Cover(ctx, res.PickedTitle)
	}
}

// scoreFor finds title among candidates, ignoring case
func scoreFor(candidates []retrieval.Candidate, title string) *float64 {
	for i := range candidates {
		if strings.EqualFold(candidates[i].Title, title) {
			score := round4(candidates[i].Score)
			return &score
		}
	}
	return nil
}

// round4 is applied to serialized scores only; candidates keep full
// precision so a far hit never collapses to zero
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

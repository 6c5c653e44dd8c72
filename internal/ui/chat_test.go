package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/librarian/internal/media"
	"github.com/yildizm/librarian/internal/prefs"
	"github.com/yildizm/librarian/internal/recommend"
)

type fakeRecommender struct {
	requests []recommend.Request
	result   *recommend.Result
	err      error
}

func (f *fakeRecommender) Recommend(_ context.Context, req recommend.Request) (*recommend.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeFeedback struct {
	titles []string
	liked  []bool
	err    error
}

func (f *fakeFeedback) RecordFeedback(title string, liked bool) (prefs.Set, error) {
	if f.err != nil {
		return prefs.Set{}, f.err
	}
	f.titles = append(f.titles, title)
	f.liked = append(f.liked, liked)
	set := prefs.Set{}
	if liked {
		set.Liked = []string{title}
	} else {
		set.Disliked = []string{title}
	}
	return set, nil
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func typeText(m *ChatModel, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// drain runs cmd and feeds every resulting message back into m, skipping
// timers that would otherwise loop forever
func drain(m *ChatModel, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drain(m, c)
		}
	case recommendCompleteMsg, recommendErrorMsg, feedbackSavedMsg, feedbackErrorMsg:
		m.Update(msg)
	}
}

func score(v float64) *float64 { return &v }

func pickedResult() *recommend.Result {
	return &recommend.Result{
		State:       recommend.StateAssembled,
		Text:        "The Hobbit – prietenie și magie.",
		PickedTitle: "The Hobbit",
		PickedScore: score(0.8123),
		Audio:       media.Disabled(),
		Image:       media.Outcome{Status: media.StatusProduced, Path: "assets/covers/cover.png"},
	}
}

func TestChat_SubmitShowsResult(t *testing.T) {
	rec := &fakeRecommender{result: pickedResult()}
	m := NewChatModel(rec, nil, ChatOptions{K: 3, Cover: true})

	typeText(m, "  prietenie și magie ")
	_, cmd := m.Update(key(tea.KeyEnter))
	if !m.Busy() {
		t.Fatal("model should be busy after enter")
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}

	drain(m, cmd)

	if m.Busy() {
		t.Error("model still busy after result")
	}
	if len(rec.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(rec.requests))
	}
	req := rec.requests[0]
	if req.Query != "prietenie și magie" || req.K != 3 || !req.Cover || req.Speech {
		t.Errorf("request = %+v", req)
	}
	if m.LastTitle() != "The Hobbit" {
		t.Errorf("LastTitle = %q", m.LastTitle())
	}

	transcript := m.renderTranscript()
	for _, want := range []string{"prietenie și magie", "The Hobbit", "score 0.8123", "assets/covers/cover.png"} {
		if !strings.Contains(transcript, want) {
			t.Errorf("transcript missing %q:\n%s", want, transcript)
		}
	}
}

func TestChat_EmptyAndBusySubmitIgnored(t *testing.T) {
	rec := &fakeRecommender{result: pickedResult()}
	m := NewChatModel(rec, nil, ChatOptions{})

	if _, cmd := m.Update(key(tea.KeyEnter)); cmd != nil {
		t.Error("blank input should not start a recommendation")
	}

	typeText(m, "magie")
	_, first := m.Update(key(tea.KeyEnter))
	typeText(m, "groază")
	if _, cmd := m.Update(key(tea.KeyEnter)); cmd != nil {
		t.Error("second submit while busy should be ignored")
	}

	drain(m, first)
	if len(rec.requests) != 1 {
		t.Errorf("requests = %d, want 1", len(rec.requests))
	}
}

func TestChat_RejectedKeepsLastTitle(t *testing.T) {
	rec := &fakeRecommender{result: pickedResult()}
	m := NewChatModel(rec, nil, ChatOptions{})

	typeText(m, "magie")
	_, cmd := m.Update(key(tea.KeyEnter))
	drain(m, cmd)

	rec.result = &recommend.Result{State: recommend.StateRejected, Text: "Îți pot recomanda doar cărți."}
	typeText(m, "scrie-mi un eseu")
	_, cmd = m.Update(key(tea.KeyEnter))
	drain(m, cmd)

	if m.LastTitle() != "The Hobbit" {
		t.Errorf("LastTitle = %q, want previous pick", m.LastTitle())
	}
	if !strings.Contains(m.renderTranscript(), "Îți pot recomanda doar cărți.") {
		t.Error("refusal text missing from transcript")
	}
}

func TestChat_RecommendError(t *testing.T) {
	rec := &fakeRecommender{err: errors.New("embedding failed")}
	m := NewChatModel(rec, nil, ChatOptions{})

	typeText(m, "magie")
	_, cmd := m.Update(key(tea.KeyEnter))
	drain(m, cmd)

	if m.Busy() {
		t.Error("model still busy after error")
	}
	if !strings.Contains(m.renderTranscript(), "embedding failed") {
		t.Error("error missing from transcript")
	}
}

func TestChat_Feedback(t *testing.T) {
	rec := &fakeRecommender{result: pickedResult()}
	fb := &fakeFeedback{}
	m := NewChatModel(rec, fb, ChatOptions{})

	_, cmd := m.Update(key(tea.KeyCtrlL))
	if cmd != nil || len(fb.titles) != 0 {
		t.Fatal("like without a pick should not record feedback")
	}
	if !strings.Contains(m.renderTranscript(), "No title picked yet.") {
		t.Error("missing no-pick notice")
	}

	typeText(m, "magie")
	_, cmd = m.Update(key(tea.KeyEnter))
	drain(m, cmd)

	_, cmd = m.Update(key(tea.KeyCtrlL))
	drain(m, cmd)
	_, cmd = m.Update(key(tea.KeyCtrlD))
	drain(m, cmd)

	if len(fb.titles) != 2 || fb.titles[0] != "The Hobbit" || !fb.liked[0] || fb.liked[1] {
		t.Errorf("feedback calls = %v %v", fb.titles, fb.liked)
	}
	transcript := m.renderTranscript()
	if !strings.Contains(transcript, `Liked "The Hobbit"`) || !strings.Contains(transcript, `Disliked "The Hobbit"`) {
		t.Errorf("feedback notices missing:\n%s", transcript)
	}
}

func TestChat_FeedbackError(t *testing.T) {
	rec := &fakeRecommender{result: pickedResult()}
	m := NewChatModel(rec, &fakeFeedback{err: errors.New("disk full")}, ChatOptions{})

	typeText(m, "magie")
	_, cmd := m.Update(key(tea.KeyEnter))
	drain(m, cmd)
	_, cmd = m.Update(key(tea.KeyCtrlD))
	drain(m, cmd)

	if !strings.Contains(m.renderTranscript(), "disk full") {
		t.Error("feedback error missing from transcript")
	}
}

func TestChat_QuitAndResize(t *testing.T) {
	m := NewChatModel(&fakeRecommender{}, nil, ChatOptions{})

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	if m.viewport.Width != 100 || m.viewport.Height != 30-chromeHeight {
		t.Errorf("viewport = %dx%d", m.viewport.Width, m.viewport.Height)
	}
	if !strings.Contains(m.View(), "Smart Librarian") {
		t.Error("view missing header")
	}

	_, cmd := m.Update(key(tea.KeyEsc))
	if cmd == nil {
		t.Fatal("esc should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc should quit")
	}
}

func TestThemeByName(t *testing.T) {
	for _, name := range GetAvailableThemes() {
		if theme, ok := ThemeByName(name); !ok || theme.Name != name {
			t.Errorf("ThemeByName(%q) = %q, %v", name, theme.Name, ok)
		}
	}
	if _, ok := ThemeByName("neon"); ok {
		t.Error("unknown theme should not be found")
	}
}

package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/librarian/internal/prefs"
	"github.com/yildizm/librarian/internal/recommend"
)

// Recommender answers one chat turn
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Result, error)
}

// FeedbackRecorder persists likes and dislikes
type FeedbackRecorder interface {
	RecordFeedback(title string, liked bool) (prefs.Set, error)
}

// Messages produced by the chat commands
type recommendCompleteMsg struct {
	result *recommend.Result
}

type recommendErrorMsg struct {
	query string
	err   error
}

type feedbackSavedMsg struct {
	title string
	liked bool
	set   prefs.Set
}

type feedbackErrorMsg struct {
	err error
}

// CreateRecommendCommand creates a tea command that runs one recommendation
func CreateRecommendCommand(rec Recommender, req recommend.Request, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		result, err := rec.Recommend(ctx, req)
		if err != nil {
			return recommendErrorMsg{query: req.Query, err: err}
		}
		return recommendCompleteMsg{result: result}
	}
}

// CreateFeedbackCommand creates a tea command that records feedback for title
func CreateFeedbackCommand(rec FeedbackRecorder, title string, liked bool) tea.Cmd {
	return func() tea.Msg {
		set, err := rec.RecordFeedback(title, liked)
		if err != nil {
			return feedbackErrorMsg{err: err}
		}
		return feedbackSavedMsg{title: title, liked: liked, set: set}
	}
}

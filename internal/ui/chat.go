package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/librarian/internal/emoji"
	"github.com/yildizm/librarian/internal/media"
	"github.com/yildizm/librarian/internal/recommend"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// header, input box and help line
	chromeHeight = 6
)

// ChatOptions configures a chat session
type ChatOptions struct {
	K       int
	Speech  bool
	Cover   bool
	Timeout time.Duration
	Theme   Theme
	Color   bool
}

type turnKind int

const (
	turnUser turnKind = iota
	turnLibrarian
	turnNotice
	turnError
)

type turn struct {
	kind turnKind
	text string
}

// ChatModel is the conversational recommendation TUI
type ChatModel struct {
	recommender Recommender
	feedback    FeedbackRecorder
	opts        ChatOptions
	styles      *Styles

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	turns     []turn
	lastTitle string
	busy      bool
	quitting  bool
	width     int
	height    int
}

// NewChatModel creates a chat model; feedback may be nil to disable likes
func NewChatModel(rec Recommender, feedback FeedbackRecorder, opts ChatOptions) *ChatModel {
	styles := NewStyles(opts.Theme, opts.Color)

	ti := textinput.New()
	ti.Placeholder = "Ce fel de carte cauți?"
	ti.CharLimit = 500
	ti.Width = defaultWidth - 8
	ti.Prompt = "› "
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Librarian

	m := &ChatModel{
		recommender: rec,
		feedback:    feedback,
		opts:        opts,
		styles:      styles,
		input:       ti,
		viewport:    viewport.New(defaultWidth, defaultHeight-chromeHeight),
		spinner:     s,
		width:       defaultWidth,
		height:      defaultHeight,
	}
	m.addTurn(turnNotice, "Describe a book you would enjoy and press enter.")
	return m
}

// Init initializes the chat model
func (m *ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// LastTitle returns the most recently picked title
func (m *ChatModel) LastTitle() string {
	return m.lastTitle
}

// Busy reports whether a recommendation is in flight
func (m *ChatModel) Busy() bool {
	return m.busy
}

// Update handles messages
func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case recommendCompleteMsg:
		m.busy = false
		m.showResult(msg.result)
		return m, nil

	case recommendErrorMsg:
		m.busy = false
		m.addTurn(turnError, fmt.Sprintf("%s Recommendation failed: %v", emoji.GetEmoji("error"), msg.err))
		return m, nil

	case feedbackSavedMsg:
		key, verb := "like", "Liked"
		if !msg.liked {
			key, verb = "dislike", "Disliked"
		}
		m.addTurn(turnNotice, fmt.Sprintf("%s %s %q (%d liked, %d disliked)",
			emoji.GetEmoji(key), verb, msg.title, len(msg.set.Liked), len(msg.set.Disliked)))
		return m, nil

	case feedbackErrorMsg:
		m.addTurn(turnError, fmt.Sprintf("%s Could not save feedback: %v", emoji.GetEmoji("error"), msg.err))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		return m, m.submit()

	case "ctrl+l":
		return m, m.rate(true)

	case "ctrl+d":
		return m, m.rate(false)

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ChatModel) submit() tea.Cmd {
	query := strings.TrimSpace(m.input.Value())
	if query == "" || m.busy {
		return nil
	}

	m.input.Reset()
	m.addTurn(turnUser, query)
	m.busy = true

	req := recommend.Request{
		Query:  query,
		K:      m.opts.K,
		Speech: m.opts.Speech,
		Cover:  m.opts.Cover,
	}
	return tea.Batch(m.spinner.Tick, CreateRecommendCommand(m.recommender, req, m.opts.Timeout))
}

func (m *ChatModel) rate(liked bool) tea.Cmd {
	if m.feedback == nil {
		m.addTurn(turnNotice, "Feedback is not available in this session.")
		return nil
	}
	if m.lastTitle == "" {
		m.addTurn(turnNotice, "No title picked yet.")
		return nil
	}
	return CreateFeedbackCommand(m.feedback, m.lastTitle, liked)
}

func (m *ChatModel) showResult(res *recommend.Result) {
	if res == nil {
		return
	}
	if res.Rejected() {
		m.addTurn(turnNotice, emoji.Prefix("refused")+res.Text)
		return
	}

	m.addTurn(turnLibrarian, res.Text)
	if res.Picked() {
		m.lastTitle = res.PickedTitle
		line := emoji.Prefix("book") + res.PickedTitle
		if res.PickedScore != nil {
			line += fmt.Sprintf(" (score %.4f)", *res.PickedScore)
		}
		m.addTurn(turnNotice, line)
	}
	m.addMedia("speech", "Audio", res.Audio)
	m.addMedia("cover", "Cover", res.Image)
}

func (m *ChatModel) addMedia(key, label string, o media.Outcome) {
	switch o.Status {
	case media.StatusProduced:
		m.addTurn(turnNotice, fmt.Sprintf("%s%s: %s", emoji.Prefix(key), label, o.Path))
	case media.StatusFailed:
		m.addTurn(turnError, fmt.Sprintf("%s%s failed: %s", emoji.Prefix("warning"), label, o.Reason()))
	}
}

func (m *ChatModel) addTurn(kind turnKind, text string) {
	m.turns = append(m.turns, turn{kind: kind, text: text})
	m.refresh()
}

func (m *ChatModel) resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 3)
	m.input.Width = max(width-8, 10)
	m.refresh()
}

func (m *ChatModel) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *ChatModel) renderTranscript() string {
	wrap := lipgloss.NewStyle().Width(max(m.width-2, 20))
	blocks := make([]string, 0, len(m.turns))
	for _, t := range m.turns {
		switch t.kind {
		case turnUser:
			blocks = append(blocks, m.styles.User.Render("You: ")+wrap.Render(t.text))
		case turnLibrarian:
			blocks = append(blocks, m.styles.Librarian.Render("Librarian:")+"\n"+wrap.Render(t.text))
		case turnError:
			blocks = append(blocks, m.styles.Error.Render(wrap.Render(t.text)))
		default:
			blocks = append(blocks, m.styles.Muted.Render(wrap.Render(t.text)))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// View renders the chat
func (m *ChatModel) View() string {
	if m.quitting {
		return "Happy reading! " + emoji.GetEmoji("door") + "\n"
	}

	header := m.styles.Title.Render(emoji.Prefix("book") + "Smart Librarian")
	if m.lastTitle != "" {
		header += m.styles.Muted.Render(" · last pick: ") + m.styles.Picked.Render(m.lastTitle)
	}

	status := m.styles.Muted.Render("enter recommend · ctrl+l like · ctrl+d dislike · pgup/pgdn scroll · esc quit")
	if m.busy {
		status = m.spinner.View() + m.styles.Muted.Render(" searching the shelves...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.styles.Input.Width(max(m.width-2, 20)).Render(m.input.View()),
		status,
	)
}

// RunChat starts the chat TUI and blocks until it exits
func RunChat(rec Recommender, feedback FeedbackRecorder, opts ChatOptions) error {
	p := tea.NewProgram(NewChatModel(rec, feedback, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

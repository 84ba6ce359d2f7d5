package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bookrec/internal/domain"
	"bookrec/internal/service"
)

// Port is the TUI-facing subset of the recommendation service.
type Port interface {
	ListFilters() service.Filters
	Recommend(ctx context.Context, req service.RecommendRequest) ([]domain.Recommendation, error)
	Views(recs []domain.Recommendation, query string) []service.BookView
}

// resultsMsg carries the outcome of one recommendation call.
type resultsMsg struct {
	query string
	views []service.BookView
	err   error
	took  time.Duration
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service    Port
	input      textinput.Model
	viewport   viewport.Model
	results    []service.BookView
	categories []string
	tones      []string
	category   int
	tone       int
	status     string
	cursor     int
	ready      bool
	loading    bool
	timeout    time.Duration
}

// New creates a new TUI model instance.
func New(svc Port, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe a book you'd like, e.g. a story about forgiveness"
	ti.Focus()
	ti.CharLimit = 500
	vp := viewport.New(0, 0)
	f := svc.ListFilters()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return Model{
		service:    svc,
		input:      ti,
		viewport:   vp,
		categories: withAll(f.Categories),
		tones:      withAll(f.Tones),
		timeout:    timeout,
		status:     "Type a description and press Enter. ctrl+f category, ctrl+t tone.",
	}
}

func withAll(values []string) []string {
	if len(values) == 0 {
		return []string{"All"}
	}
	return values
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + filters
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case resultsMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
		} else {
			m.results = msg.views
			m.cursor = 0
			if len(msg.views) == 0 {
				m.status = fmt.Sprintf("No books match %q with these filters", msg.query)
			} else {
				m.status = fmt.Sprintf("%d books for %q (%s)", len(msg.views), msg.query, msg.took.Round(time.Millisecond))
			}
		}
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.loading {
				m.loading = true
				m.status = "Searching..."
				return m, m.recommend(q)
			}
		case "ctrl+f":
			m.category = (m.category + 1) % len(m.categories)
			return m, nil
		case "ctrl+t":
			m.tone = (m.tone + 1) % len(m.tones)
			return m, nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) recommend(query string) tea.Cmd {
	req := service.RecommendRequest{
		Query:    query,
		Category: m.categories[m.category],
		Tone:     m.tones[m.tone],
	}
	svc, timeout := m.service, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		recs, err := svc.Recommend(ctx, req)
		if err != nil {
			return resultsMsg{query: query, err: err}
		}
		return resultsMsg{query: query, views: svc.Views(recs, query), took: time.Since(start)}
	}
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Semantic Book Recommender")
	filters := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		fmt.Sprintf("Category: %s   Tone: %s", m.categories[m.category], m.tones[m.tone]))
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + filters + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	v := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  score=%.3f", m.cursor+1, len(m.results), v.Score)
	heading := titleStyle.Render(v.Title)
	if v.AuthorsLine != "" {
		heading += " by " + v.AuthorsLine
	}
	meta := metaStyle.Render(fmt.Sprintf("%s · %s", v.Category, v.Tone))
	return title + "\n\n" + heading + "\n" + meta + "\n\n" + v.Teaser + "\n\n" + highlight(v.Description, v.Highlight)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// highlight renders the first occurrence of sentence inside text.
func highlight(text, sentence string) string {
	if sentence == "" {
		return text
	}
	i := strings.Index(text, sentence)
	if i < 0 {
		return text
	}
	return text[:i] + highlightStyle.Render(sentence) + text[i+len(sentence):]
}

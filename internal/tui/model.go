// Package tui is the terminal chat screen over the ask flow.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lorerag/internal/service"
)

// Asker is the TUI-facing subset of the ask flow.
type Asker interface {
	Ask(ctx context.Context, question string) (service.Answer, error)
}

type answerMsg struct {
	question string
	answer   service.Answer
	err      error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	asker    Asker
	timeout  time.Duration
	title    string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	answer   *service.Answer
	question string
	status   string
	cursor   int
	busy     bool
	ready    bool
}

// New creates a chat screen. subtitle is shown under the header, e.g. the
// loaded snapshot.
func New(asker Asker, subtitle string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the lore and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if timeout <= 0 {
		timeout = time.Minute
	}
	return Model{
		asker:    asker,
		timeout:  timeout,
		title:    subtitle,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Ready. Up/Down browse sources, Ctrl+C quits.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		ans, err := m.asker.Ask(ctx, q)
		return answerMsg{question: q, answer: ans, err: err}
	}
}

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, subtitle, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.render())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer = nil
		} else {
			m.status = fmt.Sprintf("Answered %q from %d sources", msg.question, len(msg.answer.Sources))
			m.answer = &msg.answer
			m.question = msg.question
			m.cursor = 0
		}
		m.viewport.SetContent(m.render())
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case "down":
			if n := m.sourceCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "up":
			if n := m.sourceCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.render())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Lorebook Q&A")
	subtitle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.title)
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	status = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + subtitle + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) sourceCount() int {
	if m.answer == nil {
		return 0
	}
	return len(m.answer.Sources)
}

func (m Model) render() string {
	if m.answer == nil {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(answerStyle.Render(m.answer.Text))
	if len(m.answer.Sources) == 0 {
		return b.String()
	}
	src := m.answer.Sources[m.cursor]
	fmt.Fprintf(&b, "\n\nSource %d/%d  chunk #%d  distance=%.3f\n\n", m.cursor+1, len(m.answer.Sources), src.Chunk.Index, src.Distance)
	b.WriteString(highlightBestSentence(src.Chunk.Text, m.question))
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// highlightBestSentence marks the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return text
	}
	qTokens := toTokenSet(query)
	best, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == best {
			sent = highlightStyle.Render(sent)
		}
		sentences[i] = sent
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := map[string]struct{}{}
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

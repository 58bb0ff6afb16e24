// Package tui provides a terminal chat for the basic chatbot using Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fundbridge-gpt/internal/llm"
	"fundbridge-gpt/internal/service"
	"fundbridge-gpt/internal/session"
	"fundbridge-gpt/internal/tokens"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// replyMsg carries the outcome of one chat turn.
type replyMsg struct {
	resp service.ChatResponse
	err  error
}

// Model is the Bubble Tea model for the chat window.
type Model struct {
	ctx    context.Context
	chat   service.ChatService
	sess   *session.Session
	apiKey string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	pending  string
	waiting  bool
	status   string
	estimate *tokens.Estimate
	ready    bool
}

// New creates a chat window over sess. apiKey may be empty to use the
// server credential.
func New(ctx context.Context, chat service.ChatService, sess *session.Session, apiKey string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Say something and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		ctx:      ctx,
		chat:     chat,
		sess:     sess,
		apiKey:   apiKey,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  s,
		status:   "Model " + sess.Model() + ". Ctrl+C to quit.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and reply events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := boxStyle.GetFrameSize()
		// title, status and the input box
		reserved := 2 + 3 + frame
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.viewport.SetContent(m.transcript())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.pending = text
			m.waiting = true
			m.status = "Thinking..."
			m.viewport.SetContent(m.transcript())
			m.viewport.GotoBottom()
			return m, tea.Batch(m.send(text), m.spinner.Tick)
		}

	case replyMsg:
		m.waiting = false
		m.pending = ""
		if msg.err != nil {
			m.status = warningStyle.Render("Warning: " + describe(msg.err))
		} else {
			est := msg.resp.Estimate
			m.estimate = &est
			m.status = fmt.Sprintf("Model %s. %d of %d tokens used by the last prompt.", est.Model, est.Tokens, est.Ceiling)
		}
		m.viewport.SetContent(m.transcript())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the transcript, the input box and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("FundBridge-GPT Basic ChatBot")
	status := infoStyle.Render(m.status)
	if m.waiting {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + m.viewport.View() + "\n" + boxStyle.Render(m.input.View()) + "\n" + status
}

// send runs one chat turn off the UI loop.
func (m Model) send(text string) tea.Cmd {
	ctx, chat, sess, apiKey := m.ctx, m.chat, m.sess, m.apiKey
	return func() tea.Msg {
		resp, err := chat.ProcessChat(ctx, sess, service.ChatRequest{Message: text, APIKey: apiKey})
		return replyMsg{resp: resp, err: err}
	}
}

func (m Model) transcript() string {
	history := m.sess.History()
	if len(history) == 0 && m.pending == "" {
		return infoStyle.Render("No messages yet.")
	}

	var b strings.Builder
	for _, msg := range history {
		writeTurn(&b, msg.Role, msg.Content)
	}
	if m.pending != "" {
		writeTurn(&b, llm.RoleUser, m.pending)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeTurn(b *strings.Builder, role, content string) {
	if role == llm.RoleUser {
		b.WriteString(userStyle.Render("You: "))
	} else {
		b.WriteString(assistantStyle.Render("AI: "))
	}
	b.WriteString(content)
	b.WriteString("\n\n")
}

// describe turns a chat error into the text shown in the status line.
func describe(err error) string {
	var budgetErr *service.BudgetError
	switch {
	case errors.As(err, &budgetErr):
		return fmt.Sprintf("%v (%d tokens, limit %d)", service.ErrBudgetExceeded, budgetErr.Estimate.Tokens, budgetErr.Estimate.Ceiling)
	case errors.Is(err, llm.ErrCredentialInvalid):
		return service.ErrCredentialRejected.Error()
	case errors.Is(err, llm.ErrRateLimited):
		return "rate limit reached, try again shortly"
	}
	return err.Error()
}

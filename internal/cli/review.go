package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/ledgerlight/ledgerlight/internal/engine"
	"github.com/ledgerlight/ledgerlight/internal/model"
	"github.com/ledgerlight/ledgerlight/internal/session"
)

// SessionResolver is the engine surface the review flow needs.
type SessionResolver interface {
	PendingSessions() []*session.Session
	ResolveSession(ctx context.Context, id string, res engine.Resolution) (*model.Expense, error)
}

type reviewMode int

const (
	modeDecide reviewMode = iota
	modeEditCategory
	modeEditAmount
)

type resolvedMsg struct {
	err     error
	expense *model.Expense
}

// ReviewModel walks the reviewer through the pending sessions one at a time.
type ReviewModel struct {
	resolver  SessionResolver
	sessions  []*session.Session
	input     textinput.Model
	status    string
	mode      reviewMode
	index     int
	confirmed int
	rejected  int
	quitting  bool
}

// NewReviewModel builds the review flow over the currently pending sessions.
func NewReviewModel(resolver SessionResolver) ReviewModel {
	input := textinput.New()
	input.CharLimit = 64

	return ReviewModel{
		resolver: resolver,
		sessions: resolver.PendingSessions(),
		input:    input,
	}
}

// Init implements tea.Model.
func (m ReviewModel) Init() tea.Cmd {
	if len(m.sessions) == 0 {
		return tea.Quit
	}
	return nil
}

func (m ReviewModel) current() *session.Session {
	return m.sessions[m.index]
}

func (m ReviewModel) resolveCmd(res engine.Resolution) tea.Cmd {
	id := m.current().ID
	return func() tea.Msg {
		expense, err := m.resolver.ResolveSession(context.Background(), id, res)
		return resolvedMsg{expense: expense, err: err}
	}
}

// Update implements tea.Model.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeDecide:
			return m.updateDecide(msg)
		case modeEditCategory, modeEditAmount:
			return m.updateEdit(msg)
		}

	case resolvedMsg:
		if msg.err != nil {
			m.status = FormatError(msg.err.Error())
			return m, nil
		}
		if msg.expense != nil {
			m.confirmed++
		} else {
			m.rejected++
		}
		m.status = ""
		m.index++
		if m.index >= len(m.sessions) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	return m, nil
}

func (m ReviewModel) updateDecide(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		return m, m.resolveCmd(engine.Resolution{Confirm: true})
	case "n":
		return m, m.resolveCmd(engine.Resolution{Confirm: false})
	case "e":
		m.mode = modeEditCategory
		m.input.SetValue(m.current().Draft.Category)
		m.input.Focus()
		return m, textinput.Blink
	case "a":
		m.mode = modeEditAmount
		m.input.SetValue(m.current().Draft.Amount.String())
		m.input.Focus()
		return m, textinput.Blink
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m ReviewModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeDecide
		m.input.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = modeDecide
		m.input.Blur()

		if mode == modeEditCategory {
			return m, m.resolveCmd(engine.Resolution{Confirm: true, Category: value})
		}
		amount, err := decimal.NewFromString(value)
		if err != nil {
			m.status = FormatError(fmt.Sprintf("invalid amount %q", value))
			return m, nil
		}
		return m, m.resolveCmd(engine.Resolution{Confirm: true, Amount: &amount})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ReviewModel) View() string {
	if m.quitting || m.index >= len(m.sessions) {
		return FormatSuccess(fmt.Sprintf("Review complete: %d confirmed, %d rejected\n",
			m.confirmed, m.rejected))
	}

	current := m.current()
	var b strings.Builder

	b.WriteString(FormatTitle(fmt.Sprintf("Pending classification %d/%d", m.index+1, len(m.sessions))))
	b.WriteString("\n")

	fields := []string{
		LabelStyle.Render("Statement") + current.Draft.Description,
		LabelStyle.Render("Category") + current.Draft.Category,
		LabelStyle.Render("Amount") + fmt.Sprintf("%s %s", current.Draft.Amount.String(), current.Draft.Currency),
		LabelStyle.Render("Confidence") + fmt.Sprintf("%.0f%%", current.Draft.Confidence*100),
	}
	if current.Candidate.Rationale != "" {
		fields = append(fields, LabelStyle.Render("Rationale")+SubtleStyle.Render(current.Candidate.Rationale))
	}
	b.WriteString(BoxStyle.Render(strings.Join(fields, "\n")))
	b.WriteString("\n")

	switch m.mode {
	case modeEditCategory:
		b.WriteString("New category: " + m.input.View() + "\n")
		b.WriteString(SubtleStyle.Render("enter confirm · esc cancel"))
	case modeEditAmount:
		b.WriteString("New amount: " + m.input.View() + "\n")
		b.WriteString(SubtleStyle.Render("enter confirm · esc cancel"))
	default:
		b.WriteString(SubtleStyle.Render("y confirm · n reject · e edit category · a edit amount · q quit"))
	}

	if m.status != "" {
		b.WriteString("\n" + m.status)
	}
	b.WriteString("\n")
	return b.String()
}

// RunReview launches the interactive review program.
func RunReview(resolver SessionResolver) error {
	reviewModel := NewReviewModel(resolver)
	if len(reviewModel.sessions) == 0 {
		fmt.Println(FormatSuccess("Nothing pending review"))
		return nil
	}
	_, err := tea.NewProgram(reviewModel).Run()
	return err
}

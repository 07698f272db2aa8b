// Package tui renders a live view of a pipeline run. It follows The Elm
// Architecture from bubbletea: the model holds the latest persisted engine
// snapshot plus the logbook tail, a ticker reloads both, and the view draws
// a stage table with one line per pipeline node.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gbredz1/gbforge/internal/config"
	"github.com/gbredz1/gbforge/internal/logbook"
	"github.com/gbredz1/gbforge/internal/pipeline/engine"
	"github.com/gbredz1/gbforge/internal/pipeline/resolver"
)

const (
	refreshInterval = 500 * time.Millisecond
	logTailLines    = 8
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	waitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	logStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the watch view state.
type Model struct {
	cfg   *config.Config
	store engine.StateStore
	book  *logbook.Logbook

	spinner  spinner.Model
	state    engine.State
	hasState bool
	loadErr  error
	logLines []string
	width    int
}

// New builds a watch model over the given state store and logbook.
func New(cfg *config.Config, store engine.StateStore, book *logbook.Logbook) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = waitStyle
	return Model{cfg: cfg, store: store, book: book, spinner: sp}
}

// Run starts the watch view and blocks until the user quits.
func Run(cfg *config.Config, store engine.StateStore, book *logbook.Logbook) error {
	program := tea.NewProgram(New(cfg, store, book))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m = m.reload()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// reload pulls the latest persisted snapshot and logbook tail.
func (m Model) reload() Model {
	state, err := m.store.Load()
	switch {
	case err == nil:
		m.state = state
		m.hasState = true
		m.loadErr = nil
	case errors.Is(err, engine.ErrStateNotFound):
		m.loadErr = nil
	default:
		m.loadErr = err
	}
	if m.book != nil {
		lines, _ := m.book.Tail(logTailLines)
		m.logLines = lines
	}
	return m
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("gbforge pipeline"))
	b.WriteString("\n\n")

	if m.loadErr != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("state error: %v", m.loadErr)))
		b.WriteString("\n")
	}
	if !m.hasState {
		b.WriteString(m.spinner.View())
		b.WriteString(" waiting for a pipeline run...\n")
		b.WriteString(footerStyle.Render("q to quit"))
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  run %s  [%s]", m.state.PipelineID, m.state.RunID, m.state.Status)))
	b.WriteString("\n\n")

	for _, node := range m.state.Nodes {
		b.WriteString("  ")
		b.WriteString(m.nodeLine(node))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.outputsLine())
	if m.state.StatusReason != "" {
		b.WriteString("\n")
		b.WriteString(skipStyle.Render(m.state.StatusReason))
	}

	if len(m.logLines) > 0 {
		b.WriteString("\n\n")
		b.WriteString(headerStyle.Render("logbook"))
		b.WriteString("\n")
		for _, line := range m.logLines {
			b.WriteString(logStyle.Render("  " + line))
			b.WriteString("\n")
		}
	}

	b.WriteString(footerStyle.Render("q to quit"))
	return b.String()
}

func (m Model) nodeLine(node engine.StageStatus) string {
	name := node.Name
	if name == "" {
		name = node.ID
	}
	detail := ""
	if node.LastRun != nil && node.LastRun.Message != "" {
		detail = "  " + skipStyle.Render(node.LastRun.Message)
	}
	switch node.State {
	case resolver.NodeStateComplete:
		return okStyle.Render("✓ "+name) + detail
	case resolver.NodeStateError:
		msg := node.Error
		if node.LastRun != nil && node.LastRun.Error != "" {
			msg = node.LastRun.Error
		}
		return errStyle.Render("✗ "+name) + "  " + errStyle.Render(msg)
	case resolver.NodeStateSkipped:
		return skipStyle.Render("- " + name + "  (skipped)")
	case resolver.NodeStateReady:
		return m.spinner.View() + " " + name + detail
	case resolver.NodeStateBlocked:
		return waitStyle.Render("… "+name) + "  " + skipStyle.Render("waiting on "+strings.Join(node.BlockedBy, ", "))
	default:
		return "  " + name
	}
}

func (m Model) outputsLine() string {
	parts := []string{}
	if m.state.Outputs.Version != "" {
		parts = append(parts, "version "+m.state.Outputs.Version)
	}
	if n := len(m.state.Outputs.Artifacts); n > 0 {
		parts = append(parts, fmt.Sprintf("%d artifact(s)", n))
	}
	if len(parts) == 0 {
		return skipStyle.Render("no outputs yet")
	}
	return headerStyle.Render(strings.Join(parts, "  •  "))
}

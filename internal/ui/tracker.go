package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/wird/internal/ledger"
	"github.com/ldi/wird/internal/ui/components"
	"github.com/ldi/wird/pkg/models"
)

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("241"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("12")).Bold(true).Underline(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type trackerView int

const (
	viewToday trackerView = iota
	viewReport
)

const (
	defaultWidth        = 80
	defaultReportHeight = 20
)

// TrackerModel is the interactive daily checklist with a report tab.
type TrackerModel struct {
	ctx    context.Context
	ledger *ledger.Ledger

	view   trackerView
	period models.Period
	list   *components.TaskList
	card   *components.ReportCard
	err    error

	quitting bool
}

func NewTrackerModel(ctx context.Context, l *ledger.Ledger) TrackerModel {
	m := TrackerModel{
		ctx:    ctx,
		ledger: l,
		period: models.PeriodWeek,
		list:   components.NewTaskList(defaultWidth),
		card:   components.NewReportCard(defaultWidth, defaultReportHeight),
	}
	m.refresh()
	return m
}

func (m TrackerModel) Init() tea.Cmd {
	return nil
}

func (m *TrackerModel) refresh() {
	summary, err := m.ledger.DaySummary(m.ledger.Today())
	if err != nil {
		m.err = err
		return
	}
	m.list.SetSummary(summary)

	report, err := m.ledger.GenerateReport(m.period)
	if err != nil {
		m.err = err
		return
	}
	m.card.SetReport(report)
}

func (m TrackerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.Width = msg.Width - 2
		// Leave room for the tabs and help line.
		m.card.SetSize(msg.Width, max(msg.Height-4, 1))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case "tab":
			if m.view == viewToday {
				m.view = viewReport
			} else {
				m.view = viewToday
			}
			m.refresh()
			return m, nil
		}

		if m.view == viewToday {
			return m.updateToday(msg)
		}
		return m.updateReport(msg)
	}
	return m, nil
}

func (m TrackerModel) updateToday(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.list.MoveUp()
	case "down", "j":
		m.list.MoveDown()
	case " ", "enter", "x":
		entry, ok := m.list.Selected()
		if !ok {
			return m, nil
		}
		if _, err := m.ledger.ToggleToday(m.ctx, entry.Task.ID); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.refresh()
	}
	return m, nil
}

func (m TrackerModel) updateReport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	period := m.period
	switch msg.String() {
	case "w":
		period = models.PeriodWeek
	case "m":
		period = models.PeriodMonth
	case "a":
		period = models.PeriodAll
	default:
		return m, m.card.Update(msg)
	}
	if period != m.period {
		m.period = period
		m.refresh()
	}
	return m, nil
}

func (m TrackerModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(m.tabs())
	s.WriteString("\n\n")

	if m.view == viewToday {
		s.WriteString(m.list.View())
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("(j/k move, space toggle, tab report, q quit)"))
	} else {
		s.WriteString(m.card.View())
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("(w week, m month, a all time, ↑/↓ scroll, tab today, q quit)"))
	}

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
	}
	s.WriteString("\n")
	return s.String()
}

func (m TrackerModel) tabs() string {
	today, report := tabStyle, tabStyle
	if m.view == viewToday {
		today = activeTabStyle
	} else {
		report = activeTabStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		today.Render("Today"),
		report.Render(fmt.Sprintf("Report (%s)", m.period)),
	)
}

// RunTracker blocks until the user quits the tracker.
func RunTracker(ctx context.Context, l *ledger.Ledger) error {
	p := tea.NewProgram(NewTrackerModel(ctx, l), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

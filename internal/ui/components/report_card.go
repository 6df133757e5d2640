package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/wird/pkg/models"
)

var (
	reportTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// GradeStyle colors text with the grade's own color.
func GradeStyle(g models.Grade) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(g.Color))
}

// ReportCard renders a report in a scrollable viewport.
type ReportCard struct {
	viewport viewport.Model
	content  string
	ready    bool
}

func NewReportCard(width, height int) *ReportCard {
	c := &ReportCard{}
	c.SetSize(width, height)
	return c
}

func (c *ReportCard) SetSize(width, height int) {
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !c.ready {
		c.viewport = viewport.New(vpWidth, height)
		c.ready = true
	} else {
		c.viewport.Width = vpWidth
		c.viewport.Height = height
	}
	c.viewport.SetContent(c.content)
}

func (c *ReportCard) SetReport(r models.Report) {
	c.content = RenderReport(r)
	c.viewport.SetContent(c.content)
	c.viewport.GotoTop()
}

func (c *ReportCard) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.viewport, cmd = c.viewport.Update(msg)
	return cmd
}

func (c *ReportCard) View() string {
	if c.viewport.TotalLineCount() <= c.viewport.Height {
		return c.viewport.View()
	}

	h := c.viewport.Height
	handlePos := int(float64(h-1) * c.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, c.viewport.View(), sb.String())
}

// RenderReport lays out the overall grade, the per-type breakdown and one
// row per task.
func RenderReport(r models.Report) string {
	var sb strings.Builder

	sb.WriteString(reportTitleStyle.Render(fmt.Sprintf("Report · %s · %s → %s (%d days)", r.Period, r.StartDate, r.EndDate, r.TotalDays)))
	sb.WriteString("\n")
	if !r.HasData {
		sb.WriteString(mutedStyle.Render("No activity recorded in this period"))
		sb.WriteString("\n")
	}

	o := r.Overall
	sb.WriteString(fmt.Sprintf("\nOverall  %s  %d%%  (%d/%d)\n",
		GradeStyle(o.Grade).Render(fmt.Sprintf("%-2s", o.Grade.Letter)), o.OverallPercentage, o.CompletedTasks, o.PossibleTasks))

	for _, tt := range models.TaskTypes {
		ts, ok := o.TypeStats[tt]
		if !ok || ts.Tasks == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-8s %s  %d%%  (%d/%d)\n",
			groupTitles[tt], GradeStyle(ts.Grade).Render(fmt.Sprintf("%-2s", ts.Grade.Letter)), ts.Percentage, ts.Completions, ts.Possible))
	}

	sb.WriteString("\n")
	for _, row := range r.Tasks {
		sb.WriteString(fmt.Sprintf("%s  %-20s %3d%%  %d/%d\n",
			GradeStyle(row.Grade).Render(fmt.Sprintf("%-2s", row.Grade.Letter)), row.Name, row.Percentage, row.CompletedDays, row.TotalDays))
	}
	return strings.TrimRight(sb.String(), "\n")
}

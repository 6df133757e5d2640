package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/wird/pkg/models"
)

var (
	groupBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	groupTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)
)

var groupTitles = map[models.TaskType]string{
	models.TaskTypePrayer: "Prayers",
	models.TaskTypeZikr:   "Azkar",
	models.TaskTypeOther:  "Other",
}

// GroupByType orders entries prayer, zikr, other, keeping catalog order
// inside each group.
func GroupByType(entries []models.DayEntry) []models.DayEntry {
	out := make([]models.DayEntry, 0, len(entries))
	for _, tt := range models.TaskTypes {
		for _, e := range entries {
			if e.Task.Type == tt {
				out = append(out, e)
			}
		}
	}
	return out
}

// TaskList renders one day's checklist, one bordered box per task type.
type TaskList struct {
	Date    string
	Entries []models.DayEntry
	Cursor  int
	Width   int
}

func NewTaskList(width int) *TaskList {
	return &TaskList{Width: width}
}

// SetSummary replaces the entries, grouped by type. The cursor is clamped.
func (l *TaskList) SetSummary(summary models.DaySummary) {
	l.Date = summary.Date
	l.Entries = GroupByType(summary.Entries)
	l.clamp()
}

func (l *TaskList) MoveUp() {
	if l.Cursor > 0 {
		l.Cursor--
	}
}

func (l *TaskList) MoveDown() {
	if l.Cursor < len(l.Entries)-1 {
		l.Cursor++
	}
}

// Selected returns the entry under the cursor.
func (l *TaskList) Selected() (models.DayEntry, bool) {
	if l.Cursor < 0 || l.Cursor >= len(l.Entries) {
		return models.DayEntry{}, false
	}
	return l.Entries[l.Cursor], true
}

func (l *TaskList) clamp() {
	if l.Cursor >= len(l.Entries) {
		l.Cursor = len(l.Entries) - 1
	}
	if l.Cursor < 0 {
		l.Cursor = 0
	}
}

func (l *TaskList) View() string {
	title := headerStyle.Render(fmt.Sprintf("Today · %s", l.Date))
	if len(l.Entries) == 0 {
		return title + "\n" + placeholderStyle.Render("No tasks in the catalog")
	}

	var boxes []string
	for _, tt := range models.TaskTypes {
		var lines []string
		for i, e := range l.Entries {
			if e.Task.Type != tt {
				continue
			}
			lines = append(lines, l.renderRow(i, e))
		}
		if len(lines) == 0 {
			continue
		}
		body := groupTitleStyle.Render(groupTitles[tt]) + "\n" + strings.Join(lines, "\n")
		style := groupBoxStyle
		if l.Width > 0 {
			style = style.Width(l.Width)
		}
		boxes = append(boxes, style.Render(body))
	}
	return title + "\n" + strings.Join(boxes, "\n")
}

func (l *TaskList) renderRow(i int, e models.DayEntry) string {
	check := "[ ]"
	name := e.Task.Name
	if e.Completed {
		check = doneStyle.Render("[x]")
		name = doneStyle.Render(name)
	}

	pointer := "  "
	if i == l.Cursor {
		pointer = cursorStyle.Render("> ")
	}

	stats := statsStyle.Render(fmt.Sprintf("%d/%d days (%d%%)", e.Stats.CompletedDays, e.Stats.TotalDays, e.Stats.Percentage))
	return fmt.Sprintf("%s%s %s  %s", pointer, check, name, stats)
}

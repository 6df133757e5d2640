package ledger

import (
	"fmt"
	"time"

	"github.com/ldi/wird/pkg/models"
)

const (
	weekDays  = 7
	monthDays = 30

	// MaxWindowDays bounds custom windows to roughly ten years.
	MaxWindowDays = 3660
)

func checkWindow(days int) error {
	if days < 1 || days > MaxWindowDays {
		return fmt.Errorf("%w: %d days, want 1..%d", ErrInvalidWindow, days, MaxWindowDays)
	}
	return nil
}

// dateRange lists days consecutive date keys ending at end, oldest first.
func dateRange(end time.Time, days int) []string {
	end = midnight(end)
	out := make([]string, days)
	for i := 0; i < days; i++ {
		out[days-1-i] = models.DateKey(end.AddDate(0, 0, -i))
	}
	return out
}

// ComputeTaskStats counts completions of taskID over the windowDays most
// recent days, today included.
func (l *Ledger) ComputeTaskStats(taskID, windowDays int) (models.TaskStats, error) {
	if err := checkWindow(windowDays); err != nil {
		return models.TaskStats{}, err
	}

	dates := dateRange(l.clock.Now(), windowDays)

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.statsLocked(taskID, dates), nil
}

func (l *Ledger) statsLocked(taskID int, dates []string) models.TaskStats {
	completed := 0
	for _, d := range dates {
		if l.history.Completed(d, taskID) {
			completed++
		}
	}
	return models.TaskStats{
		CompletedDays: completed,
		TotalDays:     len(dates),
		Percentage:    models.Percent(completed, len(dates)),
	}
}

// GenerateReport summarizes the catalog over a named period.
func (l *Ledger) GenerateReport(period models.Period) (models.Report, error) {
	now := l.clock.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	var days int
	switch period {
	case models.PeriodWeek:
		days = weekDays
	case models.PeriodMonth:
		days = monthDays
	case models.PeriodAll:
		days = l.allDaysLocked(now)
	default:
		return models.Report{}, fmt.Errorf("%w: %q", models.ErrInvalidPeriod, period)
	}
	return l.reportLocked(period, now, days), nil
}

// GenerateReportWindow summarizes the catalog over the last days days.
func (l *Ledger) GenerateReportWindow(days int) (models.Report, error) {
	if err := checkWindow(days); err != nil {
		return models.Report{}, err
	}
	now := l.clock.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reportLocked(models.PeriodCustom, now, days), nil
}

// allDaysLocked spans the earliest valid history date through today. Empty
// history, or history that only holds future dates, falls back to 30 days.
func (l *Ledger) allDaysLocked(now time.Time) int {
	for _, key := range l.history.Dates() {
		start, err := models.ParseDate(key)
		if err != nil {
			continue
		}
		n := daysBetween(start, now) + 1
		if n < 1 {
			break
		}
		return n
	}
	return monthDays
}

func (l *Ledger) reportLocked(period models.Period, now time.Time, days int) models.Report {
	dates := dateRange(now, days)

	hasData := false
	for _, d := range dates {
		if _, ok := l.history[d]; ok {
			hasData = true
			break
		}
	}

	rows := make([]models.TaskReport, 0, len(l.tasks))
	overall := models.OverallStats{
		TotalTasks: len(l.tasks),
		TypeStats:  make(map[models.TaskType]models.TypeStats, len(models.TaskTypes)),
	}
	byType := make(map[models.TaskType]*models.TypeStats, len(models.TaskTypes))
	for _, tt := range models.TaskTypes {
		byType[tt] = &models.TypeStats{}
	}

	for _, t := range l.tasks {
		stats := l.statsLocked(t.ID, dates)
		rows = append(rows, models.TaskReport{
			Task:      t,
			TaskStats: stats,
			Grade:     models.GradeFor(stats.Percentage),
		})

		overall.CompletedTasks += stats.CompletedDays
		overall.PossibleTasks += stats.TotalDays

		if ts, ok := byType[t.Type]; ok {
			ts.Tasks++
			ts.Completions += stats.CompletedDays
			ts.Possible += stats.TotalDays
		}
	}

	overall.OverallPercentage = models.Percent(overall.CompletedTasks, overall.PossibleTasks)
	overall.Grade = models.GradeFor(overall.OverallPercentage)
	for tt, ts := range byType {
		ts.Percentage = models.Percent(ts.Completions, ts.Possible)
		ts.Grade = models.GradeFor(ts.Percentage)
		overall.TypeStats[tt] = *ts
	}

	return models.Report{
		Period:    period,
		StartDate: dates[0],
		EndDate:   dates[len(dates)-1],
		TotalDays: days,
		HasData:   hasData,
		Tasks:     rows,
		Overall:   overall,
	}
}

// DaySummary lists every task with its state on date and its 30-day stats.
func (l *Ledger) DaySummary(date string) (models.DaySummary, error) {
	if _, err := models.ParseDate(date); err != nil {
		return models.DaySummary{}, err
	}
	window := dateRange(l.clock.Now(), monthDays)

	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]models.DayEntry, 0, len(l.tasks))
	for _, t := range l.tasks {
		entries = append(entries, models.DayEntry{
			Task:      t,
			Completed: l.history.Completed(date, t.ID),
			Stats:     l.statsLocked(t.ID, window),
		})
	}
	return models.DaySummary{Date: date, Entries: entries}, nil
}

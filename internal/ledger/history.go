package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ldi/wird/pkg/models"
)

// IsCompleted reports whether taskID is marked done on date.
func (l *Ledger) IsCompleted(taskID int, date string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.history.Completed(date, taskID)
}

func (l *Ledger) IsCompletedToday(taskID int) bool {
	return l.IsCompleted(taskID, l.Today())
}

// Toggle flips the completion flag of taskID on date and returns the new value.
// Unknown tasks leave the ledger untouched and return ErrTaskNotFound.
func (l *Ledger) Toggle(ctx context.Context, taskID int, date string) (bool, error) {
	if _, err := models.ParseDate(date); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexLocked(taskID) < 0 {
		return false, fmt.Errorf("%w: %d", ErrTaskNotFound, taskID)
	}

	day, ok := l.history[date]
	if !ok {
		day = map[int]bool{}
		l.history[date] = day
	}
	next := !day[taskID]
	day[taskID] = next

	l.saveHistoryLocked()
	l.metrics.Mutation("toggle")

	l.log.Debug("task toggled", zap.Int("task_id", taskID), zap.String("date", date), zap.Bool("completed", next))
	return next, nil
}

func (l *Ledger) ToggleToday(ctx context.Context, taskID int) (bool, error) {
	return l.Toggle(ctx, taskID, l.Today())
}

// PurgeTask removes taskID from every day of history.
func (l *Ledger) PurgeTask(ctx context.Context, taskID int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.purgeLocked(taskID) {
		l.saveHistoryLocked()
		l.metrics.Mutation("purge_task")
	}
}

func (l *Ledger) purgeLocked(taskID int) bool {
	changed := false
	for _, day := range l.history {
		if _, ok := day[taskID]; ok {
			delete(day, taskID)
			changed = true
		}
	}
	return changed
}

// CleanupOlderThan removes every date key lexicographically before cutoff
// and returns how many were removed. Today's entry is always kept.
func (l *Ledger) CleanupOlderThan(ctx context.Context, cutoff string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.todayLocked()
	removed := 0
	for date := range l.history {
		if date < cutoff && date != today {
			delete(l.history, date)
			removed++
		}
	}

	if removed > 0 {
		l.saveHistoryLocked()
		l.metrics.Mutation("cleanup")
		l.log.Info("old history removed", zap.String("cutoff", cutoff), zap.Int("dates", removed))
	}
	return removed
}

// RetentionCutoff is today minus the retention period in calendar months.
func (l *Ledger) RetentionCutoff() string {
	return models.DateKey(midnight(l.clock.Now()).AddDate(0, -l.retentionMonths, 0))
}

// Cleanup applies the retention policy relative to the current date.
func (l *Ledger) Cleanup(ctx context.Context) int {
	return l.CleanupOlderThan(ctx, l.RetentionCutoff())
}

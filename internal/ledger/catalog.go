package ledger

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/ldi/wird/pkg/models"
)

// AddTask appends a user task. Zero-valued frequency and type default to
// daily and other.
func (l *Ledger) AddTask(ctx context.Context, name, description string, frequency models.Frequency, typ models.TaskType) (models.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Task{}, ErrEmptyName
	}

	if frequency == "" {
		frequency = models.FrequencyDaily
	}
	freq, err := models.ParseFrequency(string(frequency))
	if err != nil {
		return models.Task{}, err
	}
	if typ == "" {
		typ = models.TaskTypeOther
	}
	tt, err := models.ParseTaskType(string(typ))
	if err != nil {
		return models.Task{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t := models.Task{
		ID:          l.nextIDLocked(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Type:        tt,
		Frequency:   freq,
	}
	l.tasks = append(l.tasks, t)
	l.saveTasksLocked()
	l.metrics.Mutation("add_task")

	l.log.Info("task added", zap.Int("task_id", t.ID), zap.String("name", t.Name))
	return t, nil
}

// nextIDLocked returns max(existing ids, 0) + 1.
func (l *Ledger) nextIDLocked() int {
	maxID := 0
	for _, t := range l.tasks {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	return maxID + 1
}

// DeleteTask removes a user task and every history entry for it. It returns
// false without changing anything when the task is missing, default or
// obligatory.
func (l *Ledger) DeleteTask(ctx context.Context, id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexLocked(id)
	if idx < 0 {
		return false
	}
	if !l.tasks[idx].Deletable() {
		l.log.Debug("refusing to delete protected task", zap.Int("task_id", id))
		return false
	}

	l.tasks = slices.Delete(l.tasks, idx, idx+1)
	l.purgeLocked(id)
	l.saveTasksLocked()
	l.saveHistoryLocked()
	l.metrics.Mutation("delete_task")

	l.log.Info("task deleted", zap.Int("task_id", id))
	return true
}

// ListTasks returns the catalog in insertion order, optionally restricted to one type.
func (l *Ledger) ListTasks(filter *models.TaskType) []models.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Task, 0, len(l.tasks))
	for _, t := range l.tasks {
		if filter != nil && t.Type != *filter {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Task looks up a single task by id.
func (l *Ledger) Task(id int) (models.Task, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.indexLocked(id)
	if idx < 0 {
		return models.Task{}, false
	}
	return l.tasks[idx], true
}

func (l *Ledger) indexLocked(id int) int {
	for i, t := range l.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Package ledger owns the habit catalog and its date-keyed completion
// history. Every operation works on in-memory state; changes are handed to a
// background writer and never wait on the store.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ldi/wird/internal/metrics"
	"github.com/ldi/wird/internal/store"
	"github.com/ldi/wird/pkg/models"
)

var (
	ErrEmptyName     = errors.New("task name is required")
	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidWindow = errors.New("invalid window")
)

const DefaultRetentionMonths = 3

type Ledger struct {
	mu      sync.RWMutex
	tasks   []models.Task
	history models.History

	clock           Clock
	log             *zap.Logger
	metrics         *metrics.Metrics
	retentionMonths int
	persist         *persister
}

type Option func(*Ledger)

func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func WithRetentionMonths(months int) Option {
	return func(l *Ledger) {
		if months > 0 {
			l.retentionMonths = months
		}
	}
}

// New returns a ledger holding the default catalog and an empty history.
// Call Load to replace that with the persisted state, and Close when done.
func New(st store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		tasks:           models.DefaultTasks(),
		history:         models.History{},
		clock:           RealClock{},
		log:             zap.NewNop(),
		retentionMonths: DefaultRetentionMonths,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Named("ledger")
	l.persist = newPersister(st, l.log.Named("persist"), l.metrics)
	return l
}

// Load reads the catalog and history from the store. A missing key yields the
// defaults; a read or decode failure is logged and resets both to defaults
// with an empty entry for today.
func (l *Ledger) Load(ctx context.Context) {
	tasks, history, err := l.read(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.log.Error("failed to load ledger state, using defaults", zap.Error(err))
		l.tasks = models.DefaultTasks()
		l.history = models.History{l.todayLocked(): {}}
	} else {
		l.tasks = tasks
		l.history = history
	}
	l.metrics.SetHistoryDates(len(l.history))
	l.log.Debug("ledger loaded", zap.Int("tasks", len(l.tasks)), zap.Int("dates", len(l.history)))
}

func (l *Ledger) read(ctx context.Context) ([]models.Task, models.History, error) {
	tasks := models.DefaultTasks()
	raw, err := l.persist.st.Get(ctx, store.KeyTasks)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, nil, fmt.Errorf("read %s: %w", store.KeyTasks, err)
	default:
		tasks, err = decodeTasks(raw)
		if err != nil {
			return nil, nil, err
		}
	}

	history := models.History{}
	raw, err = l.persist.st.Get(ctx, store.KeyHistory)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, nil, fmt.Errorf("read %s: %w", store.KeyHistory, err)
	default:
		history, err = decodeHistory(raw)
		if err != nil {
			return nil, nil, err
		}
	}

	return tasks, history, nil
}

func decodeTasks(raw string) ([]models.Task, error) {
	var tasks []models.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, fmt.Errorf("decode %s: %w", store.KeyTasks, err)
	}
	seen := make(map[int]bool, len(tasks))
	for i, t := range tasks {
		if seen[t.ID] {
			return nil, fmt.Errorf("decode %s: duplicate task id %d", store.KeyTasks, t.ID)
		}
		seen[t.ID] = true
		tasks[i] = t.WithDefaults()
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func decodeHistory(raw string) (models.History, error) {
	var history models.History
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("decode %s: %w", store.KeyHistory, err)
	}
	if history == nil {
		history = models.History{}
	}
	for date, day := range history {
		if day == nil {
			history[date] = map[int]bool{}
		}
	}
	return history, nil
}

// Flush waits until every change made so far has been handed to the store.
func (l *Ledger) Flush(ctx context.Context) error {
	return l.persist.Flush(ctx)
}

// Close flushes pending writes and stops the background writer.
func (l *Ledger) Close(ctx context.Context) error {
	return l.persist.Close(ctx)
}

// Today returns the current local date key.
func (l *Ledger) Today() string {
	return models.DateKey(l.clock.Now())
}

func (l *Ledger) todayLocked() string {
	return models.DateKey(l.clock.Now())
}

// History returns a copy of the completion history.
func (l *Ledger) History() models.History {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.history.Clone()
}

func (l *Ledger) saveTasksLocked() {
	b, err := json.Marshal(l.tasks)
	if err != nil {
		l.log.Error("failed to encode tasks", zap.Error(err))
		return
	}
	l.persist.enqueue(store.KeyTasks, string(b))
}

func (l *Ledger) saveHistoryLocked() {
	b, err := json.Marshal(l.history)
	if err != nil {
		l.log.Error("failed to encode history", zap.Error(err))
		return
	}
	l.persist.enqueue(store.KeyHistory, string(b))
	l.metrics.SetHistoryDates(len(l.history))
}

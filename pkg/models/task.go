package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTaskType  = errors.New("invalid task type")
	ErrInvalidFrequency = errors.New("invalid frequency")
)

type TaskType string

const (
	TaskTypePrayer TaskType = "prayer"
	TaskTypeZikr   TaskType = "zikr"
	TaskTypeOther  TaskType = "other"
)

// TaskTypes lists every task type in display order.
var TaskTypes = []TaskType{TaskTypePrayer, TaskTypeZikr, TaskTypeOther}

func ParseTaskType(s string) (TaskType, error) {
	switch t := TaskType(strings.ToLower(strings.TrimSpace(s))); t {
	case TaskTypePrayer, TaskTypeZikr, TaskTypeOther:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskType, s)
	}
}

func (t TaskType) MarshalText() ([]byte, error) {
	if _, err := ParseTaskType(string(t)); err != nil {
		return nil, err
	}
	return []byte(t), nil
}

func (t *TaskType) UnmarshalText(b []byte) error {
	parsed, err := ParseTaskType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Frequency is informational; completion is only ever evaluated per day.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
}

func (f Frequency) MarshalText() ([]byte, error) {
	if _, err := ParseFrequency(string(f)); err != nil {
		return nil, err
	}
	return []byte(f), nil
}

func (f *Frequency) UnmarshalText(b []byte) error {
	parsed, err := ParseFrequency(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Task is a trackable habit. The JSON shape is the persisted record format.
type Task struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Type         TaskType  `json:"type"`
	Frequency    Frequency `json:"frequency"`
	IsDefault    bool      `json:"isDefault"`
	IsObligatory bool      `json:"isObligatory"`
}

// Deletable reports whether the task may be removed from the catalog.
func (t Task) Deletable() bool {
	return !t.IsDefault && !t.IsObligatory
}

// WithDefaults fills a missing type or frequency with other and daily.
// Records decoded without those keys are otherwise unencodable.
func (t Task) WithDefaults() Task {
	if t.Type == "" {
		t.Type = TaskTypeOther
	}
	if t.Frequency == "" {
		t.Frequency = FrequencyDaily
	}
	return t
}

// DefaultTasks returns the seeded catalog used when nothing has been persisted.
func DefaultTasks() []Task {
	return []Task{
		{ID: 1, Name: "Fajr Prayer", Type: TaskTypePrayer, Frequency: FrequencyDaily, IsDefault: true, IsObligatory: true},
		{ID: 2, Name: "Dhuhr Prayer", Type: TaskTypePrayer, Frequency: FrequencyDaily, IsDefault: true, IsObligatory: true},
		{ID: 3, Name: "Asr Prayer", Type: TaskTypePrayer, Frequency: FrequencyDaily, IsDefault: true, IsObligatory: true},
		{ID: 4, Name: "Maghrib Prayer", Type: TaskTypePrayer, Frequency: FrequencyDaily, IsDefault: true, IsObligatory: true},
		{ID: 5, Name: "Isha Prayer", Type: TaskTypePrayer, Frequency: FrequencyDaily, IsDefault: true, IsObligatory: true},

		{ID: 6, Name: "Morning Azkar", Type: TaskTypeZikr, Frequency: FrequencyDaily, IsDefault: true},
		{ID: 7, Name: "Evening Azkar", Type: TaskTypeZikr, Frequency: FrequencyDaily, IsDefault: true},

		{ID: 8, Name: "Read Quran", Type: TaskTypeOther, Frequency: FrequencyDaily, IsDefault: true},
		{ID: 9, Name: "Fasting", Type: TaskTypeOther, Frequency: FrequencyDaily, IsDefault: true},
	}
}

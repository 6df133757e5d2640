package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeFor(t *testing.T) {
	cases := []struct {
		pct  int
		want string
	}{
		{100, "A+"}, {90, "A+"}, {89, "A"}, {80, "A"}, {79, "B+"}, {70, "B+"},
		{69, "B"}, {60, "B"}, {59, "C"}, {50, "C"}, {49, "F"}, {0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GradeFor(tc.pct).Letter, "percentage %d", tc.pct)
	}
	assert.Equal(t, "#f44336", GradeFor(10).Color)
	assert.Equal(t, "#4CAF50", GradeFor(95).Color)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 0, Percent(3, 0))
	assert.Equal(t, 50, Percent(5, 10))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
	// round half up
	assert.Equal(t, 13, Percent(1, 8))
	assert.Equal(t, 3, Percent(1, 40))
	assert.Equal(t, 100, Percent(30, 30))
}

func TestTaskJSON(t *testing.T) {
	task := Task{ID: 4, Name: "Maghrib Prayer", Type: TaskTypePrayer, Frequency: FrequencyDaily, IsDefault: true, IsObligatory: true}
	b, err := json.Marshal(task)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"name":"Maghrib Prayer","type":"prayer","frequency":"daily","isDefault":true,"isObligatory":true}`, string(b))

	var decoded Task
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, task, decoded)

	err = json.Unmarshal([]byte(`{"id":1,"name":"x","type":"sport","frequency":"daily"}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidTaskType)

	err = json.Unmarshal([]byte(`{"id":1,"name":"x","type":"zikr","frequency":"yearly"}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	_, err = json.Marshal(Task{ID: 1, Name: "x", Type: "bogus", Frequency: FrequencyDaily})
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	tt, err := ParseTaskType(" Zikr ")
	require.NoError(t, err)
	assert.Equal(t, TaskTypeZikr, tt)

	f, err := ParseFrequency("MONTHLY")
	require.NoError(t, err)
	assert.Equal(t, FrequencyMonthly, f)

	p, err := ParsePeriod("all")
	require.NoError(t, err)
	assert.Equal(t, PeriodAll, p)

	_, err = ParsePeriod("custom")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestTaskWithDefaults(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"Fajr Prayer","isDefault":true}`), &task))
	assert.Equal(t, TaskType(""), task.Type)

	task = task.WithDefaults()
	assert.Equal(t, TaskTypeOther, task.Type)
	assert.Equal(t, FrequencyDaily, task.Frequency)
	_, err := json.Marshal(task)
	assert.NoError(t, err)

	kept := Task{ID: 2, Name: "x", Type: TaskTypePrayer, Frequency: FrequencyWeekly}.WithDefaults()
	assert.Equal(t, TaskTypePrayer, kept.Type)
	assert.Equal(t, FrequencyWeekly, kept.Frequency)
}

func TestDeletable(t *testing.T) {
	for _, task := range DefaultTasks() {
		assert.False(t, task.Deletable(), task.Name)
	}
	assert.True(t, Task{ID: 10, Name: "x"}.Deletable())
	assert.False(t, Task{ID: 11, Name: "y", IsObligatory: true}.Deletable())
}

func TestHistory(t *testing.T) {
	h := History{
		"2024-01-02": {1: true, 2: false},
		"2024-01-01": {1: true},
	}
	assert.True(t, h.Completed("2024-01-02", 1))
	assert.False(t, h.Completed("2024-01-02", 2))
	assert.False(t, h.Completed("2024-01-02", 3))
	assert.False(t, h.Completed("2023-12-31", 1))
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, h.Dates())

	b, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2024-01-01":{"1":true},"2024-01-02":{"1":true,"2":false}}`, string(b))

	clone := h.Clone()
	clone["2024-01-01"][1] = false
	assert.True(t, h.Completed("2024-01-01", 1))
}

func TestDateKey(t *testing.T) {
	d := time.Date(2024, 2, 9, 23, 59, 0, 0, time.Local)
	assert.Equal(t, "2024-02-09", DateKey(d))

	parsed, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 29, parsed.Day())

	_, err = ParseDate("2023-02-29")
	assert.Error(t, err)
}

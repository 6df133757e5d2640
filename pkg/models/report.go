package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPeriod = errors.New("invalid report period")

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
	// PeriodCustom marks reports built over an explicit day window.
	PeriodCustom Period = "custom"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// Grade is a letter grade with its display color.
type Grade struct {
	Letter string `json:"grade"`
	Color  string `json:"color"`
}

var gradeScale = []struct {
	min   int
	grade Grade
}{
	{90, Grade{"A+", "#4CAF50"}},
	{80, Grade{"A", "#8BC34A"}},
	{70, Grade{"B+", "#FFC107"}},
	{60, Grade{"B", "#FF9800"}},
	{50, Grade{"C", "#FF5722"}},
}

var gradeF = Grade{"F", "#f44336"}

// GradeFor maps a percentage onto the letter scale; bounds are inclusive.
func GradeFor(percentage int) Grade {
	for _, step := range gradeScale {
		if percentage >= step.min {
			return step.grade
		}
	}
	return gradeF
}

// Percent returns round-half-up(part/whole*100), or 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (part*200 + whole) / (2 * whole)
}

type TaskStats struct {
	CompletedDays int `json:"completedDays"`
	TotalDays     int `json:"totalDays"`
	Percentage    int `json:"percentage"`
}

type TaskReport struct {
	Task
	TaskStats
	Grade Grade `json:"grade"`
}

type TypeStats struct {
	Tasks       int   `json:"tasks"`
	Completions int   `json:"completions"`
	Possible    int   `json:"possible"`
	Percentage  int   `json:"percentage"`
	Grade       Grade `json:"grade"`
}

type OverallStats struct {
	TotalTasks        int                    `json:"totalTasks"`
	CompletedTasks    int                    `json:"completedTasks"`
	PossibleTasks     int                    `json:"possibleTasks"`
	OverallPercentage int                    `json:"overallPercentage"`
	Grade             Grade                  `json:"grade"`
	TypeStats         map[TaskType]TypeStats `json:"typeStats"`
}

type Report struct {
	Period    Period       `json:"period"`
	StartDate string       `json:"startDate"`
	EndDate   string       `json:"endDate"`
	TotalDays int          `json:"totalDays"`
	HasData   bool         `json:"hasData"`
	Tasks     []TaskReport `json:"tasks"`
	Overall   OverallStats `json:"overallStats"`
}

// DayEntry is one row of the daily tracker.
type DayEntry struct {
	Task      Task      `json:"task"`
	Completed bool      `json:"completed"`
	Stats     TaskStats `json:"stats"`
}

type DaySummary struct {
	Date    string     `json:"date"`
	Entries []DayEntry `json:"entries"`
}

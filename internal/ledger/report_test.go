package ledger

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldi/wird/internal/store"
	"github.com/ldi/wird/pkg/models"
)

func seedTasks(t *testing.T, st *store.Memory, tasksJSON string) {
	t.Helper()
	require.NoError(t, st.Set(context.Background(), store.KeyTasks, tasksJSON))
}

const fajrOnly = `[{"id":1,"name":"Fajr Prayer","type":"prayer","frequency":"daily","isDefault":true,"isObligatory":true}]`

func TestComputeTaskStats_FajrScenario(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedTasks(t, st, fajrOnly)
	l, _ := newTestLedger(t, st, day(2024, 1, 10))

	for d := 1; d <= 5; d++ {
		_, err := l.Toggle(ctx, 1, fmt.Sprintf("2024-01-%02d", d))
		require.NoError(t, err)
	}

	stats, err := l.ComputeTaskStats(1, 10)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStats{CompletedDays: 5, TotalDays: 10, Percentage: 50}, stats)

	report, err := l.GenerateReportWindow(10)
	require.NoError(t, err)
	require.Len(t, report.Tasks, 1)
	assert.Equal(t, "C", report.Tasks[0].Grade.Letter)
	assert.Equal(t, "C", report.Overall.Grade.Letter)
	assert.Equal(t, "2024-01-01", report.StartDate)
	assert.Equal(t, "2024-01-10", report.EndDate)
	assert.Equal(t, models.PeriodCustom, report.Period)
}

func TestComputeTaskStats_KOfThirty(t *testing.T) {
	ctx := context.Background()

	for _, k := range []int{0, 1, 2, 7, 15, 29, 30} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			l, clock := newTestLedger(t, store.NewMemory(), day(2024, 3, 5))
			for i := 0; i < k; i++ {
				date := models.DateKey(clock.Now().AddDate(0, 0, -i))
				_, err := l.Toggle(ctx, 8, date)
				require.NoError(t, err)
			}
			// Completions outside the window do not count.
			_, err := l.Toggle(ctx, 8, models.DateKey(clock.Now().AddDate(0, 0, -30)))
			require.NoError(t, err)

			stats, err := l.ComputeTaskStats(8, 30)
			require.NoError(t, err)
			assert.Equal(t, k, stats.CompletedDays)
			assert.Equal(t, 30, stats.TotalDays)
			assert.Equal(t, models.Percent(k, 30), stats.Percentage)
		})
	}
}

func TestComputeTaskStats_ExplicitFalseCountsAsMissed(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, store.NewMemory(), day(2024, 1, 10))

	_, _ = l.Toggle(ctx, 1, "2024-01-10")
	_, _ = l.Toggle(ctx, 1, "2024-01-10")
	_, _ = l.Toggle(ctx, 1, "2024-01-09")

	stats, err := l.ComputeTaskStats(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CompletedDays)
	assert.Equal(t, 50, stats.Percentage)
}

func TestComputeTaskStats_InvalidWindow(t *testing.T) {
	l, _ := newTestLedger(t, store.NewMemory(), day(2024, 1, 10))

	_, err := l.ComputeTaskStats(1, 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)
	_, err = l.GenerateReportWindow(-3)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestComputeTaskStats_WindowUpperBound(t *testing.T) {
	l, _ := newTestLedger(t, store.NewMemory(), day(2024, 1, 10))

	stats, err := l.ComputeTaskStats(1, MaxWindowDays)
	require.NoError(t, err)
	assert.Equal(t, MaxWindowDays, stats.TotalDays)

	report, err := l.GenerateReportWindow(MaxWindowDays)
	require.NoError(t, err)
	assert.Equal(t, MaxWindowDays, report.TotalDays)

	for _, days := range []int{MaxWindowDays + 1, 1_000_000_000, math.MaxInt} {
		_, err = l.ComputeTaskStats(1, days)
		assert.ErrorIs(t, err, ErrInvalidWindow, "stats %d", days)
		_, err = l.GenerateReportWindow(days)
		assert.ErrorIs(t, err, ErrInvalidWindow, "report %d", days)
	}
}

func TestGenerateReport_WeekWithoutCompletions(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, store.NewMemory(), day(2024, 1, 10))

	// An explicit false is still not a completion.
	_, _ = l.ToggleToday(ctx, 1)
	_, _ = l.ToggleToday(ctx, 1)

	report, err := l.GenerateReport(models.PeriodWeek)
	require.NoError(t, err)

	assert.Equal(t, 7, report.TotalDays)
	assert.Equal(t, "2024-01-04", report.StartDate)
	assert.Equal(t, "2024-01-10", report.EndDate)
	assert.Equal(t, 0, report.Overall.OverallPercentage)
	assert.Equal(t, "F", report.Overall.Grade.Letter)
	assert.Equal(t, 9, report.Overall.TotalTasks)
	assert.Equal(t, 63, report.Overall.PossibleTasks)
	for _, row := range report.Tasks {
		assert.Equal(t, "F", row.Grade.Letter, row.Name)
	}
	require.Len(t, report.Overall.TypeStats, 3)
	for tt, ts := range report.Overall.TypeStats {
		assert.Equal(t, 0, ts.Percentage, tt)
		assert.Equal(t, "F", ts.Grade.Letter, tt)
	}
}

func TestGenerateReport_Month(t *testing.T) {
	l, _ := newTestLedger(t, store.NewMemory(), day(2024, 3, 1))

	report, err := l.GenerateReport(models.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, 30, report.TotalDays)
	assert.Equal(t, "2024-02-01", report.StartDate)
	assert.Equal(t, "2024-03-01", report.EndDate)
	assert.False(t, report.HasData)
}

func TestGenerateReport_AllOnEmptyHistory(t *testing.T) {
	l, _ := newTestLedger(t, store.NewMemory(), day(2024, 1, 10))

	report, err := l.GenerateReport(models.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 30, report.TotalDays)
	assert.Equal(t, "2023-12-12", report.StartDate)
	assert.Equal(t, "2024-01-10", report.EndDate)
	assert.Equal(t, 0, report.Overall.OverallPercentage)
}

func TestGenerateReport_AllStartsAtEarliestDate(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, store.NewMemory(), day(2024, 3, 10))

	_, _ = l.Toggle(ctx, 1, "2024-03-01")
	_, _ = l.Toggle(ctx, 1, "2024-02-25")

	report, err := l.GenerateReport(models.PeriodAll)
	require.NoError(t, err)
	// 2024-02-25 through 2024-03-10 across a leap day.
	assert.Equal(t, 15, report.TotalDays)
	assert.Equal(t, "2024-02-25", report.StartDate)
	assert.Equal(t, 2, report.Tasks[0].CompletedDays)
	assert.Equal(t, 13, report.Tasks[0].Percentage)
	assert.True(t, report.HasData)
}

func TestGenerateReport_AllIgnoresFutureOnlyHistory(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, store.NewMemory(), day(2024, 3, 10))

	_, _ = l.Toggle(ctx, 1, "2024-04-01")

	report, err := l.GenerateReport(models.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 30, report.TotalDays)
}

func TestGenerateReport_InvalidPeriod(t *testing.T) {
	l, _ := newTestLedger(t, store.NewMemory(), day(2024, 1, 10))

	_, err := l.GenerateReport("year")
	assert.ErrorIs(t, err, models.ErrInvalidPeriod)
	_, err = l.GenerateReport(models.PeriodCustom)
	assert.ErrorIs(t, err, models.ErrInvalidPeriod)
}

func TestGenerateReport_TypeAggregation(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedTasks(t, st, `[
		{"id":1,"name":"Fajr Prayer","type":"prayer","frequency":"daily","isDefault":true,"isObligatory":true},
		{"id":2,"name":"Dhuhr Prayer","type":"prayer","frequency":"daily","isDefault":true,"isObligatory":true},
		{"id":3,"name":"Morning Azkar","type":"zikr","frequency":"daily","isDefault":true,"isObligatory":false}
	]`)
	l, _ := newTestLedger(t, st, day(2024, 1, 10))

	_, _ = l.Toggle(ctx, 1, "2024-01-09")
	_, _ = l.Toggle(ctx, 1, "2024-01-10")
	_, _ = l.Toggle(ctx, 3, "2024-01-10")

	report, err := l.GenerateReportWindow(2)
	require.NoError(t, err)

	want := map[models.TaskType]models.TypeStats{
		models.TaskTypePrayer: {Tasks: 2, Completions: 2, Possible: 4, Percentage: 50, Grade: models.GradeFor(50)},
		models.TaskTypeZikr:   {Tasks: 1, Completions: 1, Possible: 2, Percentage: 50, Grade: models.GradeFor(50)},
		models.TaskTypeOther:  {Tasks: 0, Completions: 0, Possible: 0, Percentage: 0, Grade: models.GradeFor(0)},
	}
	if diff := cmp.Diff(want, report.Overall.TypeStats); diff != "" {
		t.Errorf("type stats mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 3, report.Overall.CompletedTasks)
	assert.Equal(t, 6, report.Overall.PossibleTasks)
	assert.Equal(t, 50, report.Overall.OverallPercentage)

	require.Len(t, report.Tasks, 3)
	assert.Equal(t, 100, report.Tasks[0].Percentage)
	assert.Equal(t, "A+", report.Tasks[0].Grade.Letter)
	assert.Equal(t, 0, report.Tasks[1].Percentage)
	assert.Equal(t, "F", report.Tasks[1].Grade.Letter)
}

func TestGenerateReport_EmptyCatalog(t *testing.T) {
	st := store.NewMemory()
	seedTasks(t, st, `[]`)
	l, _ := newTestLedger(t, st, day(2024, 1, 10))

	report, err := l.GenerateReport(models.PeriodWeek)
	require.NoError(t, err)
	assert.Empty(t, report.Tasks)
	assert.Equal(t, 0, report.Overall.PossibleTasks)
	assert.Equal(t, 0, report.Overall.OverallPercentage)
	assert.Equal(t, "F", report.Overall.Grade.Letter)
}

func TestDaySummary(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seedTasks(t, st, fajrOnly)
	l, _ := newTestLedger(t, st, day(2024, 1, 10))

	_, _ = l.Toggle(ctx, 1, "2024-01-08")
	_, _ = l.ToggleToday(ctx, 1)

	summary, err := l.DaySummary(l.Today())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", summary.Date)
	require.Len(t, summary.Entries, 1)
	assert.True(t, summary.Entries[0].Completed)
	assert.Equal(t, models.TaskStats{CompletedDays: 2, TotalDays: 30, Percentage: 7}, summary.Entries[0].Stats)

	_, err = l.DaySummary("yesterday")
	assert.Error(t, err)
}

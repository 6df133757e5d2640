package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ldi/wird/internal/ledger"
	"github.com/ldi/wird/internal/qibla"
	"github.com/ldi/wird/pkg/models"
)

// NewServer creates a new MCP server exposing the ledger as tools.
func NewServer(l *ledger.Ledger, log *zap.Logger) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("mcp")

	s := server.NewMCPServer("Wird", "0.1.0")

	// Catalog
	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tracked tasks in catalog order."),
		mcp.WithString("type", mcp.Description("Filter by type (prayer|zikr|other)")),
	), listTasksHandler(l))

	s.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add a custom task to the catalog."),
		mcp.WithString("name", mcp.Description("Task name"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("type", mcp.Description("Task type (prayer|zikr|other, defaults to other)")),
		mcp.WithString("frequency", mcp.Description("Frequency (daily|weekly|monthly, defaults to daily)")),
	), addTaskHandler(l, log))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a custom task and its history. Default and obligatory tasks are protected."),
		mcp.WithNumber("id", mcp.Description("Task ID"), mcp.Required()),
	), deleteTaskHandler(l, log))

	// History
	s.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Flip the completion state of a task on a date."),
		mcp.WithNumber("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD (defaults to today)")),
	), toggleTaskHandler(l))

	s.AddTool(mcp.NewTool("is_completed",
		mcp.WithDescription("Check whether a task is completed on a date."),
		mcp.WithNumber("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD (defaults to today)")),
	), isCompletedHandler(l))

	s.AddTool(mcp.NewTool("cleanup_history",
		mcp.WithDescription("Remove history older than the retention period."),
	), cleanupHistoryHandler(l))

	// Reports
	s.AddTool(mcp.NewTool("task_stats",
		mcp.WithDescription("Completion stats for one task over a trailing window."),
		mcp.WithNumber("id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithNumber("days", mcp.Description("Window size in days (defaults to 30)")),
	), taskStatsHandler(l))

	s.AddTool(mcp.NewTool("generate_report",
		mcp.WithDescription("Graded report across all tasks."),
		mcp.WithString("period", mcp.Description("week|month|all (defaults to week)")),
		mcp.WithNumber("days", mcp.Description("Custom window in days; overrides period")),
	), generateReportHandler(l))

	s.AddTool(mcp.NewTool("qibla_bearing",
		mcp.WithDescription("Bearing towards the Kaaba from a location, in degrees from true north."),
		mcp.WithNumber("latitude", mcp.Description("Latitude in degrees"), mcp.Required()),
		mcp.WithNumber("longitude", mcp.Description("Longitude in degrees"), mcp.Required()),
	), qiblaBearingHandler())

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func hasArg(request mcp.CallToolRequest, key string) bool {
	args, _ := request.Params.Arguments.(map[string]any)
	_, ok := args[key]
	return ok
}

// dateArg returns the date argument or today, validated.
func dateArg(l *ledger.Ledger, request mcp.CallToolRequest) (string, error) {
	date := mcp.ParseString(request, "date", "")
	if date == "" {
		return l.Today(), nil
	}
	if _, err := models.ParseDate(date); err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return date, nil
}

func listTasksHandler(l *ledger.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var filter *models.TaskType
		if raw := mcp.ParseString(request, "type", ""); raw != "" {
			tt, err := models.ParseTaskType(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			filter = &tt
		}
		return jsonResult(map[string]any{"tasks": l.ListTasks(filter)})
	}
}

func addTaskHandler(l *ledger.Ledger, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := mcp.ParseString(request, "name", "")
		description := mcp.ParseString(request, "description", "")
		typ := models.TaskType(mcp.ParseString(request, "type", ""))
		frequency := models.Frequency(mcp.ParseString(request, "frequency", ""))

		task, err := l.AddTask(ctx, name, description, frequency, typ)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.Info("task added", zap.Int("task_id", task.ID), zap.String("name", task.Name))
		return jsonResult(task)
	}
}

func deleteTaskHandler(l *ledger.Ledger, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseInt(request, "id", 0)

		task, ok := l.Task(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Task %d not found", id)), nil
		}
		if !l.DeleteTask(ctx, id) {
			return mcp.NewToolResultError(fmt.Sprintf("Task '%s' is protected and cannot be deleted", task.Name)), nil
		}
		log.Info("task deleted", zap.Int("task_id", id))
		return mcp.NewToolResultText(fmt.Sprintf("Task '%s' deleted", task.Name)), nil
	}
}

func toggleTaskHandler(l *ledger.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseInt(request, "id", 0)
		date, err := dateArg(l, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		completed, err := l.Toggle(ctx, id, date)
		if err != nil {
			if errors.Is(err, ledger.ErrTaskNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("Task %d not found", id)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"id": id, "date": date, "completed": completed})
	}
}

func isCompletedHandler(l *ledger.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseInt(request, "id", 0)
		date, err := dateArg(l, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"id": id, "date": date, "completed": l.IsCompleted(id, date)})
	}
}

func cleanupHistoryHandler(l *ledger.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cutoff := l.RetentionCutoff()
		removed := l.CleanupOlderThan(ctx, cutoff)
		return jsonResult(map[string]any{"cutoff": cutoff, "removed": removed})
	}
}

func taskStatsHandler(l *ledger.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseInt(request, "id", 0)
		days := mcp.ParseInt(request, "days", 30)

		task, ok := l.Task(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Task %d not found", id)), nil
		}
		stats, err := l.ComputeTaskStats(id, days)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(models.TaskReport{Task: task, TaskStats: stats, Grade: models.GradeFor(stats.Percentage)})
	}
}

func generateReportHandler(l *ledger.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var (
			report models.Report
			err    error
		)
		if hasArg(request, "days") {
			report, err = l.GenerateReportWindow(mcp.ParseInt(request, "days", 0))
		} else {
			var period models.Period
			period, err = models.ParsePeriod(mcp.ParseString(request, "period", string(models.PeriodWeek)))
			if err == nil {
				report, err = l.GenerateReport(period)
			}
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(report)
	}
}

func qiblaBearingHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !hasArg(request, "latitude") || !hasArg(request, "longitude") {
			return mcp.NewToolResultError("latitude and longitude are required"), nil
		}
		lat := mcp.ParseFloat64(request, "latitude", 0)
		lng := mcp.ParseFloat64(request, "longitude", 0)

		bearing, err := qibla.Bearing(lat, lng)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"bearing": bearing, "compass": qibla.Compass(bearing)})
	}
}

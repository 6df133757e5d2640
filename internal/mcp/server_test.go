package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldi/wird/internal/ledger"
	"github.com/ldi/wird/internal/store"
	"github.com/ldi/wird/pkg/models"
)

func newTestServer(t *testing.T) (*server.MCPServer, *ledger.Ledger) {
	t.Helper()
	clock := ledger.NewFakeClock(time.Date(2024, 1, 10, 9, 30, 0, 0, time.Local))
	l := ledger.New(store.NewMemory(), ledger.WithClock(clock))
	l.Load(context.Background())
	t.Cleanup(func() { l.Close(context.Background()) })
	return NewServer(l, nil), l
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "tool %s not registered", name)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return result.Content[0].(mcp.TextContent).Text
}

func TestServerInitialization(t *testing.T) {
	s, _ := newTestServer(t)
	stdio := server.NewStdioServer(s)

	r, w := io.Pipe()
	stdout := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- stdio.Listen(ctx, r, stdout)
	}()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "test-client", Version: "1.0.0"}

	data, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  initReq.Params,
	})
	require.NoError(t, err)
	w.Write(append(data, '\n'))

	time.Sleep(200 * time.Millisecond)
	require.NotZero(t, stdout.Len(), "expected response from server")

	var resp struct {
		ID     int `json:"id"`
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp), stdout.String())
	assert.Equal(t, 1, resp.ID)
	assert.Equal(t, "Wird", resp.Result.ServerInfo.Name)

	cancel()
	w.Close()
	<-errChan
}

func TestListTasks(t *testing.T) {
	s, _ := newTestServer(t)

	var out struct {
		Tasks []models.Task `json:"tasks"`
	}
	result := call(t, s, "list_tasks", nil)
	require.False(t, result.IsError)
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
	assert.Len(t, out.Tasks, 9)

	result = call(t, s, "list_tasks", map[string]any{"type": "zikr"})
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
	require.Len(t, out.Tasks, 2)
	assert.Equal(t, "Morning Azkar", out.Tasks[0].Name)

	result = call(t, s, "list_tasks", map[string]any{"type": "sport"})
	assert.True(t, result.IsError)
}

func TestAddAndDeleteTask(t *testing.T) {
	s, l := newTestServer(t)

	result := call(t, s, "add_task", map[string]any{"name": "  Walk ", "frequency": "weekly"})
	require.False(t, result.IsError, text(t, result))

	var task models.Task
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &task))
	assert.Equal(t, 10, task.ID)
	assert.Equal(t, "Walk", task.Name)
	assert.Equal(t, models.TaskTypeOther, task.Type)
	assert.Equal(t, models.FrequencyWeekly, task.Frequency)

	result = call(t, s, "add_task", map[string]any{"name": "   "})
	assert.True(t, result.IsError)

	result = call(t, s, "delete_task", map[string]any{"id": 1})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "protected")

	result = call(t, s, "delete_task", map[string]any{"id": 99})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "not found")

	result = call(t, s, "delete_task", map[string]any{"id": float64(10)})
	require.False(t, result.IsError, text(t, result))
	_, ok := l.Task(10)
	assert.False(t, ok)
}

func TestToggleAndIsCompleted(t *testing.T) {
	s, l := newTestServer(t)

	result := call(t, s, "toggle_task", map[string]any{"id": 1})
	require.False(t, result.IsError, text(t, result))
	assert.JSONEq(t, `{"id":1,"date":"2024-01-10","completed":true}`, text(t, result))
	assert.True(t, l.IsCompletedToday(1))

	result = call(t, s, "toggle_task", map[string]any{"id": 2, "date": "2024-01-05"})
	require.False(t, result.IsError)
	assert.True(t, l.IsCompleted(2, "2024-01-05"))

	result = call(t, s, "is_completed", map[string]any{"id": 2, "date": "2024-01-05"})
	assert.JSONEq(t, `{"id":2,"date":"2024-01-05","completed":true}`, text(t, result))

	result = call(t, s, "toggle_task", map[string]any{"id": 42})
	assert.True(t, result.IsError)

	result = call(t, s, "toggle_task", map[string]any{"id": 1, "date": "05/01/2024"})
	assert.True(t, result.IsError)
}

func TestTaskStatsAndReport(t *testing.T) {
	s, l := newTestServer(t)
	ctx := context.Background()

	for _, d := range []string{"2024-01-09", "2024-01-10"} {
		_, err := l.Toggle(ctx, 1, d)
		require.NoError(t, err)
	}

	result := call(t, s, "task_stats", map[string]any{"id": 1, "days": 4})
	require.False(t, result.IsError, text(t, result))
	var row models.TaskReport
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &row))
	assert.Equal(t, 2, row.CompletedDays)
	assert.Equal(t, 4, row.TotalDays)
	assert.Equal(t, 50, row.Percentage)
	assert.Equal(t, "C", row.Grade.Letter)

	result = call(t, s, "task_stats", map[string]any{"id": 77})
	assert.True(t, result.IsError)

	result = call(t, s, "generate_report", nil)
	require.False(t, result.IsError, text(t, result))
	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &report))
	assert.Equal(t, models.PeriodWeek, report.Period)
	assert.Equal(t, 7, report.TotalDays)
	assert.True(t, report.HasData)

	result = call(t, s, "generate_report", map[string]any{"days": 2})
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &report))
	assert.Equal(t, models.PeriodCustom, report.Period)
	assert.Equal(t, 2, report.TotalDays)

	result = call(t, s, "generate_report", map[string]any{"period": "decade"})
	assert.True(t, result.IsError)
}

func TestCleanupHistory(t *testing.T) {
	s, l := newTestServer(t)
	ctx := context.Background()

	_, err := l.Toggle(ctx, 1, "2023-01-01")
	require.NoError(t, err)

	result := call(t, s, "cleanup_history", nil)
	require.False(t, result.IsError)
	assert.JSONEq(t, `{"cutoff":"2023-10-10","removed":1}`, text(t, result))
	assert.False(t, l.IsCompleted(1, "2023-01-01"))
}

func TestQiblaBearing(t *testing.T) {
	s, _ := newTestServer(t)

	result := call(t, s, "qibla_bearing", map[string]any{"latitude": 51.5074, "longitude": -0.1278})
	require.False(t, result.IsError, text(t, result))
	var out struct {
		Bearing float64 `json:"bearing"`
		Compass string  `json:"compass"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
	assert.InDelta(t, 119.0, out.Bearing, 0.5)
	assert.Equal(t, "ESE", out.Compass)

	result = call(t, s, "qibla_bearing", map[string]any{"latitude": 120.0, "longitude": 0.0})
	assert.True(t, result.IsError)

	result = call(t, s, "qibla_bearing", map[string]any{"latitude": 10.0})
	assert.True(t, result.IsError)
}

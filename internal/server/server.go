package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ldi/wird/internal/ledger"
	"github.com/ldi/wird/internal/metrics"
	"github.com/ldi/wird/pkg/models"
)

const defaultStatsDays = 30

type Server struct {
	ledger  *ledger.Ledger
	metrics *metrics.Metrics
	log     *zap.Logger
	server  *http.Server
}

func NewServer(l *ledger.Ledger, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{ledger: l, metrics: m, log: log.Named("http")}
	s.server = &http.Server{Handler: s.Handler()}
	return s
}

// Handler routes the JSON API and the metrics endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleAddTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/toggle", s.handleToggle)
	mux.HandleFunc("GET /api/tasks/{id}/stats", s.handleStats)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/today", s.handleToday)

	mux.Handle("GET /metrics", s.metrics.Handler())

	return mux
}

// Start listens on addr until Shutdown. It returns http.ErrServerClosed
// immediately if Shutdown already ran.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info("listening", zap.String("addr", ln.Addr().String()))
	return s.server.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var filter *models.TaskType
	if raw := r.URL.Query().Get("type"); raw != "" {
		tt, err := models.ParseTaskType(raw)
		if err != nil {
			s.fail(w, http.StatusBadRequest, err)
			return
		}
		filter = &tt
	}
	s.respond(w, http.StatusOK, s.ledger.ListTasks(filter))
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Frequency   string `json:"frequency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	task, err := s.ledger.AddTask(r.Context(), req.Name, req.Description, models.Frequency(req.Frequency), models.TaskType(req.Type))
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	s.respond(w, http.StatusCreated, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.task(w, r)
	if !ok {
		return
	}
	if !s.ledger.DeleteTask(r.Context(), task.ID) {
		s.fail(w, http.StatusConflict, errors.New("task is protected and cannot be deleted"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	task, ok := s.task(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = s.ledger.Today()
	}

	completed, err := s.ledger.Toggle(r.Context(), task.ID, date)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ledger.ErrTaskNotFound) {
			status = http.StatusNotFound
		}
		s.fail(w, status, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"id": task.ID, "date": date, "completed": completed})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	task, ok := s.task(w, r)
	if !ok {
		return
	}
	days := defaultStatsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, http.StatusBadRequest, err)
			return
		}
		days = n
	}

	stats, err := s.ledger.ComputeTaskStats(task.ID, days)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	s.respond(w, http.StatusOK, models.TaskReport{Task: task, TaskStats: stats, Grade: models.GradeFor(stats.Percentage)})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		report models.Report
		err    error
	)
	if raw := q.Get("days"); raw != "" {
		var days int
		days, err = strconv.Atoi(raw)
		if err == nil {
			report, err = s.ledger.GenerateReportWindow(days)
		}
	} else {
		period := models.PeriodWeek
		if raw := q.Get("period"); raw != "" {
			period, err = models.ParsePeriod(raw)
		}
		if err == nil {
			report, err = s.ledger.GenerateReport(period)
		}
	}
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	s.respond(w, http.StatusOK, report)
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.DaySummary(s.ledger.Today())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, summary)
}

// task resolves the {id} path value, writing 400 or 404 when it cannot.
func (s *Server) task(w http.ResponseWriter, r *http.Request) (models.Task, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, errors.New("task id must be an integer"))
		return models.Task{}, false
	}
	task, ok := s.ledger.Task(id)
	if !ok {
		s.fail(w, http.StatusNotFound, ledger.ErrTaskNotFound)
		return models.Task{}, false
	}
	return task, true
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.respond(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err))
	}
}

// Package httpapi is a thin HTTP collaborator over the scheduling
// kernel's driver API. It exposes health/metrics and a single POST /schedule endpoint
// that runs a named fixture through the deterministic scheduler and
// returns the computed bookings as JSON — it is not a general project
// file format endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scriptplanner/scriptplan/internal/account"
	"github.com/scriptplanner/scriptplan/internal/driver"
	"github.com/scriptplanner/scriptplan/internal/fixture"
	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/internal/schedmetrics"
	"github.com/scriptplanner/scriptplan/internal/timesheet"
	"github.com/scriptplanner/scriptplan/pkg/observability"
)

// Server is the HTTP collaborator for the scheduling kernel.
type Server struct {
	log            *slog.Logger
	metricsEnabled bool
	metrics        *observability.PrometheusMetrics
	health         *observability.HealthRegistry
}

// NewServer creates an HTTP collaborator. log may be nil, in which
// case slog.Default() is used.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		log:     log,
		metrics: observability.NewPrometheusMetrics(prometheus.NewRegistry()),
		health:  observability.NewHealthRegistry(),
	}
	// A server with no registered fixtures can't schedule anything.
	s.health.Register("fixtures", func(ctx context.Context) observability.HealthCheckResult {
		if len(fixture.Names()) == 0 {
			return observability.HealthCheckResult{Status: observability.HealthStatusUnhealthy, Message: "no fixtures registered"}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
	})
	return s
}

// RegisterHealthCheck adds a component probe to /healthz, e.g. a
// journal-store ping from the serve command.
func (s *Server) RegisterHealthCheck(name string, checker observability.HealthChecker) {
	s.health.Register(name, checker)
}

// EnableMetrics turns on the /metrics Prometheus endpoint, backed by
// the same registry used to record per-run scheduler metrics.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		overall := s.health.Check(req.Context())
		status := http.StatusOK
		if overall.Status == observability.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, overall)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Get("/fixtures", s.handleListFixtures)
	r.Post("/schedule", s.handleSchedule)

	return r
}

type scheduleRequest struct {
	Fixture  string `json:"fixture"`
	Scenario int    `json:"scenario"`
}

type taskBooking struct {
	Path      string `json:"path"`
	Scheduled bool   `json:"scheduled"`
	Start     string `json:"start,omitempty"`
	End       string `json:"end,omitempty"`
}

type costLine struct {
	Resource string  `json:"resource"`
	Hours    float64 `json:"hours"`
	Rate     float64 `json:"rate"`
	Cost     float64 `json:"cost"`
}

type timesheetRow struct {
	Resource string  `json:"resource"`
	Task     string  `json:"task"`
	Day      string  `json:"day"`
	Hours    float64 `json:"hours"`
}

type scheduleResponse struct {
	Scenario  int            `json:"scenario"`
	Scheduled int            `json:"scheduled"`
	Warnings  []string       `json:"warnings"`
	Tasks     []taskBooking  `json:"tasks"`
	Costs     []costLine     `json:"costs,omitempty"`
	Timesheet []timesheetRow `json:"timesheet,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func (s *Server) handleListFixtures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"fixtures": fixture.Names()})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Fixture == "" {
		req.Fixture = "heatup"
	}

	proj, err := fixture.Named(req.Fixture)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	res, runErr := driver.Schedule(r.Context(), proj, model.ScenarioIndex(req.Scenario), s.log)
	schedmetrics.Record(s.metrics, req.Fixture, proj, res, runErr)

	resp := scheduleResponse{Scenario: req.Scenario}
	if runErr != nil {
		resp.Error = runErr.Error()
	}
	if res == nil {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	for _, w := range res.Warnings {
		resp.Warnings = append(resp.Warnings, w.Message)
	}
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() || int(res.Scenario) >= len(t.PerScenario) {
			continue
		}
		a := &t.PerScenario[res.Scenario]
		tb := taskBooking{Path: t.Path, Scheduled: a.Scheduled}
		if a.Scheduled {
			tb.Start = a.Start.Format(time.RFC3339)
			tb.End = a.End.Format(time.RFC3339)
			resp.Scheduled++
		}
		resp.Tasks = append(resp.Tasks, tb)
	}

	if res.Boards != nil {
		rep := account.Rollup(proj, res.Scenario, res.Boards)
		for _, e := range rep.Entries {
			resp.Costs = append(resp.Costs, costLine{
				Resource: proj.Resource(e.Resource).Path,
				Hours:    e.BookedHours,
				Rate:     e.Rate,
				Cost:     e.Cost,
			})
		}
		for _, row := range timesheet.Flatten(res.Index, res.Boards) {
			resp.Timesheet = append(resp.Timesheet, timesheetRow{
				Resource: proj.Resource(row.Resource).Path,
				Task:     proj.Task(row.Task).Path,
				Day:      row.Day.Format("2006-01-02"),
				Hours:    row.Hours,
			})
		}
	}

	status := http.StatusOK
	if runErr != nil {
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Package grpcapi exposes the driver API over gRPC. There is no
// .proto file checked into this repository, so request/response
// payloads use google.golang.org/protobuf/types/known/structpb.Struct
// — a real, already-compiled proto.Message — instead of fabricating
// generated stubs. The ServiceDesc below is hand-declared rather than
// protoc-generated; the wire shape (a JSON-like struct of named
// fields) is documented on Schedule and ScheduleAll.
package grpcapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/scriptplanner/scriptplan/internal/account"
	"github.com/scriptplanner/scriptplan/internal/driver"
	"github.com/scriptplanner/scriptplan/internal/fixture"
	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/internal/timesheet"
)

// Service implements the scriptplan driver RPC surface.
type Service struct {
	log *slog.Logger
}

// NewService constructs a Service. log may be nil.
func NewService(log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log}
}

// Schedule runs the deterministic scheduler over one scenario of a
// named fixture project. Request fields: "fixture" (string, optional,
// defaults to "heatup"), "scenario" (number, optional, defaults to 0).
// Response fields: "scenario", "scheduled_count", "warnings" (list of
// string), "error" (string, present on scheduling failure).
func (s *Service) Schedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fixtureName := stringField(req, "fixture", "heatup")
	scenario := model.ScenarioIndex(intField(req, "scenario", 0))

	proj, err := fixture.Named(fixtureName)
	if err != nil {
		return nil, err
	}

	res, runErr := driver.Schedule(ctx, proj, scenario, s.log)
	return resultToStruct(proj, res, runErr)
}

// ScheduleAll runs the scenarios driver.ScheduleAll selects for a named
// fixture project and returns their responses as a list, in run order,
// under the "scenarios" field; each entry carries its own "scenario"
// index unless that run returned no result.
func (s *Service) ScheduleAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fixtureName := stringField(req, "fixture", "heatup")

	proj, err := fixture.Named(fixtureName)
	if err != nil {
		return nil, err
	}

	results, errs := driver.ScheduleAll(ctx, proj, s.log)
	scenarios := make([]any, 0, len(results))
	for i, res := range results {
		var runErr error
		if i < len(errs) {
			runErr = errs[i]
		}
		sv, err := resultToStruct(proj, res, runErr)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sv.AsMap())
	}

	return structpb.NewStruct(map[string]any{
		"scenarios": scenarios,
	})
}

func resultToStruct(proj *model.Project, res *driver.Result, runErr error) (*structpb.Struct, error) {
	fields := map[string]any{}
	if res == nil {
		fields["error"] = fmt.Sprint(runErr)
		return structpb.NewStruct(fields)
	}

	fields["scenario"] = float64(res.Scenario)
	fields["duration_ms"] = float64(res.Duration.Milliseconds())
	if runErr != nil {
		fields["error"] = runErr.Error()
	}

	warnings := make([]any, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		warnings = append(warnings, w.Message)
	}
	fields["warnings"] = warnings

	tasks := make([]any, 0, len(proj.Tasks))
	scheduled := 0
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() || int(res.Scenario) >= len(t.PerScenario) {
			continue
		}
		a := &t.PerScenario[res.Scenario]
		task := map[string]any{"path": t.Path, "scheduled": a.Scheduled}
		if a.Scheduled {
			task["start"] = a.Start.Format(time.RFC3339)
			task["end"] = a.End.Format(time.RFC3339)
			scheduled++
		}
		tasks = append(tasks, task)
	}
	fields["tasks"] = tasks
	fields["scheduled_count"] = float64(scheduled)

	if res.Boards != nil {
		rep := account.Rollup(proj, res.Scenario, res.Boards)
		costs := make([]any, 0, len(rep.Entries))
		for _, e := range rep.Entries {
			costs = append(costs, map[string]any{
				"resource": proj.Resource(e.Resource).Path,
				"hours":    e.BookedHours,
				"cost":     e.Cost,
			})
		}
		fields["costs"] = costs
		fields["total_cost"] = rep.TotalCost

		rows := timesheet.Flatten(res.Index, res.Boards)
		sheet := make([]any, 0, len(rows))
		for _, row := range rows {
			sheet = append(sheet, map[string]any{
				"resource": proj.Resource(row.Resource).Path,
				"task":     proj.Task(row.Task).Path,
				"day":      row.Day.Format("2006-01-02"),
				"hours":    row.Hours,
			})
		}
		fields["timesheet"] = sheet
	}

	return structpb.NewStruct(fields)
}

func stringField(s *structpb.Struct, name, def string) string {
	if s == nil {
		return def
	}
	if v, ok := s.Fields[name]; ok {
		if str := v.GetStringValue(); str != "" {
			return str
		}
	}
	return def
}

func intField(s *structpb.Struct, name string, def int) int {
	if s == nil {
		return def
	}
	if v, ok := s.Fields[name]; ok {
		return int(v.GetNumberValue())
	}
	return def
}

// ServiceDesc is the hand-declared gRPC service descriptor for
// Service, registered in place of protoc-generated *_grpc.pb.go code.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "scriptplan.driver.v1.Driver",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Schedule", Handler: scheduleHandler},
		{MethodName: "ScheduleAll", Handler: scheduleAllHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scriptplan/driver.proto",
}

func scheduleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	svc := srv.(*Service)
	if interceptor == nil {
		return svc.Schedule(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/scriptplan.driver.v1.Driver/Schedule"}
	handler := func(ctx context.Context, req any) (any, error) {
		return svc.Schedule(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func scheduleAllHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	svc := srv.(*Service)
	if interceptor == nil {
		return svc.ScheduleAll(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/scriptplan.driver.v1.Driver/ScheduleAll"}
	handler := func(ctx context.Context, req any) (any, error) {
		return svc.ScheduleAll(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Register attaches Service to a gRPC server.
func Register(s *grpc.Server, svc *Service) {
	s.RegisterService(&ServiceDesc, svc)
}

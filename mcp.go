// mcp.go exposes the controller as MCP tools so an agent host can drive one
// forecast task: start it, check on it, pause/resume/cancel it, and read the
// normalized result.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// defaultCheckLogLines is how much log check_task returns when unspecified.
const defaultCheckLogLines = 10

// Forecaster runs the synchronous forecast path.
type Forecaster interface {
	Forecast(ctx context.Context, req ForecastRequest) (map[string]any, error)
}

// toolServer holds what the tool handlers share. The controller owns task
// state; the board is only read.
type toolServer struct {
	ctrl       *Controller
	board      *TaskBoard
	forecaster Forecaster
	cfg        Config
}

// newMCPServer registers every tool on a fresh server.
func newMCPServer(ts *toolServer, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "forecastctl", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_task",
		Description: "Start a background farm forecast task. Replaces any task already being tracked. Returns the task id; poll with check_task.",
	}, ts.startTask)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_task",
		Description: "Report the phase, server state and recent log of a task, plus counts across this session. Cheap; call repeatedly.",
	}, ts.checkTask)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_result",
		Description: "Return the normalized forecast result of a completed task: risk categories, data sources and the P1/P2/P3 action plan.",
	}, ts.getResult)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "pause_task",
		Description: "Ask the backend to pause the current task.",
	}, ts.controlTool(OpPause))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "resume_task",
		Description: "Ask the backend to resume the current task.",
	}, ts.controlTool(OpResume))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_task",
		Description: "Ask the backend to cancel the current task.",
	}, ts.controlTool(OpCancel))
	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_forecast",
		Description: "Run a forecast synchronously without a background task and return the normalized result. May take minutes.",
	}, ts.runForecast)

	return server
}

func (ts *toolServer) startTask(ctx context.Context, _ *mcp.CallToolRequest, args StartTaskArgs) (*mcp.CallToolResult, StartTaskOutput, error) {
	id, err := ts.ctrl.Start(ctx, StartRequest{
		Location:            args.Location,
		FarmerEmail:         args.FarmerEmail,
		FarmerPhone:         args.FarmerPhone,
		DaysAhead:           args.DaysAhead,
		UserQuery:           args.UserQuery,
		ConfidenceThreshold: args.ConfidenceThreshold,
		MaxIterations:       args.MaxIterations,
	})
	if err != nil {
		return nil, StartTaskOutput{}, err
	}
	return nil, StartTaskOutput{TaskID: id}, nil
}

func (ts *toolServer) checkTask(_ context.Context, _ *mcp.CallToolRequest, args CheckTaskArgs) (*mcp.CallToolResult, CheckTaskOutput, error) {
	id := args.TaskID
	if id == "" {
		id = ts.board.Latest()
	}
	lines := args.LogLines
	if lines <= 0 {
		lines = defaultCheckLogLines
	}
	out := CheckTaskOutput{
		Summary: ts.board.Summary(),
		Notices: ts.board.Notices(lines),
	}
	if id != "" {
		st, ok := ts.board.Status(id, lines)
		if !ok {
			return nil, CheckTaskOutput{}, fmt.Errorf("task %s was not started in this session", id)
		}
		out.Task = &st
	}
	return nil, out, nil
}

func (ts *toolServer) getResult(_ context.Context, _ *mcp.CallToolRequest, args GetResultArgs) (*mcp.CallToolResult, GetResultOutput, error) {
	id := args.TaskID
	if id == "" {
		id = ts.board.Latest()
	}
	if id == "" {
		return nil, GetResultOutput{}, ErrNoActiveTask
	}
	res, err := ts.board.Result(id)
	if err != nil {
		return nil, GetResultOutput{}, err
	}
	return nil, GetResultOutput{TaskID: id, Result: res}, nil
}

// controlTool builds the handler for one control command. A failed command
// is reported as a tool error; task state is whatever the follow-up poll saw.
func (ts *toolServer) controlTool(op ControlOp) func(context.Context, *mcp.CallToolRequest, ControlTaskArgs) (*mcp.CallToolResult, ControlTaskOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ControlTaskArgs) (*mcp.CallToolResult, ControlTaskOutput, error) {
		var err error
		switch op {
		case OpPause:
			err = ts.ctrl.Pause(ctx)
		case OpResume:
			err = ts.ctrl.Resume(ctx)
		case OpCancel:
			err = ts.ctrl.Cancel(ctx)
		default:
			err = fmt.Errorf("unknown control operation %q", op)
		}
		snap := ts.ctrl.Snapshot()
		return nil, ControlTaskOutput{TaskID: snap.TaskID, State: string(snap.Task.State), Phase: string(snap.Phase)}, err
	}
}

func (ts *toolServer) runForecast(ctx context.Context, _ *mcp.CallToolRequest, args RunForecastArgs) (*mcp.CallToolResult, RunForecastOutput, error) {
	res, err := runForecast(ctx, ts.forecaster, ts.cfg, ForecastRequest{
		Location:    args.Location,
		FarmerEmail: args.FarmerEmail,
		FarmerPhone: args.FarmerPhone,
		DaysAhead:   args.DaysAhead,
		UserQuery:   args.UserQuery,
	})
	if err != nil {
		return nil, RunForecastOutput{}, err
	}
	return nil, RunForecastOutput{Result: res}, nil
}

// runForecast validates, calls the synchronous endpoint and normalizes the
// payload. Shared by the run_forecast tool and the forecast command.
func runForecast(ctx context.Context, f Forecaster, cfg Config, req ForecastRequest) (CanonicalResult, error) {
	req = req.withDefaults(cfg)
	if err := validateRequest(req); err != nil {
		return CanonicalResult{}, err
	}
	raw, err := f.Forecast(ctx, req)
	if err != nil {
		return CanonicalResult{}, fmt.Errorf("forecast request failed: %w", err)
	}
	if raw == nil {
		return CanonicalResult{}, errors.New("forecast reply was empty")
	}
	return Normalize(raw, cfg.DefaultLocation), nil
}

// serveMCP runs the tool server over stdio until the client disconnects or
// ctx ends.
func serveMCP(ctx context.Context, ts *toolServer, version string) error {
	return newMCPServer(ts, version).Run(ctx, &mcp.StdioTransport{})
}

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeForecaster struct {
	raw map[string]any
	err error
	got ForecastRequest
}

func (f *fakeForecaster) Forecast(_ context.Context, req ForecastRequest) (map[string]any, error) {
	f.got = req
	return f.raw, f.err
}

func newTestToolServer(b *fakeBackend, f Forecaster) *toolServer {
	cfg := testConfig()
	board := NewTaskBoard()
	ctrl := NewController(b, board, cfg, nil)
	ctrl.scheduler = &manualScheduler{}
	return &toolServer{ctrl: ctrl, board: board, forecaster: f, cfg: cfg}
}

func TestNewMCPServer(t *testing.T) {
	t.Run("Should register every tool", func(t *testing.T) {
		ts := newTestToolServer(&fakeBackend{}, &fakeForecaster{})
		assert.NotPanics(t, func() { newMCPServer(ts, "test") })
	})
}

func TestToolServer_Tasks(t *testing.T) {
	ctx := context.Background()

	t.Run("Should start a task and report it through check_task", func(t *testing.T) {
		ts := newTestToolServer(&fakeBackend{startID: "t1"}, nil)
		_, out, err := ts.startTask(ctx, nil, StartTaskArgs{Location: "Nashik", FarmerEmail: "a@b.co"})
		require.NoError(t, err)
		assert.Equal(t, "t1", out.TaskID)

		_, check, err := ts.checkTask(ctx, nil, CheckTaskArgs{})
		require.NoError(t, err)
		require.NotNil(t, check.Task)
		assert.Equal(t, "t1", check.Task.ID)
		assert.Equal(t, string(PhasePolling), check.Task.Phase)
		assert.Equal(t, string(StateRunning), check.Task.State)
		assert.NotEmpty(t, check.Task.Log)
		assert.Equal(t, 1, check.Summary.Total)
		assert.Equal(t, 1, check.Summary.Running)
	})

	t.Run("Should reject an invalid start and record nothing", func(t *testing.T) {
		b := &fakeBackend{startID: "t1"}
		ts := newTestToolServer(b, nil)
		_, _, err := ts.startTask(ctx, nil, StartTaskArgs{Location: "Nashik", FarmerEmail: "nope"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)

		_, check, err := ts.checkTask(ctx, nil, CheckTaskArgs{})
		require.NoError(t, err)
		assert.Nil(t, check.Task)
		assert.Zero(t, check.Summary.Total)
	})

	t.Run("Should record a failed start as a notice", func(t *testing.T) {
		ts := newTestToolServer(&fakeBackend{startErr: errors.New("connection refused")}, nil)
		_, _, err := ts.startTask(ctx, nil, StartTaskArgs{Location: "Nashik", FarmerEmail: "a@b.co"})
		require.Error(t, err)

		_, check, err := ts.checkTask(ctx, nil, CheckTaskArgs{})
		require.NoError(t, err)
		require.NotEmpty(t, check.Notices)
		assert.Contains(t, check.Notices[len(check.Notices)-1], "connection refused")
	})

	t.Run("Should fail check_task for an unknown id", func(t *testing.T) {
		ts := newTestToolServer(&fakeBackend{}, nil)
		_, _, err := ts.checkTask(ctx, nil, CheckTaskArgs{TaskID: "nope"})
		assert.Error(t, err)
	})

	t.Run("Should return the result once completed", func(t *testing.T) {
		b := &fakeBackend{startID: "t1", statuses: []statusReply{running()}}
		ts := newTestToolServer(b, nil)
		_, _, err := ts.startTask(ctx, nil, StartTaskArgs{Location: "Nashik", FarmerEmail: "a@b.co"})
		require.NoError(t, err)

		_, _, err = ts.getResult(ctx, nil, GetResultArgs{})
		assert.ErrorIs(t, err, ErrNoResult)

		b.mu.Lock()
		b.statuses = []statusReply{{task: Task{State: StateCompleted, Result: map[string]any{
			"ActionPlan": map[string]any{"P1_CriticalActions": []any{"Irrigate"}},
		}}}}
		b.mu.Unlock()
		ts.ctrl.scheduler.(*manualScheduler).Tick()

		_, out, err := ts.getResult(ctx, nil, GetResultArgs{TaskID: "t1"})
		require.NoError(t, err)
		assert.Equal(t, "t1", out.TaskID)
		assert.Equal(t, "Your Farm", out.Result.Location)
		assert.Equal(t, "Irrigate", out.Result.ActionPlan.P1[0].Title())
	})

	t.Run("Should report no task to get_result before any start", func(t *testing.T) {
		ts := newTestToolServer(&fakeBackend{}, nil)
		_, _, err := ts.getResult(ctx, nil, GetResultArgs{})
		assert.ErrorIs(t, err, ErrNoActiveTask)
	})
}

func TestToolServer_Control(t *testing.T) {
	ctx := context.Background()

	t.Run("Should pause and report the confirmed state", func(t *testing.T) {
		b := &fakeBackend{startID: "t1", controlState: StatePaused, statuses: []statusReply{running(), paused()}}
		ts := newTestToolServer(b, nil)
		_, _, err := ts.startTask(ctx, nil, StartTaskArgs{Location: "Nashik", FarmerEmail: "a@b.co"})
		require.NoError(t, err)

		_, out, err := ts.controlTool(OpPause)(ctx, nil, ControlTaskArgs{})
		require.NoError(t, err)
		assert.Equal(t, "t1", out.TaskID)
		assert.Equal(t, string(StatePaused), out.State)
		assert.Equal(t, string(PhasePolling), out.Phase)
	})

	t.Run("Should do nothing without a task", func(t *testing.T) {
		b := &fakeBackend{}
		ts := newTestToolServer(b, nil)
		_, out, err := ts.controlTool(OpCancel)(ctx, nil, ControlTaskArgs{})
		require.NoError(t, err)
		assert.Empty(t, out.TaskID)
		assert.Equal(t, string(PhaseIdle), out.Phase)
		assert.Empty(t, b.controlCalls)
	})
}

func TestToolServer_RunForecast(t *testing.T) {
	ctx := context.Background()

	t.Run("Should fill defaults and normalize the reply", func(t *testing.T) {
		f := &fakeForecaster{raw: map[string]any{
			"Location":   "Pune",
			"ActionPlan": map[string]any{"P2_Important": []any{"Mulch"}},
		}}
		ts := newTestToolServer(&fakeBackend{}, f)
		_, out, err := ts.runForecast(ctx, nil, RunForecastArgs{Location: "Pune", FarmerEmail: "a@b.co"})
		require.NoError(t, err)
		assert.Equal(t, "Pune", out.Result.Location)
		assert.Equal(t, "Mulch", out.Result.ActionPlan.P2[0].Title())
		assert.Equal(t, 30, f.got.DaysAhead)
		assert.Equal(t, DefaultUserQuery, f.got.UserQuery)
	})

	t.Run("Should validate before calling the backend", func(t *testing.T) {
		f := &fakeForecaster{}
		ts := newTestToolServer(&fakeBackend{}, f)
		_, _, err := ts.runForecast(ctx, nil, RunForecastArgs{FarmerEmail: "a@b.co"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Empty(t, f.got.Location)
	})

	t.Run("Should wrap backend failures", func(t *testing.T) {
		f := &fakeForecaster{err: &APIError{StatusCode: 503, Message: "busy"}}
		ts := newTestToolServer(&fakeBackend{}, f)
		_, _, err := ts.runForecast(ctx, nil, RunForecastArgs{Location: "Pune", FarmerEmail: "a@b.co"})
		var apiErr *APIError
		assert.ErrorAs(t, err, &apiErr)
	})
}

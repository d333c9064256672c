// controller.go implements the task lifecycle controller: start, poll,
// pause/resume/cancel, and the terminal side effects for one active task.
//
// Phases: idle -> starting -> polling -> terminal
//
//	starting -> idle (start failed)
//	any      -> starting (a new Start replaces the current task)
package main

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// session is everything the controller knows about one started task. A new
// Start replaces the session, which is how replies for an older task id are
// recognized and dropped.
type session struct {
	id   string
	last Task

	seqIssued  uint64
	seqApplied uint64
	failures   int // consecutive failed polls

	finished bool
	err      error
	result   *CanonicalResult
	done     chan struct{}
}

// Snapshot is a copy of the controller's observable state.
type Snapshot struct {
	Phase  Phase
	TaskID string
	Task   Task
	Result *CanonicalResult
	Err    error
}

// Controller manages the request/poll/control protocol for the single most
// recently started task. It owns its timer and task id; nothing outside it
// mutates them.
type Controller struct {
	backend   Backend
	observer  Observer
	scheduler Scheduler
	cfg       Config
	log       Logger
	now       func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc

	emitMu sync.Mutex // serializes apply+notify so observers see replies in order

	mu     sync.Mutex
	phase  Phase
	cur    *session
	handle Handle
}

// NewController wires a controller to a backend. observer may be nil.
func NewController(backend Backend, observer Observer, cfg Config, log Logger) *Controller {
	if observer == nil {
		observer = Observers{}
	}
	if log == nil {
		log = nopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		backend:   backend,
		observer:  observer,
		scheduler: TickerScheduler{},
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		baseCtx:   ctx,
		cancel:    cancel,
		phase:     PhaseIdle,
	}
}

// Start validates req, submits it, and begins polling the new task. Any
// previous task's polling stops first. Validation problems return a
// *ValidationError without touching the network; a rejected start returns a
// *StartFailedError and leaves the controller idle.
func (c *Controller) Start(ctx context.Context, req StartRequest) (string, error) {
	req = req.withDefaults(c.cfg)
	if err := validateRequest(req); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.stopLocked()
	if prev := c.cur; prev != nil && !prev.finished {
		prev.finished = true
		prev.err = ErrSuperseded
		close(prev.done)
	}
	s := &session{done: make(chan struct{})}
	c.cur = s
	c.phase = PhaseStarting
	c.mu.Unlock()
	c.emit(s, Update{LogLine: "starting task"})

	sctx, cancel := context.WithTimeout(ctx, c.cfg.EffectiveRequestTimeout())
	id, err := c.backend.StartTask(sctx, req)
	cancel()

	c.mu.Lock()
	if c.cur != s {
		c.mu.Unlock()
		return "", &StartFailedError{Err: ErrSuperseded}
	}
	if err != nil {
		serr := &StartFailedError{Err: err}
		c.phase = PhaseIdle
		s.finished = true
		s.err = serr
		c.mu.Unlock()
		c.emit(s, Update{LogLine: "task start failed", Err: serr})
		close(s.done)
		return "", serr
	}
	s.id = id
	s.last = Task{ID: id, State: StateRunning}
	c.phase = PhasePolling
	c.handle = c.scheduler.Every(c.cfg.PollInterval, func() { c.poll(s) })
	c.mu.Unlock()

	c.emit(s, Update{LogLine: "task started, polling status"})
	c.poll(s)
	return id, nil
}

// Pause asks the backend to pause the current task.
func (c *Controller) Pause(ctx context.Context) error { return c.control(ctx, OpPause) }

// Resume asks the backend to resume the current task.
func (c *Controller) Resume(ctx context.Context) error { return c.control(ctx, OpResume) }

// Cancel asks the backend to cancel the current task.
func (c *Controller) Cancel(ctx context.Context) error { return c.control(ctx, OpCancel) }

// control forwards op unconditionally; the server decides whether it
// applies. Without a current task it does nothing. The outcome is reported
// to observers and followed by one status poll outside the timer cadence.
func (c *Controller) control(ctx context.Context, op ControlOp) error {
	c.mu.Lock()
	s := c.cur
	var id string
	if s != nil {
		// Start assigns the id under mu while its request may be in flight.
		id = s.id
	}
	c.mu.Unlock()
	if id == "" {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, c.cfg.EffectiveRequestTimeout())
	state, err := c.backend.ControlTask(cctx, id, op)
	cancel()

	var result error
	if err != nil {
		result = &TransientPollError{TaskID: id, Op: string(op), Err: err}
		c.emit(s, Update{LogLine: fmt.Sprintf("%s failed", op), Err: result})
	} else {
		c.mu.Lock()
		// Optimistic until the confirming poll below lands.
		if c.cur == s && c.phase == PhasePolling && state != "" && !state.IsTerminal() {
			s.last.State = state
		}
		c.mu.Unlock()
		c.emit(s, Update{LogLine: fmt.Sprintf("%s accepted: %s", op, stateOr(state, "unknown"))})
	}
	c.poll(s)
	return result
}

// poll issues one status request for s and applies the reply.
func (c *Controller) poll(s *session) {
	c.mu.Lock()
	if c.cur != s {
		c.mu.Unlock()
		return
	}
	s.seqIssued++
	seq := s.seqIssued
	id := s.id
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(c.baseCtx, c.cfg.EffectiveRequestTimeout())
	task, err := c.backend.TaskStatus(ctx, id)
	cancel()
	c.apply(s, seq, task, err)
}

// apply folds one status reply into the state machine. Terminal side
// effects run at most once per session, and the timer is stopped before any
// of them.
func (c *Controller) apply(s *session, seq uint64, task Task, err error) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.cur != s {
		c.mu.Unlock()
		return
	}
	if seq <= s.seqApplied {
		c.mu.Unlock()
		c.log.Debug("dropping out-of-order status reply", "task_id", s.id, "seq", seq)
		return
	}
	s.seqApplied = seq

	if err != nil {
		s.failures++
		perr := &TransientPollError{TaskID: s.id, Op: "status poll", Err: err}
		u := Update{LogLine: "polling failed", Err: perr}
		exhausted := c.cfg.MaxPollFailures > 0 && s.failures >= c.cfg.MaxPollFailures && !s.finished
		if exhausted {
			c.stopLocked()
			c.phase = PhaseTerminal
			s.finished = true
			s.err = perr
			u.LogLine = fmt.Sprintf("giving up after %d failed polls", s.failures)
		}
		u = c.fillLocked(s, u)
		c.mu.Unlock()
		c.notify(u)
		if exhausted {
			close(s.done)
		}
		return
	}

	s.failures = 0
	if task.ID == "" {
		task.ID = s.id
	}
	s.last = task
	u := Update{LogLine: "status: " + stateOr(task.State, "unknown")}

	terminal := task.State.IsTerminal() && !s.finished
	var result *CanonicalResult
	if terminal {
		c.stopLocked()
		c.phase = PhaseTerminal
		s.finished = true
		switch task.State {
		case StateCompleted:
			if task.Result != nil {
				r := Normalize(task.Result, c.cfg.DefaultLocation)
				result = &r
				s.result = &r
				u.LogLine = "task completed"
			} else {
				u.LogLine = "task completed without a result"
			}
		case StateError:
			msg := task.Error
			if msg == "" {
				msg = "task failed"
			}
			s.err = &TaskError{TaskID: s.id, Message: msg}
			u.Err = s.err
			u.LogLine = "task error"
		case StateCancelled:
			s.err = ErrTaskCancelled
			u.Err = ErrTaskCancelled
			u.LogLine = "task cancelled"
		}
	}
	u = c.fillLocked(s, u)
	c.mu.Unlock()

	c.notify(u)
	if result != nil {
		c.observer.OnResult(s.id, *result)
	}
	if terminal {
		close(s.done)
	}
}

// emit notifies observers about s if it is still the current session.
func (c *Controller) emit(s *session, u Update) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.mu.Lock()
	if c.cur != s {
		c.mu.Unlock()
		return
	}
	u = c.fillLocked(s, u)
	c.mu.Unlock()
	c.notify(u)
}

func (c *Controller) fillLocked(s *session, u Update) Update {
	u.TaskID = s.id
	u.Phase = c.phase
	u.State = s.last.State
	u.At = c.now()
	return u
}

func (c *Controller) notify(u Update) {
	c.observer.OnTransition(u)
}

// Stop cancels the poll timer. It is safe to call at any time, any number
// of times. The current task stays current.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
}

// Close stops polling and aborts in-flight status requests.
func (c *Controller) Close() {
	c.Stop()
	c.cancel()
}

func (c *Controller) stopLocked() {
	if c.handle != nil {
		c.handle.Stop()
		c.handle = nil
	}
}

// Wait blocks until the current task ends. It returns nil for a completed
// task, the terminal error otherwise, or ctx's error.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	s := c.cur
	c.mu.Unlock()
	if s == nil {
		return ErrNoActiveTask
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.err
}

// Snapshot returns a copy of the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{Phase: c.phase}
	if s := c.cur; s != nil {
		snap.TaskID = s.id
		snap.Task = s.last
		snap.Result = s.result
		snap.Err = s.err
	}
	return snap
}

func stateOr(s TaskState, fallback string) string {
	if s == "" {
		return fallback
	}
	return string(s)
}

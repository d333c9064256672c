// commands.go defines the cobra subcommands: start and follow a task, run a
// synchronous forecast, one-shot status and control calls, health and mcp.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

// cancelGrace bounds the server-side cancel sent when the user interrupts
// a running start command.
const cancelGrace = 5 * time.Second

// requestFlags binds the forecast request fields shared by start and
// forecast.
type requestFlags struct {
	location   string
	email      string
	phone      string
	daysAhead  int
	query      string
	confidence int
	iterations int
	htmlPath   string
}

func (f *requestFlags) bind(cmd *cobra.Command, tuning bool) {
	fl := cmd.Flags()
	fl.StringVarP(&f.location, "location", "l", "", "Farm location: city, village or coordinates")
	fl.StringVarP(&f.email, "email", "e", "", "Farmer email address that receives the report")
	fl.StringVar(&f.phone, "phone", "", "Farmer mobile number")
	fl.IntVarP(&f.daysAhead, "days", "d", 0, "Forecast horizon in days, 1-90")
	fl.StringVarP(&f.query, "query", "q", "", "Question to answer alongside the forecast")
	fl.StringVar(&f.htmlPath, "html", "", "Also write an HTML report to this path")
	if tuning {
		fl.IntVar(&f.confidence, "confidence", 0, "Minimum verification confidence, 0-100")
		fl.IntVar(&f.iterations, "iterations", 0, "Refinement loop limit, 1-5")
	}
}

func (f *requestFlags) startRequest() StartRequest {
	return StartRequest{
		Location:            f.location,
		FarmerEmail:         f.email,
		FarmerPhone:         f.phone,
		DaysAhead:           f.daysAhead,
		UserQuery:           f.query,
		ConfidenceThreshold: f.confidence,
		MaxIterations:       f.iterations,
	}
}

func (f *requestFlags) forecastRequest() ForecastRequest {
	return ForecastRequest{
		Location:    f.location,
		FarmerEmail: f.email,
		FarmerPhone: f.phone,
		DaysAhead:   f.daysAhead,
		UserQuery:   f.query,
	}
}

func startCmd(a *app) *cobra.Command {
	var f requestFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a background forecast task and follow it to the end",
		Long: "Starts a forecast task on the backend and polls its status until it completes, " +
			"fails or is cancelled. Ctrl-C cancels the task on the server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			board := NewTaskBoard()
			ctrl := NewController(NewAPIClient(a.cfg, a.log), Observers{board, LogObserver{Log: a.log}}, a.cfg, a.log)
			defer ctrl.Close()

			id, err := ctrl.Start(ctx, f.startRequest())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s started\n", id)

			if err := ctrl.Wait(ctx); err != nil {
				if ctx.Err() == nil {
					return err
				}
				return interruptTask(ctrl, a.log)
			}
			res, err := board.Result(id)
			if errors.Is(err, ErrNoResult) {
				fmt.Fprintln(cmd.OutOrStdout(), "Task completed without a result")
				return nil
			}
			if err != nil {
				return err
			}
			return emitResult(cmd.OutOrStdout(), res, f.htmlPath)
		},
	}
	f.bind(cmd, true)
	return cmd
}

// interruptTask cancels the current task server-side and stops polling.
func interruptTask(ctrl *Controller, log Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cancelGrace)
	defer cancel()
	log.Info("interrupted, cancelling task")
	err := ctrl.Cancel(ctx)
	ctrl.Stop()
	if err != nil {
		return fmt.Errorf("interrupted, cancel not confirmed: %w", err)
	}
	return ErrTaskCancelled
}

func forecastCmd(a *app) *cobra.Command {
	var f requestFlags
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Run a forecast synchronously and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			res, err := runForecast(ctx, NewAPIClient(a.cfg, a.log), a.cfg, f.forecastRequest())
			if err != nil {
				return err
			}
			return emitResult(cmd.OutOrStdout(), res, f.htmlPath)
		},
	}
	f.bind(cmd, false)
	return cmd
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the current state of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.EffectiveRequestTimeout())
			defer cancel()
			task, err := NewAPIClient(a.cfg, a.log).TaskStatus(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task:   %s\nState:  %s\n", task.ID, stateOr(task.State, "unknown"))
			if task.Paused {
				fmt.Fprintln(out, "Paused: yes")
			}
			if task.Error != "" {
				fmt.Fprintf(out, "Error:  %s\n", task.Error)
			}
			if task.State == StateCompleted && task.Result != nil {
				return TextRenderer{}.Render(out, Normalize(task.Result, a.cfg.DefaultLocation))
			}
			return nil
		},
	}
}

func controlCmd(a *app, op ControlOp, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(op) + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.EffectiveRequestTimeout())
			defer cancel()
			state, err := NewAPIClient(a.cfg, a.log).ControlTask(ctx, args[0], op)
			if err != nil {
				return fmt.Errorf("%s %s: %w", op, args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s: %s\n", args[0], stateOr(state, "unknown"))
			return nil
		},
	}
}

func healthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Wait until the backend reports healthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := NewAPIClient(a.cfg, a.log).WaitHealthy(cmd.Context(), a.cfg.HealthAttempts)
			if err != nil {
				return fmt.Errorf("backend at %s is not healthy: %w", a.cfg.BaseURL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", h.Status, h.Message)
			return nil
		},
	}
}

func mcpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the task tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client := NewAPIClient(a.cfg, a.log)
			board := NewTaskBoard()
			ctrl := NewController(client, Observers{board, LogObserver{Log: a.log}}, a.cfg, a.log)
			defer ctrl.Close()

			a.log.Info("serving MCP on stdio", "backend", a.cfg.BaseURL)
			return serveMCP(ctx, &toolServer{ctrl: ctrl, board: board, forecaster: client, cfg: a.cfg}, version)
		},
	}
}

// emitResult prints the text summary and, when htmlPath is set, writes the
// HTML report next to it.
func emitResult(out io.Writer, res CanonicalResult, htmlPath string) error {
	if err := (TextRenderer{}).Render(out, res); err != nil {
		return err
	}
	if htmlPath == "" {
		return nil
	}
	if err := writeReport(htmlPath, res); err != nil {
		return err
	}
	fmt.Fprintf(out, "Report written to %s\n", htmlPath)
	return nil
}

func writeReport(path string, res CanonicalResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return NewHTMLRenderer().Render(f, res)
}

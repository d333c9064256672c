// forecastctl drives server-executed farm forecast tasks from a terminal or
// an MCP host. It starts a task, polls it until it ends, and renders the
// normalized result.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

// app is what every subcommand shares once flags and environment are read.
type app struct {
	cfg Config
	log Logger
}

func main() {
	a := &app{cfg: DefaultConfig(), log: nopLogger{}}
	root := rootCmd(a)
	if err := root.Execute(); err != nil {
		NewLogger(nil, "error", false).Error(err.Error())
		os.Exit(1)
	}
}

func rootCmd(a *app) *cobra.Command {
	var (
		envPrefix string
		baseURL   string
		interval  time.Duration
		logLevel  string
		logJSON   bool
	)
	root := &cobra.Command{
		Use:           "forecastctl",
		Short:         "Start and follow farm forecast tasks",
		Long:          "A command-line and MCP client for the agricultural forecast backend.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(envPrefix)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("base-url") {
				cfg.BaseURL = baseURL
			}
			if flags.Changed("poll-interval") {
				cfg.PollInterval = interval
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-json") {
				cfg.LogJSON = logJSON
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.log = NewLogger(nil, cfg.LogLevel, cfg.LogJSON)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&envPrefix, "config-env-prefix", DefaultEnvPrefix, "Prefix of environment variables read as configuration")
	pf.StringVar(&baseURL, "base-url", "", "Backend base URL (default from config)")
	pf.DurationVar(&interval, "poll-interval", 0, "Status poll interval, e.g. 2s or 500ms")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&logJSON, "log-json", false, "Write logs as JSON")

	root.AddCommand(
		startCmd(a),
		forecastCmd(a),
		statusCmd(a),
		controlCmd(a, OpPause, "Pause a running task"),
		controlCmd(a, OpResume, "Resume a paused task"),
		controlCmd(a, OpCancel, "Cancel a task"),
		healthCmd(a),
		mcpCmd(a),
	)
	return root
}

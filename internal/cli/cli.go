// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/taskgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usage = `
taskgrid - a distributed task scheduler for array jobs.

Usage:
  taskgrid server [options] CONFIG_PATH...
  taskgrid worker [options] [CONFIG_PATH...]
  taskgrid expand [options] RANGE...

Commands:
  server   Serve workers and run every array task of the configuration.
  worker   Connect to a scheduler and execute the tasks it sends.
  expand   Print the task ids of RANGE tokens ("N" or "A-B"), or with
           -config, every task of the configured arrays.

Run 'taskgrid COMMAND -h' for the options of a command.
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	if len(args) == 0 {
		fmt.Fprint(output, usage)
		return nil, true, nil
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		fmt.Fprint(output, usage)
		return nil, true, nil
	}

	mode := app.Mode(args[0])
	switch mode {
	case app.ModeServer, app.ModeWorker, app.ModeExpand:
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q; expected server, worker or expand", args[0])}
	}

	flagSet := flag.NewFlagSet("taskgrid "+string(mode), flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprintf(output, "\nUsage:\n  taskgrid %s [options] %s\n\nOptions:\n", mode, positional(mode))
		flagSet.PrintDefaults()
	}

	cfg := app.Config{Mode: mode}
	var configPath string
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.IntVar(&cfg.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")

	switch mode {
	case app.ModeServer:
		flagSet.StringVar(&cfg.Listen, "listen", "", "Address the scheduler listens on for workers (default \":7760\").")
		flagSet.BoolVar(&cfg.ExitWhenDone, "exit-when-done", false, "Exit once every task has finished or failed.")
		flagSet.IntVar(&cfg.QueueDepth, "queue-depth", 0, "Tasks handed to one worker ahead of its results (default 2).")
	case app.ModeWorker:
		flagSet.StringVar(&cfg.ServerURL, "server", "", "Scheduler socket.io URL, e.g. http://host:7760/socket.io/.")
		flagSet.StringVar(&cfg.Address, "address", "", "Address announced to peers for fetching task outputs.")
		flagSet.IntVar(&cfg.Concurrency, "concurrency", 0, "Tasks executed at once (default: number of CPUs).")
		flagSet.StringVar(&cfg.Shell, "shell", "", "Shell used to run task specs (default \"/bin/sh\").")
		flagSet.BoolVar(&cfg.InsecureSkipVerify, "insecure", false, "Skip TLS certificate verification.")
	case app.ModeExpand:
		flagSet.StringVar(&configPath, "config", "", "Configuration file or directory whose arrays are printed.")
	}

	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "mode", mode)

	if mode == app.ModeExpand {
		cfg.Ranges = flagSet.Args()
		if configPath != "" {
			cfg.ConfigPaths = []string{configPath}
		}
	} else {
		cfg.ConfigPaths = flagSet.Args()
	}

	if mode == app.ModeServer && len(cfg.ConfigPaths) == 0 {
		slog.Debug("No configuration path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	cfg.LogFormat = logFormat
	cfg.LogLevel = logLevel
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func positional(mode app.Mode) string {
	switch mode {
	case app.ModeServer:
		return "CONFIG_PATH..."
	case app.ModeExpand:
		return "RANGE..."
	default:
		return "[CONFIG_PATH...]"
	}
}

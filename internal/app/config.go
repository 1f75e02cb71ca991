// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/vk/taskgrid/internal/config"
)

// Mode selects what the process does.
type Mode string

const (
	ModeServer Mode = "server"
	ModeWorker Mode = "worker"
	ModeExpand Mode = "expand"
)

const (
	defaultListen     = ":7760"
	defaultShell      = "/bin/sh"
	defaultQueueDepth = 2
)

// Config holds all the necessary configuration for an App instance to run.
// Zero values are filled from the loaded configuration files and then from
// defaults.
type Config struct {
	Mode        Mode
	ConfigPaths []string // hcl files or directories
	Ranges      []string // expand only

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// Scheduler.
	Listen       string
	ExitWhenDone bool
	QueueDepth   int // tasks handed to one worker ahead of its results

	// Worker.
	ServerURL          string
	Address            string
	Concurrency        int
	Shell              string
	InsecureSkipVerify bool
}

func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Mode {
	case ModeServer:
		if len(cfg.ConfigPaths) == 0 {
			return nil, errors.New("server mode requires at least one configuration path")
		}
	case ModeWorker:
	case ModeExpand:
		if len(cfg.Ranges) == 0 && len(cfg.ConfigPaths) == 0 {
			return nil, errors.New("expand requires a range or a configuration path")
		}
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.Concurrency < 0 {
		return nil, errors.New("concurrency cannot be negative")
	}
	if cfg.QueueDepth < 0 {
		return nil, errors.New("queue depth cannot be negative")
	}

	return &cfg, nil
}

// merge fills unset fields from the configuration model, then applies
// defaults. Values given on the command line always win.
func (c *Config) merge(m *config.Model) error {
	if s := m.Scheduler; s != nil {
		if c.Listen == "" {
			c.Listen = s.Listen
		}
		if c.HealthcheckPort == 0 && c.Mode == ModeServer {
			c.HealthcheckPort = s.HealthcheckPort
		}
		c.ExitWhenDone = c.ExitWhenDone || s.ExitWhenDone
	}
	if w := m.Worker; w != nil {
		if c.ServerURL == "" {
			c.ServerURL = w.Server
		}
		if c.Address == "" {
			c.Address = w.Address
		}
		if c.Concurrency == 0 {
			c.Concurrency = w.Concurrency
		}
		if c.Shell == "" {
			c.Shell = w.Shell
		}
	}

	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Concurrency == 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.Shell == "" {
		c.Shell = defaultShell
	}
	if c.QueueDepth == 0 {
		c.QueueDepth = defaultQueueDepth
	}

	if c.Mode == ModeWorker && c.ServerURL == "" {
		return errors.New("worker mode requires a server URL (flag -server or worker.server)")
	}
	return nil
}

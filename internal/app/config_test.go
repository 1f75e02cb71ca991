package app

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/config"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "server", cfg: Config{Mode: ModeServer, ConfigPaths: []string{"grid.hcl"}}},
		{name: "server without config", cfg: Config{Mode: ModeServer}, wantErr: "configuration path"},
		{name: "worker", cfg: Config{Mode: ModeWorker}},
		{name: "expand ranges", cfg: Config{Mode: ModeExpand, Ranges: []string{"1-3"}}},
		{name: "expand nothing", cfg: Config{Mode: ModeExpand}, wantErr: "expand requires"},
		{name: "unknown mode", cfg: Config{Mode: "dance"}, wantErr: "unknown mode"},
		{name: "negative concurrency", cfg: Config{Mode: ModeWorker, Concurrency: -1}, wantErr: "concurrency"},
		{name: "negative depth", cfg: Config{Mode: ModeWorker, QueueDepth: -1}, wantErr: "queue depth"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cfg.Mode, got.Mode)
		})
	}
}

func TestConfigMerge_FlagsWin(t *testing.T) {
	model := &config.Model{
		Scheduler: &config.Scheduler{Listen: ":9000", HealthcheckPort: 9001, ExitWhenDone: true},
		Worker:    &config.Worker{Server: "http://sched:9000/socket.io/", Address: "w:1", Concurrency: 3, Shell: "/bin/bash"},
	}

	cfg := Config{Mode: ModeWorker, Concurrency: 8}
	require.NoError(t, cfg.merge(model))

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Zero(t, cfg.HealthcheckPort, "the scheduler's healthcheck port is not a worker setting")
	assert.True(t, cfg.ExitWhenDone)
	assert.Equal(t, "http://sched:9000/socket.io/", cfg.ServerURL)
	assert.Equal(t, "w:1", cfg.Address)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, "/bin/bash", cfg.Shell)
	assert.Equal(t, defaultQueueDepth, cfg.QueueDepth)
}

func TestConfigMerge_Defaults(t *testing.T) {
	cfg := Config{Mode: ModeServer}
	require.NoError(t, cfg.merge(&config.Model{}))

	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, runtime.NumCPU(), cfg.Concurrency)
	assert.Equal(t, defaultShell, cfg.Shell)
	assert.False(t, cfg.ExitWhenDone)
}

func TestConfigMerge_WorkerNeedsServer(t *testing.T) {
	cfg := Config{Mode: ModeWorker}
	require.ErrorContains(t, cfg.merge(&config.Model{}), "server URL")
}

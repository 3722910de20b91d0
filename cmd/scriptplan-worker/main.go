// Command scriptplan-worker is the batch executor plugin subprocess
//. The host
// process dispenses this binary via go-plugin when
// BATCH_EXECUTOR_MODE=plugin, and talks to it over the handshake in
// internal/batchexec.HandshakeConfig.
package main

import (
	"log/slog"
	"os"

	"github.com/hashicorp/go-plugin"

	"github.com/scriptplanner/scriptplan/internal/batchexec"
	"github.com/scriptplanner/scriptplan/pkg/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config, using default pool size", "error", err)
		cfg = &config.Config{BatchExecutorPoolSize: 4}
	}

	impl := batchexec.NewLocalScenarioExecutor(cfg.BatchExecutorPoolSize, logger)

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: batchexec.HandshakeConfig,
		Plugins: map[string]plugin.Plugin{
			"executor": &batchexec.ExecutorPlugin{Impl: impl},
		},
		GRPCServer: plugin.DefaultGRPCServer,
	})
}

package batchexec

import (
	"context"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
)

// HandshakeConfig verifies a batch-executor plugin subprocess is
// compatible with this host.
var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "SCRIPTPLAN_BATCHEXEC_PLUGIN",
	MagicCookieValue: "scriptplan-batchexec-v1",
}

// PluginMap is the single plugin this host dispenses: one scenario
// executor per subprocess.
var PluginMap = map[string]plugin.Plugin{
	"executor": &ExecutorPlugin{},
}

// ScenarioExecutorPlugin is the interface a plugin-side subprocess
// implements: run a batch of scenarios against a project and return
// their results.
type ScenarioExecutorPlugin interface {
	Run(proj []byte, scenarios []int32) ([]*ScenarioResult, error)
}

// ExecutorPlugin is the plugin.Plugin implementation go-plugin uses to
// serve/dispense a ScenarioExecutorPlugin over gRPC.
type ExecutorPlugin struct {
	plugin.Plugin
	// Impl is the concrete implementation, set on the plugin side only.
	Impl ScenarioExecutorPlugin
}

var _ plugin.GRPCPlugin = (*ExecutorPlugin)(nil)

// GRPCServer registers the executor service on the plugin subprocess's
// gRPC server. Registration will use generated proto code when
// available; for now the wire contract is documented here and in
// client.go rather than faked.
func (p *ExecutorPlugin) GRPCServer(broker *plugin.GRPCBroker, s *grpc.Server) error {
	return nil
}

// GRPCClient returns the host-side client used to talk to a dispensed
// plugin subprocess.
func (p *ExecutorPlugin) GRPCClient(ctx context.Context, broker *plugin.GRPCBroker, c *grpc.ClientConn) (interface{}, error) {
	return &ExecutorGRPCClient{conn: c}, nil
}

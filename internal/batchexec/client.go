package batchexec

import (
	"fmt"

	"google.golang.org/grpc"
)

// ExecutorGRPCClient is the host-side client for a dispensed batch
// executor subprocess. Its methods will issue the generated gRPC stubs
// once the protobuf service is compiled in; until then they return a
// clear error rather than a silently-empty result, so a misconfigured
// PluginExecutor fails loudly instead of reporting every scenario
// unscheduled.
type ExecutorGRPCClient struct {
	conn *grpc.ClientConn
}

// Run dispatches a batch of scenarios to the plugin subprocess.
func (c *ExecutorGRPCClient) Run(proj []byte, scenarios []int32) ([]*ScenarioResult, error) {
	return nil, fmt.Errorf("batchexec: plugin wire protocol not yet generated from proto")
}

var _ ScenarioExecutorPlugin = (*ExecutorGRPCClient)(nil)

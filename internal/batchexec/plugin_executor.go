package batchexec

import (
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// PluginExecutor runs scenarios through a go-plugin-managed subprocess
// instead of an in-process goroutine pool: no shared memory between
// scenarios scheduled this way.
type PluginExecutor struct {
	client *plugin.Client
	impl   ScenarioExecutorPlugin
}

// NewPluginExecutor launches cmdPath as a subprocess speaking the
// batchexec handshake and dispenses its "executor" plugin.
func NewPluginExecutor(cmdPath string, logger hclog.Logger) (*PluginExecutor, error) {
	if logger == nil {
		logger = hclog.Default()
	}
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap,
		Cmd:             exec.Command(cmdPath),
		AllowedProtocols: []plugin.Protocol{
			plugin.ProtocolGRPC,
		},
		Logger: logger,
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("batchexec: connect to plugin: %w", err)
	}

	raw, err := rpcClient.Dispense("executor")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("batchexec: dispense executor plugin: %w", err)
	}

	impl, ok := raw.(ScenarioExecutorPlugin)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("batchexec: dispensed plugin does not implement ScenarioExecutorPlugin")
	}

	return &PluginExecutor{client: client, impl: impl}, nil
}

// Close terminates the plugin subprocess.
func (e *PluginExecutor) Close() {
	if e.client != nil {
		e.client.Kill()
	}
}

// Run implements Executor by serializing the project and handing it,
// along with the requested scenario indices, to the dispensed plugin.
func (e *PluginExecutor) Run(proj *model.Project, scenarios []model.ScenarioIndex) ([]*ScenarioResult, error) {
	ids := make([]int32, len(scenarios))
	for i, s := range scenarios {
		ids[i] = int32(s)
	}
	payload, err := marshalProject(proj)
	if err != nil {
		return nil, fmt.Errorf("batchexec: marshal project: %w", err)
	}
	return e.impl.Run(payload, ids)
}

// marshalProject serializes a project for subprocess transport. JSON
// keeps the wire format legible while the real protobuf contract is
// still pending codegen (see client.go).
func marshalProject(proj *model.Project) ([]byte, error) {
	return json.Marshal(proj)
}

func unmarshalProject(data []byte) (*model.Project, error) {
	var proj model.Project
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

// Serve runs the current process as a batchexec plugin subprocess,
// dispensing impl under the "executor" key. A worker binary built
// around this call is what PluginExecutor's Cmd launches.
func Serve(impl ScenarioExecutorPlugin) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]plugin.Plugin{
			"executor": &ExecutorPlugin{Impl: impl},
		},
		GRPCServer: plugin.DefaultGRPCServer,
	})
}

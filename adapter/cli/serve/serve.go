// Package serve is the CLI verb group that starts the HTTP and gRPC
// collaborators (adapter/httpapi, adapter/grpcapi) as long-running
// servers.
package serve

import (
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/scriptplanner/scriptplan/adapter/cli"
	"github.com/scriptplanner/scriptplan/adapter/grpcapi"
	"github.com/scriptplanner/scriptplan/adapter/httpapi"
)

// Cmd is the serve command group.
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP or gRPC driver collaborators",
}

var httpAddr string

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Serve the driver API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := resolveAddr(cmd, httpAddr, func(cfg *cliConfig) string { return cfg.HTTPAddr })
		log := cli.Logger()
		srv := httpapi.NewServer(log)
		srv.EnableMetrics()
		log.Info("starting http server", "addr", addr)
		return http.ListenAndServe(addr, srv.Handler())
	},
}

var grpcAddr string

var grpcCmd = &cobra.Command{
	Use:   "grpc",
	Short: "Serve the driver API over gRPC",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := resolveAddr(cmd, grpcAddr, func(cfg *cliConfig) string { return cfg.GRPCAddr })
		log := cli.Logger()
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		s := grpc.NewServer()
		grpcapi.Register(s, grpcapi.NewService(log))
		log.Info("starting grpc server", "addr", addr)
		return s.Serve(lis)
	},
}

// cliConfig is the subset of pkg/config.Config this package reads,
// kept narrow so it doesn't need to import pkg/config just for two
// string fields.
type cliConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// resolveAddr prefers an explicitly-passed --addr flag, then falls
// back to the running App's configured address, then the flag's
// default.
func resolveAddr(cmd *cobra.Command, flagValue string, pick func(*cliConfig) string) string {
	if cmd.Flags().Changed("addr") {
		return flagValue
	}
	if app := cli.GetApp(); app != nil && app.Config != nil {
		if v := pick(&cliConfig{HTTPAddr: app.Config.HTTPAddr, GRPCAddr: app.Config.GRPCAddr}); v != "" {
			return v
		}
	}
	return flagValue
}

func init() {
	httpCmd.Flags().StringVar(&httpAddr, "addr", "0.0.0.0:8080", "listen address")
	grpcCmd.Flags().StringVar(&grpcAddr, "addr", "0.0.0.0:9090", "listen address")
	Cmd.AddCommand(httpCmd)
	Cmd.AddCommand(grpcCmd)
}

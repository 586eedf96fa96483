package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hurttlocker/nuggets/internal/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the stored collection as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, st, err := a.openState(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			a.logger.Info("serving MCP over stdio", zap.String("store", a.cfg.Store.Value))
			return mcp.ServeStdio(mcp.NewServer(mcp.ServerConfig{State: mgr, Version: version}))
		},
	}
}

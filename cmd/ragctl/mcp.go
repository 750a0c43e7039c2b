package main

import (
	"github.com/akolanti/docrag/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve query_documents, list_documents and index_stats as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcpserver.NewServer(&mcpserver.Ports{Rag: app.Rag, Documents: app.Stores.DocumentStore})
		if err != nil {
			return err
		}
		return server.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

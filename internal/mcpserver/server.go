// Package mcpserver exposes the query, registry and index statistics operations as MCP tools,
// so an assistant can ask questions about uploaded documents without going through HTTP.
package mcpserver

import (
	"context"
	"errors"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

var ErrMissingRagService = errors.New("mcp: rag service is required")

// Querier is the part of rag.Service the tools need.
type Querier interface {
	Query(ctx context.Context, req commonModels.QueryRequest) (commonModels.QueryResult, error)
	Stats(ctx context.Context) commonModels.IndexStats
}

type Ports struct {
	Rag Querier
	// Documents is optional. Without it list_documents returns nothing and ids are not checked.
	Documents jobModel.DocumentStore
}

func (p *Ports) Validate() error {
	if p.Rag == nil {
		return ErrMissingRagService
	}
	return nil
}

type Server struct {
	ports  *Ports
	server *mcp.Server
	logger *logger_i.Logger
}

func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		ports:  ports,
		server: mcp.NewServer(&mcp.Implementation{Name: "docrag", Version: Version}, nil),
		logger: logger_i.NewLogger("MCP"),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

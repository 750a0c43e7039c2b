package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/docrag/internal/adapter"
	"github.com/akolanti/docrag/internal/api"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type QueryInput struct {
	Question    string   `json:"question" jsonschema:"the question to answer from the uploaded documents"`
	DocumentIds []string `json:"document_ids" jsonschema:"ids of the documents to answer from, at least one"`
	MaxSources  int      `json:"max_sources,omitempty" jsonschema:"number of chunks to retrieve, 1 to 20 (default 5)"`
	Mode        string   `json:"mode,omitempty" jsonschema:"retrieval mode, vector or hybrid (default vector)"`
}

type QueryOutput struct {
	Answer  string                `json:"answer"`
	Sources []commonModels.Source `json:"sources"`
	Cached  bool                  `json:"cached"`
}

type ListDocumentsInput struct{}

type ListDocumentsOutput struct {
	Documents []api.DocumentInfo `json:"documents"`
	Count     int                `json:"count"`
}

type StatsInput struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Answer a question using the uploaded documents and return the answer with its sources",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded documents with their ingestion status",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Report how many chunks and documents the vector index holds",
	}, s.handleStats)
}

func (s *Server) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	mode := commonModels.RetrievalMode(input.Mode)
	if mode != "" && mode != commonModels.ModeVector && mode != commonModels.ModeHybrid {
		return nil, QueryOutput{}, fmt.Errorf("unknown mode %q", input.Mode)
	}

	if len(input.DocumentIds) == 0 {
		return nil, QueryOutput{}, ragErrors.Kind(ragErrors.ErrFormat, errors.New("at least one document id is required"))
	}

	if s.ports.Documents != nil {
		for _, id := range input.DocumentIds {
			if _, found := s.ports.Documents.GetDocument(ctx, id); !found {
				return nil, QueryOutput{}, ragErrors.Kind(ragErrors.ErrNotFound, fmt.Errorf("document %s does not exist", id))
			}
		}
	}

	result, err := s.ports.Rag.Query(ctx, commonModels.QueryRequest{
		Question:    input.Question,
		DocumentIds: input.DocumentIds,
		MaxSources:  input.MaxSources,
		Mode:        mode,
	})
	if err != nil {
		s.logger.Warn("query tool failed", "kind", ragErrors.Code(err), "error", err)
		return nil, QueryOutput{}, err
	}

	sources := result.Sources
	if sources == nil {
		sources = []commonModels.Source{}
	}
	return nil, QueryOutput{Answer: result.Answer, Sources: sources, Cached: result.Cached}, nil
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Documents == nil {
		return nil, ListDocumentsOutput{Documents: []api.DocumentInfo{}}, nil
	}
	docs, err := s.ports.Documents.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, fmt.Errorf("listing documents: %w", err)
	}
	out := adapter.ToDocumentList(docs)
	return nil, ListDocumentsOutput{Documents: out, Count: len(out)}, nil
}

func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, commonModels.IndexStats, error) {
	return nil, s.ports.Rag.Stats(ctx), nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/spf13/cobra"
)

var (
	queryDocs       []string
	queryMode       string
	queryMaxSources int
	queryShowCtx    bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question about ingested documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("question is required")
		}
		mode := commonModels.RetrievalMode(queryMode)
		if mode != commonModels.ModeVector && mode != commonModels.ModeHybrid {
			return fmt.Errorf("unknown mode %q, use vector or hybrid", queryMode)
		}
		if len(queryDocs) == 0 {
			return fmt.Errorf("at least one --doc is required")
		}
		for _, id := range queryDocs {
			if _, found := app.Stores.DocumentStore.GetDocument(cmd.Context(), id); !found {
				return fmt.Errorf("document %s does not exist", id)
			}
		}

		ctx, cancel := withTimeout(cmd.Context(), app.Settings.QueryTimeout)
		defer cancel()
		result, err := app.Rag.Query(ctx, commonModels.QueryRequest{
			Question:    question,
			DocumentIds: queryDocs,
			MaxSources:  queryMaxSources,
			Mode:        mode,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, result.Answer)
		if result.Cached {
			fmt.Fprintln(out, faint("(cached answer)"))
		}
		if len(result.Sources) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, heading("Sources"))
		}
		for i, src := range result.Sources {
			location := fmt.Sprintf("chunk %d", src.ChunkIndex)
			if src.Page != nil {
				location = fmt.Sprintf("page %d, %s", *src.Page, location)
			}
			fmt.Fprintf(out, "%d. %s %s %s\n", i+1, src.Filename, faint(location), faint(fmt.Sprintf("relevance %.2f", src.Relevance)))
			fmt.Fprintf(out, "   %s\n", faint(src.Preview))
		}
		if queryShowCtx && result.Context != "" {
			fmt.Fprintln(out)
			fmt.Fprintln(out, heading("Context"))
			fmt.Fprintln(out, result.Context)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringSliceVarP(&queryDocs, "doc", "d", nil, "answer from this document id, repeatable")
	queryCmd.Flags().StringVarP(&queryMode, "mode", "m", string(commonModels.ModeVector), "retrieval mode: vector or hybrid")
	queryCmd.Flags().IntVarP(&queryMaxSources, "sources", "k", 0, "number of chunks to retrieve (1-20)")
	queryCmd.Flags().BoolVar(&queryShowCtx, "show-context", false, "print the context the answer was generated from")
	_ = queryCmd.MarkFlagRequired("doc")
	rootCmd.AddCommand(queryCmd)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Remove a document's chunks, raw file and registry entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		documents := app.Stores.DocumentStore
		doc, found := documents.GetDocument(cmd.Context(), id)
		if !found {
			return fmt.Errorf("document %s does not exist", id)
		}

		ctx, cancel := withTimeout(cmd.Context(), app.Settings.ProviderTimeout)
		defer cancel()
		removed, err := app.Rag.DeleteDocument(ctx, id)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s index cleanup failed: %v\n", failure("!"), err)
		}
		if doc.Path != "" {
			if err := os.Remove(doc.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s could not remove %s: %v\n", failure("!"), doc.Path, err)
			}
		}
		if err := documents.DeleteDocument(cmd.Context(), id); err != nil {
			return fmt.Errorf("removing registry entry: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s %s\n", success("✓"), doc.Name, faint(fmt.Sprintf("(%d vectors)", removed)))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print vector index statistics and the document registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		stats := app.Rag.Stats(cmd.Context())

		status := success(string(stats.Status))
		if stats.Error != "" {
			status = failure(string(stats.Status)) + " " + faint(stats.Error)
		}
		approx := ""
		if !stats.DocumentCountExact {
			approx = "≥"
		}
		fmt.Fprintf(out, "%s %s\n", heading("index"), status)
		fmt.Fprintf(out, "  chunks     %d\n", stats.TotalChunks)
		fmt.Fprintf(out, "  documents  %s%d\n", approx, stats.DocumentCount)

		docs, err := app.Stores.DocumentStore.ListDocuments(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %d\n", heading("registry"), len(docs))
		for _, d := range docs {
			state := string(d.Status)
			if d.LastError != "" {
				state = failure(state + " " + d.LastError)
			}
			fmt.Fprintf(out, "  %s  %-30s %-8s %d chunks\n", faint(d.Id), d.Name, state, d.ChunkCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd, statsCmd)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

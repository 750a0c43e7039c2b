package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/docrag/internal/adapter/utils"
	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/internal/job"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest one or more files and register them like an upload would",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			doc, err := ingestFile(cmd.Context(), path)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", failure("✗"), path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n", success("✓"), doc.Name, faint(doc.Id), faint(fmt.Sprintf("(%d chunks)", doc.ChunkCount)))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func ingestFile(ctx context.Context, path string) (commonModels.Document, error) {
	filename := filepath.Base(path)
	docType := commonModels.GetDocType(filename)
	if docType == commonModels.ERR {
		return commonModels.Document{}, fmt.Errorf("unsupported file type, expected one of %s", strings.Join(commonModels.SupportedExtensions, " "))
	}

	uploadDir := app.Settings.UploadDir
	if uploadDir == "" {
		uploadDir = config.UploadDir
	}
	if err := os.MkdirAll(uploadDir, 0o750); err != nil {
		return commonModels.Document{}, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	documentId := utils.GetNewUUID()
	stored := filepath.Join(uploadDir, documentId+ext)
	size, err := copyFile(path, stored)
	if err != nil {
		_ = os.Remove(stored)
		return commonModels.Document{}, err
	}

	documents := app.Stores.DocumentStore
	doc := commonModels.Document{
		Id:          documentId,
		Name:        filename,
		Extension:   strings.TrimPrefix(ext, "."),
		SizeBytes:   size,
		Path:        stored,
		ContentType: docType,
		Status:      commonModels.DocumentPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := documents.SaveDocument(ctx, doc); err != nil {
		_ = os.Remove(stored)
		return commonModels.Document{}, fmt.Errorf("registering document: %w", err)
	}

	ingestCtx, cancel := withTimeout(ctx, app.Settings.IngestTimeout)
	defer cancel()

	result := app.Rag.IngestDocument(ingestCtx, jobModel.Job{
		Id:          utils.GetNewUUID(),
		JobType:     jobModel.JobTypeIngest,
		CreatedTime: doc.CreatedAt,
		Status:      jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			DocumentId:     documentId,
			IngestFileName: filename,
			IngestURL:      stored,
		},
	})
	doc = job.RecordIngestOutcome(ctx, documents, result)
	if result.Status == jobModel.JobStatusError {
		return doc, fmt.Errorf("%s: %s", result.Error.Kind, result.Error.Message)
	}
	return doc, nil
}

func copyFile(src string, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

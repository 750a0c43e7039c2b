package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/akolanti/docrag/internal/adapter"
	"github.com/akolanti/docrag/internal/adapter/utils"
	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	"github.com/akolanti/docrag/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

type ingestData struct {
	documentId string
	filename   string
	path       string
}

type newJobData struct {
	id        string
	chatId    string
	isNewChat bool
	traceId   string
	query     commonModels.QueryRequest
	ingest    *ingestData
}

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func traceId(ctx context.Context) string {
	id, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return id
}

func validateContext(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		logRH.WithTrace(ctx).Warn("context error", "error", err)
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// writeRAGError maps a pipeline error to its status. 5xx details stay in the log.
func writeRAGError(w http.ResponseWriter, id string, err error) {
	code := ragErrors.HTTPStatus(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "Internal Server Error"
	}
	writeJsonResponse(w, code, adapter.ErrorResponse(id, message, ragErrors.Code(err), code))
}

func getTargetDirectory(dir string) (string, string) {
	if dir == "" {
		dir = config.UploadDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", "Storage Error"
	}
	return dir, ""
}

func newQueryJob(ctx context.Context, q commonModels.QueryRequest, chatId string) newJobData {
	isNewChat := false
	if chatId == "" {
		chatId = utils.GetNewUUID()
		isNewChat = true
	}
	return newJobData{
		id:        utils.GetNewUUID(),
		chatId:    chatId,
		isNewChat: isNewChat,
		traceId:   traceId(ctx),
		query:     q,
	}
}

func newIngestJob(ctx context.Context, documentId string, filename string, path string) newJobData {
	return newJobData{
		id:      utils.GetNewUUID(),
		traceId: traceId(ctx),
		ingest:  &ingestData{documentId: documentId, filename: filename, path: path},
	}
}

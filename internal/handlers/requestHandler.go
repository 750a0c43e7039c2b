package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/akolanti/docrag/internal/adapter"
	"github.com/akolanti/docrag/internal/adapter/utils"
	"github.com/akolanti/docrag/internal/api"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
)

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// QueryHandler godoc
// @Summary      Ask a question about uploaded documents
// @Description  Validates the question, checks every document id against the registry and queues a query job.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Param        request  body      api.QueryRequest     true  "Question, scope and generation options"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Failure      404      {object}  api.JobResponse      "Unknown document id"
// @Router       /query [post]
func QueryHandler(w http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if !validateContext(ctx) {
		return
	}
	log := logRH.WithTrace(ctx)

	var requestData api.QueryRequest
	defer request.Body.Close()
	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil {
		log.Warn("Bad query request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "request body is not valid json")
		return
	}
	if err := validate.Struct(requestData); err != nil {
		log.Warn("Query request failed validation", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, err.Error())
		return
	}
	if requestData.ChatID != "" && !handlerInstance.service.MessageStore.ValidateChatId(ctx, requestData.ChatID) {
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "unknown chat id")
		return
	}
	for _, id := range requestData.DocumentIds {
		if _, found := handlerInstance.service.DocumentStore.GetDocument(ctx, id); !found {
			writeRAGError(w, id, ragErrors.Kind(ragErrors.ErrNotFound, errors.New("document "+id+" does not exist")))
			return
		}
	}

	newJob := newQueryJob(ctx, commonModels.QueryRequest{
		Question:    requestData.Question,
		DocumentIds: requestData.DocumentIds,
		MaxSources:  requestData.MaxSources,
		Temperature: requestData.Temperature,
		Mode:        commonModels.RetrievalMode(requestData.Mode),
		ImageBase64: requestData.ImageBase64,
	}, requestData.ChatID)
	CreateNewJob(ctx, newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, newJob.chatId))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a query or ingestion job.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	if idString == "" {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	result, isFound := GetJobStatus(ctx, idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// HealthHandler godoc
// @Summary      Service health
// @Description  Reports vector index statistics. An unreachable index is reported as degraded, never as an error.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	stats := handlerInstance.ragService.Stats(r.Context())
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: string(stats.Status), Index: stats})
}

package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/docrag/internal/api"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/jobModel"
)

func statusURL(id string) string {
	return fmt.Sprintf("status/%s", id)
}

func ToInitJobResponse(id string, chatId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		ChatId:    chatId,
		StatusURL: statusURL(id),
	}
}

func ToUploadResponse(documentId string, jobId string) api.UploadResponse {
	return api.UploadResponse{
		DocumentId: documentId,
		JobId:      jobId,
		StatusURL:  statusURL(jobId),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Kind:    job.Error.Kind,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{Status: string(job.Status)}
	if job.JobType == jobModel.JobTypeIngest {
		result.Ingest = ToIngestStatus(job)
	} else {
		result.RAGExternalResponse = ToRAGExternalStatus(job.JobPayload)
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	sources := ragData.Sources
	if sources == nil {
		sources = []commonModels.Source{}
	}
	return &api.RAGResponse{
		Question: ragData.Question,
		Answer:   ragData.Answer,
		Sources:  sources,
		Context:  ragData.Context,
		Cached:   ragData.Cached,
	}
}

func ToIngestStatus(job jobModel.Job) *api.IngestResponse {
	if job.JobPayload.DocumentId == "" {
		return nil
	}
	return &api.IngestResponse{
		DocumentId: job.JobPayload.DocumentId,
		Filename:   job.JobPayload.IngestFileName,
		ChunkCount: job.JobPayload.ChunkCount,
	}
}

func ToDocumentInfo(doc commonModels.Document) api.DocumentInfo {
	return api.DocumentInfo{
		DocumentId: doc.Id,
		Filename:   doc.Name,
		Extension:  doc.Extension,
		SizeBytes:  doc.SizeBytes,
		Status:     string(doc.Status),
		ChunkCount: doc.ChunkCount,
		LastError:  doc.LastError,
		CreatedAt:  doc.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func ToDocumentList(docs []commonModels.Document) []api.DocumentInfo {
	out := make([]api.DocumentInfo, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToDocumentInfo(d))
	}
	return out
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return ErrorResponse(id, error, "", code)
}

func ErrorResponse(id string, message string, kind string, code int) api.JobResponse {
	return api.JobResponse{
		Id: id,
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Kind:    kind,
			Message: message,
			Retry:   false,
		},
	}
}

func ToDeleteResponse(documentId string, removed uint64) api.DeleteResponse {
	return api.DeleteResponse{DocumentId: documentId, Removed: removed}
}

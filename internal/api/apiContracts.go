package api

import (
	"time"

	"github.com/akolanti/docrag/internal/domain/commonModels"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id,omitempty" example:"chat_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Kind    string `json:"kind,omitempty" example:"FORMAT_ERROR"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question string                `json:"question"`
	Answer   string                `json:"answer"`
	Sources  []commonModels.Source `json:"sources"`
	Context  string                `json:"context"`
	Cached   bool                  `json:"cached,omitempty"`
}

type IngestResponse struct {
	DocumentId string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

type Result struct {
	Status              string          `json:"status"`
	RAGExternalResponse *RAGResponse    `json:"rag_response,omitempty"`
	Ingest              *IngestResponse `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	ChatId    string `json:"chat_id,omitempty"`
	StatusURL string `json:"status_url"`
}

type UploadResponse struct {
	DocumentId string `json:"document_id" example:"4f1c2a3e-7f0b-4f39-9f5e-1b2c3d4e5f60"`
	JobId      string `json:"job_id"`
	StatusURL  string `json:"status_url"`
}

type DeleteResponse struct {
	DocumentId string `json:"document_id"`
	Removed    uint64 `json:"removed_vectors"`
}

type DocumentInfo struct {
	DocumentId string `json:"document_id"`
	Filename   string `json:"filename"`
	Extension  string `json:"extension"`
	SizeBytes  int64  `json:"size_bytes"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	LastError  string `json:"last_error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type HealthResponse struct {
	Status string                  `json:"status" example:"healthy"`
	Index  commonModels.IndexStats `json:"index"`
}

// requests---------------------

type QueryRequest struct {
	Question    string   `json:"question" validate:"required"`
	DocumentIds []string `json:"document_ids" validate:"required,min=1,dive,uuid"`
	MaxSources  int      `json:"max_sources,omitempty" validate:"omitempty,min=1,max=20"`
	Temperature *float32 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	Mode        string   `json:"mode,omitempty" validate:"omitempty,oneof=vector hybrid"`
	ChatID      string   `json:"chat_id,omitempty"`
	ImageBase64 string   `json:"image_base64,omitempty"`
}

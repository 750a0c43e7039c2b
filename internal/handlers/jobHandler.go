package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/internal/job"
	"github.com/akolanti/docrag/internal/rag"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/go-playground/validator/v10"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("JobHandler")
	validate        = validator.New()
)

type JobHandler struct {
	service    *job.Service
	ragService rag.Service
	uploadDir  string
}

func InitJobHandler(jobService *job.Service, ragService rag.Service, uploadDir string) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, ragService: ragService, uploadDir: uploadDir}
		logJH.Info("Starting job handler", "uploadDir", uploadDir)
	})
}

func CreateNewJob(ctx context.Context, newJob newJobData) {
	log := logJH.WithTrace(ctx).With("job id", newJob.id)
	if newJob.isNewChat {
		log.Debug("Create new chat", "chatId", newJob.chatId)
		handlerInstance.initNewChat(ctx, newJob.chatId)
	}
	handlerInstance.service.Enqueue(ctx, buildJob(newJob))
}

func GetJobStatus(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctx, id)
	}
	return result, false
}

// private methods
func buildJob(newJob newJobData) jobModel.Job {
	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued

	if newJob.ingest != nil {
		_job.CurrentStep = jobModel.IngestInit
		_job.JobType = jobModel.JobTypeIngest
		_job.JobPayload.DocumentId = newJob.ingest.documentId
		_job.JobPayload.IngestFileName = newJob.ingest.filename
		_job.JobPayload.IngestURL = newJob.ingest.path
	} else {
		_job.JobType = jobModel.JobTypeQuery
		_job.ChatId = newJob.chatId
		_job.CurrentStep = jobModel.UserQueryInit
		_job.JobPayload.Question = newJob.query.Question
		_job.JobPayload.DocumentIds = newJob.query.DocumentIds
		_job.JobPayload.MaxSources = newJob.query.MaxSources
		_job.JobPayload.Temperature = newJob.query.Temperature
		_job.JobPayload.Mode = newJob.query.Mode
		_job.JobPayload.ImageBase64 = newJob.query.ImageBase64
	}
	return _job
}

func (h *JobHandler) initNewChat(ctx context.Context, chatId string) {
	if err := h.service.OpenChat(ctx, chatId); err != nil {
		logJH.WithTrace(ctx).Error("Error initiating new chat", "chatId", chatId, "error", err)
	}
}

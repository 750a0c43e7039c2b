package job

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/internal/metrics"
	"github.com/akolanti/docrag/pkg/logger_i"
)

var logService = logger_i.NewLogger("JobService")

// Service owns the queue the workers read from and the stores behind jobs, chats and documents.
type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
	DocumentStore     jobModel.DocumentStore
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
	DocumentStore     jobModel.DocumentStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		MessageStore:      cfg.MessageStore,
		DocumentStore:     cfg.DocumentStore,
	}
}

// Enqueue stores the job as QUEUED and hands it to the workers.
// The channel send blocks when the queue is full so a burst of uploads backs up into the callers.
func (s *Service) Enqueue(ctx context.Context, j jobModel.Job) {
	log := logService.WithTrace(ctx).With("job id", j.Id, "type", j.JobType)
	j.Status = jobModel.JobStatusQueued

	// a status request can arrive before a worker picks the job up
	if err := s.JobStore.SaveJob(ctx, j); err != nil {
		log.Error("could not persist queued job", "error", err)
	}
	metrics.IncrementJobsInQueue()

	s.JobChannel <- j
	log.Info("Created new job")

	//a new worker every N requests, and one per ingestion since those hold a worker for long
	//idle workers retire on their own so the pool shrinks back
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%config.RequestsPerNewWorkerCount == 0 || j.JobType == jobModel.JobTypeIngest {
		s.wakeDispatcher()
	}
}

// RegisterUpload records a PENDING document and queues its ingestion job.
func (s *Service) RegisterUpload(ctx context.Context, doc commonModels.Document, j jobModel.Job) error {
	if j.JobType != jobModel.JobTypeIngest || j.JobPayload.DocumentId != doc.Id {
		return fmt.Errorf("job %s does not ingest document %s", j.Id, doc.Id)
	}
	doc.Status = commonModels.DocumentPending
	if err := s.DocumentStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("register document: %w", err)
	}
	s.Enqueue(ctx, j)
	return nil
}

// OpenChat starts an empty history for a new conversation.
func (s *Service) OpenChat(ctx context.Context, chatId string) error {
	return s.MessageStore.InitNewChat(ctx, chatId)
}

func (s *Service) wakeDispatcher() {
	metrics.StartDispatcherSignalCount()
	select {
	case s.DispatcherChannel <- true:
	default:
		// dispatcher already has a pending signal
	}
}

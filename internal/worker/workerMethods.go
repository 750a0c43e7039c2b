package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	jobmodel "github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/internal/job"
	"github.com/akolanti/docrag/internal/metrics"
	"github.com/akolanti/docrag/pkg/logger_i"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout(job.JobType))
	defer cancel()
	log := logger.WithTrace(ctxTrace).With("job Id", job.Id, "type", job.JobType)
	log.Debug("Processing job")

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctxTrace, job, log)

	if job.JobType == jobmodel.JobTypeIngest {
		job.CurrentStep = jobmodel.IngestProcessing
		job = ingestDocument(ctx, job)
	} else {
		job.CurrentStep = jobmodel.RedisCall
		job = processQuery(ctx, job, log)
		if job.Status != jobmodel.JobStatusError && job.ChatId != "" {
			turn := commonModels.ConversationTurn{Question: job.JobPayload.Question, Answer: job.JobPayload.Answer}
			if err := _jobService.MessageStore.TrySaveChat(ctxTrace, job.ChatId, turn); err != nil {
				log.Error("Failed to save chat history", "error", err)
			}
		}
	}

	if job.Status != jobmodel.JobStatusError {
		job.Status = jobmodel.JobStatusComplete
	}
	job.EndTime = time.Now()
	// the job context may have expired, the final state still has to land
	saveJobState(ctxTrace, job, log)
}

func jobTimeout(jobType jobmodel.JobType) time.Duration {
	if jobType == jobmodel.JobTypeIngest {
		return ingestTimeout
	}
	return queryTimeout
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	count := atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", count)
	metrics.DecrementActiveWorkerCount()
}

func ingestDocument(ctx context.Context, _job jobmodel.Job) jobmodel.Job {
	_job = _ragService.IngestDocument(ctx, _job)
	job.RecordIngestOutcome(ctx, _jobService.DocumentStore, _job)
	return _job
}

func processQuery(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	var history []commonModels.ConversationTurn
	if job.ChatId != "" {
		var err error
		history, err = _jobService.MessageStore.GetMessageHistory(ctx, job.ChatId)
		if err != nil {
			// a query without history beats no answer at all
			log.Error("Failed to get message history", "error", err)
		}
	}
	return _ragService.ProcessRequest(ctx, job, history)
}

func saveJobState(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to update job state", "status", job.Status, "error", err)
	}
}

package job

import (
	"context"
	"testing"
	"time"

	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/internal/data/store"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(queue int) *Service {
	return InitJobService(ServiceConfig{
		JobChannel:        make(chan jobModel.Job, queue),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
		MessageStore:      store.InitMessageStore(),
		DocumentStore:     store.InitInMemoryDocumentStore(),
	})
}

func queryJob(id string) jobModel.Job {
	return jobModel.Job{
		Id:          id,
		JobType:     jobModel.JobTypeQuery,
		CurrentStep: jobModel.UserQueryInit,
		CreatedTime: time.Now(),
		JobPayload:  jobModel.JobPayload{Question: "what?", DocumentIds: []string{"doc-1"}},
	}
}

func TestEnqueueStoresQueuedJob(t *testing.T) {
	ctx := context.Background()
	svc := newService(1)

	svc.Enqueue(ctx, queryJob("job-1"))

	stored, found := svc.JobStore.GetJob(ctx, "job-1")
	require.True(t, found)
	assert.Equal(t, jobModel.JobStatusQueued, stored.Status)

	queued := <-svc.JobChannel
	assert.Equal(t, "job-1", queued.Id)
	assert.Equal(t, jobModel.JobStatusQueued, queued.Status)
	assert.Equal(t, int64(1), svc.RequestCount)
}

func TestEnqueueWakesDispatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("every ingestion", func(t *testing.T) {
		svc := newService(1)
		j := ingestJob("/tmp/a.txt", "")
		svc.Enqueue(ctx, j)
		<-svc.JobChannel

		select {
		case <-svc.DispatcherChannel:
		default:
			t.Fatal("expected a dispatcher signal for an ingestion")
		}
	})

	t.Run("queries in batches", func(t *testing.T) {
		svc := newService(int(config.RequestsPerNewWorkerCount))
		for i := int64(1); i < config.RequestsPerNewWorkerCount; i++ {
			svc.Enqueue(ctx, queryJob("q"))
		}
		assert.Len(t, svc.DispatcherChannel, 0)

		svc.Enqueue(ctx, queryJob("q"))
		assert.Len(t, svc.DispatcherChannel, 1)
	})

	t.Run("pending signal is not duplicated", func(t *testing.T) {
		svc := newService(2)
		svc.Enqueue(ctx, ingestJob("/tmp/a.txt", ""))
		svc.Enqueue(ctx, ingestJob("/tmp/b.txt", ""))
		assert.Len(t, svc.DispatcherChannel, 1)
	})
}

func TestRegisterUploadRecordsPendingDocument(t *testing.T) {
	ctx := context.Background()
	svc := newService(1)
	j := ingestJob("/tmp/doc-1.txt", "")
	doc := commonModels.Document{Id: "doc-1", Name: "a.txt", Path: "/tmp/doc-1.txt", Status: commonModels.DocumentReady}

	require.NoError(t, svc.RegisterUpload(ctx, doc, j))

	stored, found := svc.DocumentStore.GetDocument(ctx, "doc-1")
	require.True(t, found)
	assert.Equal(t, commonModels.DocumentPending, stored.Status)

	queued := <-svc.JobChannel
	assert.Equal(t, "doc-1", queued.JobPayload.DocumentId)
}

func TestRegisterUploadRejectsMismatchedJob(t *testing.T) {
	ctx := context.Background()
	svc := newService(1)

	err := svc.RegisterUpload(ctx, commonModels.Document{Id: "doc-2"}, ingestJob("/tmp/doc-1.txt", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not ingest document doc-2")

	_, found := svc.DocumentStore.GetDocument(ctx, "doc-2")
	assert.False(t, found)
	assert.Len(t, svc.JobChannel, 0)
}

func TestOpenChat(t *testing.T) {
	ctx := context.Background()
	svc := newService(1)

	require.NoError(t, svc.OpenChat(ctx, "chat-1"))
	assert.True(t, svc.MessageStore.ValidateChatId(ctx, "chat-1"))
}

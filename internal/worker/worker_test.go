package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/docrag/internal/data/store"
	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRagService tracks which jobs were executed
type MockRagService struct {
	ProcessedCount int32
	LastHistory    []commonModels.ConversationTurn
	OnIngest       func(ctx context.Context, j jobModel.Job) jobModel.Job
	mu             sync.Mutex
}

func (m *MockRagService) ProcessRequest(ctx context.Context, j jobModel.Job, hist []commonModels.ConversationTurn) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	m.mu.Lock()
	m.LastHistory = hist
	m.mu.Unlock()
	j.JobPayload.Answer = "answer to " + j.JobPayload.Question
	j.CurrentStep = jobModel.Complete
	return j
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnIngest != nil {
		return m.OnIngest(ctx, j)
	}
	j.JobPayload.ChunkCount = 4
	j.Status = jobModel.JobStatusComplete
	return j
}

func (m *MockRagService) Query(ctx context.Context, req commonModels.QueryRequest) (commonModels.QueryResult, error) {
	return commonModels.QueryResult{}, nil
}

func (m *MockRagService) DeleteDocument(ctx context.Context, documentId string) (uint64, error) {
	return 0, nil
}

func (m *MockRagService) Stats(ctx context.Context) commonModels.IndexStats {
	return commonModels.IndexStats{Status: commonModels.Healthy}
}

func newJobService() *job.Service {
	return job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          store.InitInMemoryJobStore(),
		MessageStore:      store.InitMessageStore(),
		DocumentStore:     store.InitInMemoryDocumentStore(),
	})
}

func waitForStatus(t *testing.T, svc *job.Service, id string, want jobModel.JobStatus) jobModel.Job {
	t.Helper()
	var got jobModel.Job
	require.Eventually(t, func() bool {
		j, ok := svc.JobStore.GetJob(context.Background(), id)
		got = j
		return ok && j.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return got
}

func TestWorkerPool_Flow(t *testing.T) {
	jobSvc := newJobService()
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	atomic.StoreInt64(&currentWorkerCount, 0)
	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true
		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&currentWorkerCount) >= 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Worker processes a query and saves the turn", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, jobSvc.MessageStore.InitNewChat(ctx, "chat-1"))
		require.NoError(t, jobSvc.MessageStore.TrySaveChat(ctx, "chat-1", commonModels.ConversationTurn{Question: "earlier", Answer: "before"}))

		jobSvc.JobChannel <- jobModel.Job{
			Id:         "test-1",
			ChatId:     "chat-1",
			JobType:    jobModel.JobTypeQuery,
			JobPayload: jobModel.JobPayload{Question: "why?"},
		}

		done := waitForStatus(t, jobSvc, "test-1", jobModel.JobStatusComplete)
		assert.Equal(t, "answer to why?", done.JobPayload.Answer)
		assert.False(t, done.EndTime.IsZero())

		mockRag.mu.Lock()
		assert.Equal(t, []commonModels.ConversationTurn{{Question: "earlier", Answer: "before"}}, mockRag.LastHistory)
		mockRag.mu.Unlock()

		history, err := jobSvc.MessageStore.GetMessageHistory(ctx, "chat-1")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, commonModels.ConversationTurn{Question: "why?", Answer: "answer to why?"}, history[1])
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestExecuteJob_IngestSuccessMarksReady(t *testing.T) {
	jobSvc := newJobService()
	InitServices(jobSvc, &MockRagService{})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))
	require.NoError(t, jobSvc.DocumentStore.SaveDocument(ctx, commonModels.Document{Id: "doc-1", Name: "a.txt", Path: path, Status: commonModels.DocumentPending}))

	executeJob(jobModel.Job{
		Id:         "ingest-1",
		JobType:    jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{DocumentId: "doc-1", IngestFileName: "a.txt", IngestURL: path},
	})

	doc, found := jobSvc.DocumentStore.GetDocument(ctx, "doc-1")
	require.True(t, found)
	assert.Equal(t, commonModels.DocumentReady, doc.Status)
	assert.Equal(t, 4, doc.ChunkCount)
	assert.FileExists(t, path)

	saved, _ := jobSvc.JobStore.GetJob(ctx, "ingest-1")
	assert.Equal(t, jobModel.JobStatusComplete, saved.Status)
}

func TestExecuteJob_IngestFailureMarksFailedAndRemovesFile(t *testing.T) {
	jobSvc := newJobService()
	InitServices(jobSvc, &MockRagService{OnIngest: func(ctx context.Context, j jobModel.Job) jobModel.Job {
		j.Status = jobModel.JobStatusError
		j.Error = jobModel.JobError{Code: 400, Kind: "FORMAT_ERROR", Message: "bad pdf"}
		return j
	}})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))
	require.NoError(t, jobSvc.DocumentStore.SaveDocument(ctx, commonModels.Document{Id: "doc-2", Name: "broken.pdf", Path: path, Status: commonModels.DocumentPending}))

	executeJob(jobModel.Job{
		Id:         "ingest-2",
		JobType:    jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{DocumentId: "doc-2", IngestFileName: "broken.pdf", IngestURL: path},
	})

	doc, found := jobSvc.DocumentStore.GetDocument(ctx, "doc-2")
	require.True(t, found)
	assert.Equal(t, commonModels.DocumentFailed, doc.Status)
	assert.Equal(t, "FORMAT_ERROR", doc.LastError)
	assert.NoFileExists(t, path)

	// the error status survives the final save
	saved, _ := jobSvc.JobStore.GetJob(ctx, "ingest-2")
	assert.Equal(t, jobModel.JobStatusError, saved.Status)
	assert.Equal(t, "FORMAT_ERROR", saved.Error.Kind)
}

func TestWorker_IdleTimeout(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	prevMin, prevIdle := atomic.LoadInt64(&minWorkerCount), idleTimeout
	atomic.StoreInt64(&minWorkerCount, 0)
	idleTimeout = 20 * time.Millisecond
	t.Cleanup(func() {
		atomic.StoreInt64(&minWorkerCount, prevMin)
		idleTimeout = prevIdle
	})

	InitServices(&job.Service{JobChannel: make(chan jobModel.Job)}, &MockRagService{})
	workerWaitGroup = &sync.WaitGroup{}
	stopWorkerChannel = make(chan bool)

	createWorker()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&currentWorkerCount) == 0
	}, time.Second, 10*time.Millisecond, "worker should have retired after idling")
}

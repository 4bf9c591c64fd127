package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/data/store"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/domain/jobModel"
	"github.com/akolanti/ragstream/internal/job"
	"github.com/akolanti/ragstream/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRagService tracks ingestion calls; everything else is inert.
type MockRagService struct {
	OnIngest       func(ctx context.Context, docs []commonModels.SourceDocument, s config.IngestionSettings) []commonModels.IngestResult
	ProcessedCount int32
}

func (m *MockRagService) Answer(ctx context.Context, req rag.AnswerRequest) (<-chan chatModel.StreamEvent, error) {
	return nil, nil
}
func (m *MockRagService) Search(ctx context.Context, q string, s config.RetrievalSettings) ([]commonModels.Passage, error) {
	return nil, nil
}
func (m *MockRagService) Ingest(ctx context.Context, docs []commonModels.SourceDocument, s config.IngestionSettings) []commonModels.IngestResult {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnIngest != nil {
		return m.OnIngest(ctx, docs, s)
	}
	results := make([]commonModels.IngestResult, len(docs))
	for i, d := range docs {
		results[i] = commonModels.IngestResult{Filename: d.Filename, Status: commonModels.IngestStatusOK, Chunks: 1}
	}
	return results
}
func (m *MockRagService) ClearDocuments(ctx context.Context) (int, error) { return 0, nil }
func (m *MockRagService) CountDocuments(ctx context.Context) (int, error) { return 0, nil }
func (m *MockRagService) ClearCache(ctx context.Context) (int, error)     { return 0, nil }
func (m *MockRagService) CountCache(ctx context.Context) (int, error)     { return 0, nil }

func spool(t *testing.T, name, content string) jobModel.JobDocument {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return jobModel.JobDocument{Filename: name, MimeType: "text/plain", Path: path}
}

func waitForStop(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
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
}

func TestWorkerPool_Flow(t *testing.T) {
	jobSvc := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          store.InitInMemoryJobStore(),
		MessageStore:      store.InitMessageStore(),
	})
	var seen config.IngestionSettings
	mockRag := &MockRagService{}
	mockRag.OnIngest = func(ctx context.Context, docs []commonModels.SourceDocument, s config.IngestionSettings) []commonModels.IngestResult {
		seen = s
		return []commonModels.IngestResult{
			{Filename: docs[0].Filename, Status: commonModels.IngestStatusOK, Chunks: 2},
			{Filename: docs[1].Filename, Status: commonModels.IngestStatusError, Error: "unsupported document type"},
		}
	}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	atomic.StoreInt64(&currentWorkerCount, 0)
	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	ctx := context.Background()
	docs := []jobModel.JobDocument{spool(t, "a.txt", "alpha."), spool(t, "b.bin", "beta")}
	settings := config.IngestionSettings{ChunkSize: 50, ChunkOverlap: 5}
	newJob := job.NewIngestJob("trace-w", docs, settings)

	t.Run("Worker processes an ingest job", func(t *testing.T) {
		require.NoError(t, jobSvc.Enqueue(ctx, newJob))

		require.Eventually(t, func() bool {
			j, ok := jobSvc.GetJob(ctx, newJob.Id)
			return ok && j.Status == jobModel.JobStatusPartial
		}, 2*time.Second, 10*time.Millisecond)

		j, _ := jobSvc.GetJob(ctx, newJob.Id)
		assert.Len(t, j.Results, 2)
		assert.False(t, j.EndTime.IsZero())
		assert.Equal(t, settings, seen)
		for _, d := range docs {
			_, err := os.Stat(d.Path)
			assert.True(t, os.IsNotExist(err), "spooled file %s removed", d.Filename)
		}
	})

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&currentWorkerCount) >= 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)
		waitForStop(t, wg)
		assert.Zero(t, atomic.LoadInt64(&currentWorkerCount))
	})
}

func TestWorkerPool_FailedJobKeepsError(t *testing.T) {
	jobSvc := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 1),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
	})
	InitServices(jobSvc, &MockRagService{OnIngest: func(ctx context.Context, docs []commonModels.SourceDocument, s config.IngestionSettings) []commonModels.IngestResult {
		return []commonModels.IngestResult{{Filename: "x", Status: commonModels.IngestStatusError}}
	}})
	wg := &sync.WaitGroup{}
	workerWaitGroup = wg
	stopWorkerChannel = make(chan bool)

	failing := job.NewIngestJob("trace-f", []jobModel.JobDocument{{Filename: "x"}}, config.IngestionSettings{ChunkSize: 10})
	executeJob(failing)

	j, ok := jobSvc.GetJob(context.Background(), failing.Id)
	require.True(t, ok)
	assert.Equal(t, jobModel.JobStatusError, j.Status)
	assert.NotEmpty(t, j.Error.Message)
}

func TestWorker_IdleTimeout(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 1)
	previous := idleWorkerTimeout
	idleWorkerTimeout = 20 * time.Millisecond
	t.Cleanup(func() { idleWorkerTimeout = previous })

	InitServices(job.InitJobService(job.ServiceConfig{JobChannel: make(chan jobModel.Job)}), &MockRagService{})
	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	createWorker()
	createWorker()
	createWorker()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&currentWorkerCount) == 1
	}, time.Second, 5*time.Millisecond, "idle workers retire down to the minimum")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&currentWorkerCount), "the last worker stays")

	close(stopChan)
	waitForStop(t, wg)
}

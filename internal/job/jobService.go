package job

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/jobModel"
	"github.com/akolanti/ragstream/internal/metrics"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/google/uuid"
)

var logger = logger_i.NewLogger("JobService")

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		MessageStore:      cfg.MessageStore,
	}
}

// NewIngestJob builds a queued job for spooled uploads. The ingestion settings are captured now so a later
// settings change does not affect a job already waiting in the queue.
func NewIngestJob(traceId string, docs []jobModel.JobDocument, settings config.IngestionSettings) jobModel.Job {
	return jobModel.Job{
		Id:          uuid.NewString(),
		TraceId:     traceId,
		JobType:     jobModel.JobTypeIngest,
		Documents:   docs,
		Ingestion:   settings,
		CreatedTime: time.Now().UTC(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.IngestInit,
	}
}

// Enqueue records the job and hands it to the worker pool. The send blocks when the queue is full so
// uploads slow down instead of piling up, and gives up when ctx ends.
func (s *Service) Enqueue(ctx context.Context, job jobModel.Job) error {
	log := logger.WithTrace(ctx).With("jobId", job.Id)
	if err := s.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("could not record job", "error", err)
		return err
	}

	select {
	case s.JobChannel <- job:
	case <-ctx.Done():
		log.Warn("job not queued, request ended", "error", ctx.Err())
		s.JobStore.DeleteJob(context.WithoutCancel(ctx), job.Id)
		return ctx.Err()
	}
	metrics.IncrementJobsInQueue()
	log.Info("queued job", "documents", len(job.Documents))

	// ingestion is slow and bound on external calls, so every ingest job may add a worker
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%config.RequestsPerNewWorkerCount == 0 || job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount()
		select {
		case s.DispatcherChannel <- true:
		default:
			log.Debug("dispatcher busy, signal dropped")
		}
	}
	return nil
}

func (s *Service) GetJob(ctx context.Context, id string) (jobModel.Job, bool) {
	if id == "" {
		return jobModel.Job{}, false
	}
	return s.JobStore.GetJob(ctx, id)
}

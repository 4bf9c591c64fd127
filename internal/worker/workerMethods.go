package worker

import (
	"context"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/commonModels"
	jobmodel "github.com/akolanti/ragstream/internal/domain/jobModel"
	"github.com/akolanti/ragstream/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.IngestJobTimeout)
	defer cancel()
	log := logger.WithTrace(ctx).With("jobId", job.Id)
	log.Debug("Processing job", "documents", len(job.Documents))

	job.Status = jobmodel.JobStatusRunning
	job.CurrentStep = jobmodel.IngestProcessing
	saveJobState(ctx, job)

	if job.JobType == jobmodel.JobTypeIngest {
		job = ingestDocuments(ctx, job)
	} else {
		log.Warn("Unknown job type", "type", job.JobType)
		job.Error = jobmodel.JobError{Code: http.StatusBadRequest, Message: "unknown job type"}
		job.Status = jobmodel.JobStatusError
		job.CurrentStep = jobmodel.Error
	}

	job.EndTime = time.Now().UTC()
	saveJobState(ctx, job)
	log.Info("Finished job", "status", job.Status, "duration", time.Since(start))
}

func ingestDocuments(ctx context.Context, job jobmodel.Job) jobmodel.Job {
	docs := make([]commonModels.SourceDocument, len(job.Documents))
	for i, d := range job.Documents {
		docs[i] = commonModels.SourceDocument{Filename: d.Filename, MimeType: d.MimeType, Path: d.Path}
	}
	defer removeSpooledFiles(ctx, job.Documents)

	job.Results = _ragService.Ingest(ctx, docs, job.Ingestion)
	job.Summarize()
	if job.Status == jobmodel.JobStatusError {
		job.Error = jobmodel.JobError{Code: http.StatusUnprocessableEntity, Message: "no document could be ingested", Retry: true}
	}
	return job
}

func removeSpooledFiles(ctx context.Context, docs []jobmodel.JobDocument) {
	for _, d := range docs {
		if d.Path == "" {
			continue
		}
		if err := os.Remove(d.Path); err != nil && !os.IsNotExist(err) {
			logger.WithTrace(ctx).Warn("Could not remove spooled upload", "path", d.Path, "error", err)
		}
	}
}

// removeWorker expects the caller to have already released its slot in currentWorkerCount.
func removeWorker(reason string) {
	workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
}

func saveJobState(ctx context.Context, job jobmodel.Job) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.WithTrace(ctx).Error("Failed to update job state", "jobId", job.Id, "error", err)
	}
}

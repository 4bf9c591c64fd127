package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusPartial  JobStatus = "PARTIAL"
	JobStatusError    JobStatus = "ERROR"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	Error            InternalStatus = "Error"
	Complete         InternalStatus = "Complete"

	JobTypeIngest JobType = "Ingest"
)

// JobDocument points at an uploaded file spooled to disk until a worker picks the job up.
type JobDocument struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Path     string `json:"path"`
}

type Job struct {
	Id          string                      `json:"id"`
	TraceId     string                      `json:"trace_id"`
	JobType     JobType                     `json:"job_type"`
	Documents   []JobDocument               `json:"documents"`
	Ingestion   config.IngestionSettings    `json:"ingestion"`
	Results     []commonModels.IngestResult `json:"results,omitempty"`
	Error       JobError                    `json:"error,omitempty"`
	CreatedTime time.Time                   `json:"created_time"`
	EndTime     time.Time                   `json:"end_time,omitempty"`
	Status      JobStatus                   `json:"status"`
	CurrentStep InternalStatus              `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// Summarize derives the final status from per-document results.
func (j *Job) Summarize() {
	failed := 0
	for _, r := range j.Results {
		if r.Status == commonModels.IngestStatusError {
			failed++
		}
	}
	switch {
	case len(j.Results) == 0 || failed == len(j.Results):
		j.Status = JobStatusError
		j.CurrentStep = Error
	case failed > 0:
		j.Status = JobStatusPartial
		j.CurrentStep = Complete
	default:
		j.Status = JobStatusComplete
		j.CurrentStep = Complete
	}
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// MessageStore keeps per chat history so a client can send only its latest message.
type MessageStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	InitNewChat(ctx context.Context, id string) error
	AppendMessages(ctx context.Context, id string, messages ...chatModel.Message) error
	GetMessageHistory(ctx context.Context, chatId string) ([]chatModel.Message, error)
}

package adapter

import (
	"net/http"
	"testing"
	"time"

	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/domain/jobModel"
	"github.com/stretchr/testify/assert"
)

func TestToAPIResponse(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	job := jobModel.Job{
		Id:          "j1",
		Status:      jobModel.JobStatusQueued,
		CreatedTime: created,
	}

	res := ToAPIResponse(job)
	assert.Equal(t, "QUEUED", res.Status)
	assert.Nil(t, res.EndTime)
	assert.Nil(t, res.Error)

	job.Status = jobModel.JobStatusError
	job.EndTime = created.Add(time.Minute)
	job.Results = []commonModels.IngestResult{{Filename: "a.png", Status: commonModels.IngestStatusError, Error: "unsupported document type"}}
	job.Error = jobModel.JobError{Code: http.StatusUnprocessableEntity, Message: "no document could be ingested", Retry: true}

	res = ToAPIResponse(job)
	if assert.NotNil(t, res.EndTime) {
		assert.Equal(t, created.Add(time.Minute), *res.EndTime)
	}
	assert.Len(t, res.Documents, 1)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Error.Code)
}

func TestToErrorResponse(t *testing.T) {
	assert.False(t, ToErrorResponse("t", "bad", http.StatusBadRequest).Error.Retry)
	assert.True(t, ToErrorResponse("t", "busy", http.StatusTooManyRequests).Error.Retry)
	assert.True(t, ToErrorResponse("t", "down", http.StatusBadGateway).Error.Retry)
}

func TestToInitJobResponse(t *testing.T) {
	res := ToInitJobResponse(jobModel.Job{Id: "abc", Documents: make([]jobModel.JobDocument, 3)})
	assert.Equal(t, "status/abc", res.StatusURL)
	assert.Equal(t, 3, res.Documents)
}

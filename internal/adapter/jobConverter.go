package adapter

import (
	"fmt"

	"github.com/akolanti/ragstream/internal/api"
	"github.com/akolanti/ragstream/internal/domain/jobModel"
)

func ToInitJobResponse(job jobModel.Job) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        job.Id,
		StatusURL: fmt.Sprintf("status/%s", job.Id),
		Documents: len(job.Documents),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	res := api.JobResponse{
		Id:        job.Id,
		Status:    string(job.Status),
		Documents: job.Results,
		Error:     errorPtr,
		StartTime: job.CreatedTime,
	}
	if !job.EndTime.IsZero() {
		end := job.EndTime
		res.EndTime = &end
	}
	return res
}

func ToErrorResponse(traceId string, message string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		TraceId: traceId,
		Error: api.JobOutgoingError{
			Code:    code,
			Message: message,
			Retry:   code == 429 || code >= 500,
		},
	}
}

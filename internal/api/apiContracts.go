package api

import (
	"time"

	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/commonModels"
)

type JobResponse struct {
	Id        string                      `json:"id" example:"3f0c7a52-8d1e-4a55-9b1f-0c6f2e1d9a10"`
	Status    string                      `json:"status" example:"PARTIAL"`
	Documents []commonModels.IngestResult `json:"documents,omitempty"`
	Error     *JobOutgoingError           `json:"error,omitempty"`
	StartTime time.Time                   `json:"start_time"`
	EndTime   *time.Time                  `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type ErrorResponse struct {
	Error   JobOutgoingError `json:"error"`
	TraceId string           `json:"trace_id,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
	Documents int    `json:"documents"`
}

type CountResponse struct {
	Count int `json:"count" example:"42"`
}

type RemovedResponse struct {
	Removed int `json:"removed" example:"42"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	ChatID  string `json:"chatID,omitempty"`
}

// ChatStreamEvent documents the data line of every SSE frame on /chat.
type ChatStreamEvent = chatModel.StreamEvent

package handlers

import (
	"context"
	"net/http"

	"github.com/akolanti/ragstream/internal/api"
	"github.com/akolanti/ragstream/internal/domain/jobModel"
	"github.com/akolanti/ragstream/internal/observability"
	"github.com/akolanti/ragstream/internal/rag"
	"github.com/akolanti/ragstream/internal/settings"
	"github.com/akolanti/ragstream/pkg/logger_i"
)

var (
	logRH = logger_i.NewLogger("RequestHandler")
	logAH = logger_i.NewLogger("AdminHandler")
)

// Enqueuer is the part of the job service the upload handler needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job jobModel.Job) error
	GetJob(ctx context.Context, id string) (jobModel.Job, bool)
}

type Deps struct {
	Rag       rag.Service
	Jobs      Enqueuer
	Messages  jobModel.MessageStore
	Settings  *settings.Store
	Events    *observability.Hub
	UploadDir string
}

type Handler struct {
	rag       rag.Service
	jobs      Enqueuer
	messages  jobModel.MessageStore
	settings  *settings.Store
	events    *observability.Hub
	uploadDir string
}

func New(deps Deps) *Handler {
	return &Handler{
		rag:       deps.Rag,
		jobs:      deps.Jobs,
		messages:  deps.Messages,
		settings:  deps.Settings,
		events:    deps.Events,
		uploadDir: deps.UploadDir,
	}
}

// GetHandler godoc
// @Summary      Liveness probe
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

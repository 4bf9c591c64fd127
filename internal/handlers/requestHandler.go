package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/ragstream/internal/adapter"
	"github.com/akolanti/ragstream/internal/adapter/utils"
	"github.com/akolanti/ragstream/internal/api"
	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/domain/chatModel"
	"github.com/akolanti/ragstream/internal/domain/jobModel"
	"github.com/akolanti/ragstream/internal/job"
	"github.com/akolanti/ragstream/internal/rag"
)

// ChatHandler godoc
// @Summary      Ask a question over the ingested documents
// @Description  Streams the answer as server sent events: one sources event, then token events (or a single cached event), then done. A failure after the stream started arrives as an error event. The chat id is returned in the X-Chat-Id header.
// @Tags         Messaging
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      api.ChatRequest      true  "Chat Message and optional Chat ID"
// @Success      200      {object}  api.ChatStreamEvent  "Event stream"
// @Failure      400      {object}  api.ErrorResponse    "Invalid request data or chat ID"
// @Failure      502      {object}  api.ErrorResponse    "Model provider unavailable"
// @Failure      503      {object}  api.ErrorResponse    "Vector store unavailable"
// @Router       /chat [post]
func (h *Handler) ChatHandler(w http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if !validateContext(ctx) {
		return
	}
	log := logRH.WithTrace(ctx)

	var requestData api.ChatRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.Error("Couldn't close the Chat handler reader", "error", err)
		}
	}(request.Body)
	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || strings.TrimSpace(requestData.Message) == "" {
		log.Warn("Bad Chat Request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, traceIdOf(ctx), "Bad Request")
		return
	}

	chatID, ok := h.resolveChat(ctx, requestData.ChatID)
	if !ok {
		WriteErrorResponse(w, http.StatusBadRequest, traceIdOf(ctx), "Unknown chat id")
		return
	}
	log = log.With("chatId", chatID)

	history, err := h.messages.GetMessageHistory(ctx, chatID)
	if err != nil {
		log.Warn("Could not read chat history, continuing without it", "error", err)
	}
	userMessage := chatModel.Message{Role: chatModel.RoleUser, Content: requestData.Message}
	messages := append(history, userMessage)

	events, err := h.rag.Answer(ctx, rag.AnswerRequest{Messages: messages, Settings: h.settings.Snapshot()})
	if err != nil {
		writeRagError(w, ctx, err)
		return
	}

	w.Header().Set("X-Chat-Id", chatID)
	stream := newSSEWriter(w)
	var answer strings.Builder
	clientGone := false
	for event := range events {
		switch event.Type {
		case chatModel.EventToken, chatModel.EventCached:
			answer.WriteString(event.Content)
		case chatModel.EventDone:
			h.remember(ctx, chatID, userMessage, answer.String())
		}
		if clientGone {
			// keep draining so the relay can finish
			continue
		}
		if err := stream.send(string(event.Type), event); err != nil {
			log.Warn("Client went away mid stream", "error", err)
			clientGone = true
		}
	}
}

func (h *Handler) resolveChat(ctx context.Context, chatID string) (string, bool) {
	if chatID != "" {
		return chatID, h.messages.ValidateChatId(ctx, chatID)
	}
	chatID = utils.GetNewUUID()
	if err := h.messages.InitNewChat(ctx, chatID); err != nil {
		logRH.WithTrace(ctx).Warn("Could not open chat, history will not be kept", "error", err)
	}
	return chatID, true
}

// remember keeps the exchange only for answers that completed.
func (h *Handler) remember(ctx context.Context, chatID string, question chatModel.Message, answer string) {
	reply := chatModel.Message{Role: chatModel.RoleAssistant, Content: answer}
	if err := h.messages.AppendMessages(context.WithoutCancel(ctx), chatID, question, reply); err != nil {
		logRH.WithTrace(ctx).Warn("Could not save chat history", "chatId", chatID, "error", err)
	}
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of an ingestion job, with one result per document once it has run.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse "The current status of the job"
// @Failure      404  {object}  api.ErrorResponse   "Job not found"
// @Router       /status/{id} [get]
func (h *Handler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	logRH.WithTrace(r.Context()).Debug("Get Status Request", "URL path", r.URL.Path)

	result, isFound := h.jobs.GetJob(r.Context(), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, traceIdOf(r.Context()), "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostIngestHandler godoc
// @Summary      Upload documents for ingestion
// @Description  Receives one or more files via multipart/form-data, spools them to disk, and queues one ingestion job. Documents are chunked with the ingestion settings current at upload time.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        documents  formData  file    true  "PDF, DOCX, ODT, RTF, TXT, Markdown or XLSX files"
// @Success      202  {object}  api.InitJobResponse "Accepted - poll status_url"
// @Failure      400  {object}  api.ErrorResponse "Bad Request - Missing files or upload too large"
// @Failure      500  {object}  api.ErrorResponse "Internal Server Error - Storage or Write Error"
// @Router       /ingest [post]
func (h *Handler) PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	log := logRH.WithTrace(ctx)

	targetDir, err := getTargetDirectory(h.uploadDir)
	if err != nil {
		log.Error("Couldn't get target directory", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, traceIdOf(ctx), "Storage error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, traceIdOf(ctx), "File too large or bad request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := append(r.MultipartForm.File["documents"], r.MultipartForm.File["document"]...)
	if len(files) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, traceIdOf(ctx), "at least one document is required")
		return
	}

	docs := make([]jobModel.JobDocument, 0, len(files))
	for _, header := range files {
		doc, err := spool(targetDir, header)
		if err != nil {
			log.Error("Could not spool upload", "filename", header.Filename, "error", err)
			removeSpooled(docs)
			WriteErrorResponse(w, http.StatusInternalServerError, traceIdOf(ctx), "Write error")
			return
		}
		docs = append(docs, doc)
	}

	newJob := job.NewIngestJob(traceIdOf(ctx), docs, h.settings.Snapshot().Ingestion)
	if err := h.jobs.Enqueue(ctx, newJob); err != nil {
		removeSpooled(docs)
		WriteErrorResponse(w, http.StatusServiceUnavailable, traceIdOf(ctx), "Could not queue the job")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob))
}

func spool(dir string, header *multipart.FileHeader) (jobModel.JobDocument, error) {
	src, err := header.Open()
	if err != nil {
		return jobModel.JobDocument{}, err
	}
	defer src.Close()

	name := filepath.Base(header.Filename)
	path := filepath.Join(dir, fmt.Sprintf("%s-%s", utils.GetNewUUID(), name))
	dst, err := os.Create(path)
	if err != nil {
		return jobModel.JobDocument{}, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(path)
		return jobModel.JobDocument{}, err
	}
	return jobModel.JobDocument{
		Filename: name,
		MimeType: header.Header.Get("Content-Type"),
		Path:     path,
	}, nil
}

func removeSpooled(docs []jobModel.JobDocument) {
	for _, d := range docs {
		_ = os.Remove(d.Path)
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/akolanti/ragstream/internal/api"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
)

const defaultLogLimit = 100

// GetDocumentCountHandler godoc
// @Summary      Count indexed passages
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.CountResponse
// @Failure      503  {object}  api.ErrorResponse
// @Router       /documents/count [get]
func (h *Handler) GetDocumentCountHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.rag.CountDocuments(r.Context())
	if err != nil {
		writeRagError(w, r.Context(), err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.CountResponse{Count: n})
}

// DeleteDocumentsHandler godoc
// @Summary      Remove every indexed passage
// @Description  The semantic cache is not flushed; call DELETE /cache to drop answers built on removed documents.
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.RemovedResponse
// @Failure      503  {object}  api.ErrorResponse
// @Router       /documents [delete]
func (h *Handler) DeleteDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.rag.ClearDocuments(r.Context())
	if err != nil {
		writeRagError(w, r.Context(), err)
		return
	}
	logAH.WithTrace(r.Context()).Info("documents cleared", "removed", n)
	writeJsonResponse(w, http.StatusOK, api.RemovedResponse{Removed: n})
}

// GetCacheCountHandler godoc
// @Summary      Count semantic cache entries
// @Tags         Cache
// @Produce      json
// @Success      200  {object}  api.CountResponse
// @Failure      503  {object}  api.ErrorResponse
// @Router       /cache/count [get]
func (h *Handler) GetCacheCountHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.rag.CountCache(r.Context())
	if err != nil {
		writeRagError(w, r.Context(), err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.CountResponse{Count: n})
}

// DeleteCacheHandler godoc
// @Summary      Flush the semantic cache
// @Tags         Cache
// @Produce      json
// @Success      200  {object}  api.RemovedResponse
// @Failure      503  {object}  api.ErrorResponse
// @Router       /cache [delete]
func (h *Handler) DeleteCacheHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.rag.ClearCache(r.Context())
	if err != nil {
		writeRagError(w, r.Context(), err)
		return
	}
	logAH.WithTrace(r.Context()).Info("cache cleared", "removed", n)
	writeJsonResponse(w, http.StatusOK, api.RemovedResponse{Removed: n})
}

// GetSettingsHandler godoc
// @Summary      Current runtime settings
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  config.Settings
// @Router       /settings [get]
func (h *Handler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, h.settings.Snapshot())
}

// PutSettingsHandler godoc
// @Summary      Change runtime settings
// @Description  Fields missing from the body keep their current value. The whole result is validated and applied at once, or rejected.
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        settings  body      config.Settings  true  "Settings, partial bodies allowed"
// @Success      200  {object}  config.Settings
// @Failure      400  {object}  api.ErrorResponse
// @Router       /settings [put]
func (h *Handler) PutSettingsHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	next := h.settings.Snapshot()
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, traceIdOf(r.Context()), "Bad Request")
		return
	}
	applied, err := h.settings.Replace(r.Context(), next)
	if err != nil {
		message := "Invalid settings"
		var re *ragErrors.Error
		if errors.As(err, &re) && re.Err != nil {
			message = re.Err.Error()
		}
		WriteErrorResponse(w, ragErrors.HTTPStatus(err), traceIdOf(r.Context()), message)
		return
	}
	writeJsonResponse(w, http.StatusOK, applied)
}

// ResetSettingsHandler godoc
// @Summary      Restore the startup settings
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  config.Settings
// @Router       /settings/reset [post]
func (h *Handler) ResetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, h.settings.Reset(r.Context()))
}

// GetLogsHandler godoc
// @Summary      Recent pipeline events
// @Tags         Observability
// @Produce      json
// @Param        limit  query     int  false  "Newest events to return"  default(100)
// @Success      200  {array}   observability.Event
// @Failure      400  {object}  api.ErrorResponse
// @Router       /logs [get]
func (h *Handler) GetLogsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteErrorResponse(w, http.StatusBadRequest, traceIdOf(r.Context()), "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeJsonResponse(w, http.StatusOK, h.events.Recent(limit))
}

// StreamLogsHandler godoc
// @Summary      Live pipeline events
// @Description  Server sent events, one "log" event per pipeline event. Slow readers miss events.
// @Tags         Observability
// @Produce      text/event-stream
// @Success      200  {object}  observability.Event
// @Router       /logs/stream [get]
func (h *Handler) StreamLogsHandler(w http.ResponseWriter, r *http.Request) {
	events, cancel := h.events.Subscribe()
	defer cancel()

	stream := newSSEWriter(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := stream.send("log", e); err != nil {
				logAH.WithTrace(r.Context()).Debug("log stream closed", "error", err)
				return
			}
		}
	}
}

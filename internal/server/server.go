package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/akolanti/ragstream/internal/adapter/utils"
	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/handlers"
	"github.com/akolanti/ragstream/internal/middleware"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// NewRouter mounts every route. Model backed routes are rate limited per client IP.
func NewRouter(h *handlers.Handler, mcpHandler http.Handler) *chi.Mux {
	r := utils.NewRouter()

	r.Router.Get("/health", h.GetHandler)

	r.Router.Post("/chat", middleware.WrapLimited(h.ChatHandler))
	r.Router.Post("/ingest", middleware.Wrap(h.PostIngestHandler))
	r.Router.Get("/status/{id}", middleware.Wrap(h.GetStatusHandler))

	r.Router.Get("/documents/count", middleware.Wrap(h.GetDocumentCountHandler))
	r.Router.Delete("/documents", middleware.Wrap(h.DeleteDocumentsHandler))
	r.Router.Get("/cache/count", middleware.Wrap(h.GetCacheCountHandler))
	r.Router.Delete("/cache", middleware.Wrap(h.DeleteCacheHandler))

	r.Router.Get("/settings", middleware.Wrap(h.GetSettingsHandler))
	r.Router.Put("/settings", middleware.Wrap(h.PutSettingsHandler))
	r.Router.Post("/settings/reset", middleware.Wrap(h.ResetSettingsHandler))

	r.Router.Get("/logs", middleware.Wrap(h.GetLogsHandler))
	r.Router.Get("/logs/stream", middleware.Wrap(h.StreamLogsHandler))

	if mcpHandler != nil {
		r.Router.Handle("/mcp", middleware.WrapHandler(withoutWriteDeadline(mcpHandler)))
	}
	return r.Router
}

// withoutWriteDeadline lets long tool calls outlive the server write timeout.
func withoutWriteDeadline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			_logger.Warn("could not clear write deadline", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

func CreateServer(listenAddr string, handler http.Handler) {
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}

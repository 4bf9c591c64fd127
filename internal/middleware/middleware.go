package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/ragstream/internal/metrics"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var authToken string

// Init sets the bearer token every wrapped route requires. An empty token turns authentication off.
func Init(token string) {
	authToken = token
	if token == "" {
		logger_i.NewLogger("middleware").Warn("No AUTH_TOKEN configured, requests are not authenticated")
	}
}

// Wrap injects a trace id, authenticates, and records the response status.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, false)
}

// WrapLimited is Wrap plus the per IP rate limit, used for the routes that call the model provider.
func WrapLimited(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, true)
}

// WrapHandler adapts a plain http.Handler such as the MCP endpoint.
func WrapHandler(next http.Handler) http.HandlerFunc {
	return wrap(next.ServeHTTP, true)
}

func wrap(next http.HandlerFunc, limited bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := metrics.NewHttpStatusRecorder(w) //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec}, limited)

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(routeLabel(r), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

// routeLabel prefers the chi pattern so ids in the path don't explode the label set.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func processRequest(re requestResponseStruct, limited bool) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	re = authenticate(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re //stop if auth fails
	}
	if limited {
		re = rateLimiter(re)
		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return re //stop here if rate limit fails
		}
	}
	return re
}

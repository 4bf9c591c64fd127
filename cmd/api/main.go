// @title           ragstream API
// @version         1.0
// @description     Retrieval augmented chat over your own documents, streamed as server sent events
// @termsOfService  http://swagger.io/terms/

// @contact.name    ragstream maintainers

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/ragstream/internal/config"
	"github.com/akolanti/ragstream/internal/customHttpClient"
	jobmodel "github.com/akolanti/ragstream/internal/domain/jobModel"
	"github.com/akolanti/ragstream/internal/handlers"
	"github.com/akolanti/ragstream/internal/job"
	"github.com/akolanti/ragstream/internal/mcpServer"
	"github.com/akolanti/ragstream/internal/middleware"
	"github.com/akolanti/ragstream/internal/observability"
	"github.com/akolanti/ragstream/internal/rag"
	"github.com/akolanti/ragstream/internal/rag/retrieval"
	"github.com/akolanti/ragstream/internal/rag/semanticCache"
	"github.com/akolanti/ragstream/internal/server"
	"github.com/akolanti/ragstream/internal/settings"
	"github.com/akolanti/ragstream/internal/worker"
	"github.com/akolanti/ragstream/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	var logger = logger_i.NewLogger("main")

	env, err := config.LoadEnv()
	if err != nil {
		logger.Error("Invalid environment", "error", err)
		os.Exit(1)
	}
	logger_i.Init(env)

	//config
	flag.StringVar(&listenAddr, "listen-addr", env.ListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	events := observability.NewHub(serviceContext, config.EventBufferSize, config.EventSubscriberBuffer)

	baseSettings, err := config.LoadSettingsFile(env.SettingsFile)
	if err != nil {
		logger.Error("Settings file rejected", "file", env.SettingsFile, "error", err)
		os.Exit(1)
	}
	baseSettings = withProviderModel(baseSettings, env.GenerationProvider)

	//init job service and stores
	stores := initStores(serviceContext, env)
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          stores.jobs,
		MessageStore:      stores.messages,
	}
	logger.Info("Starting job service")
	jobService := job.InitJobService(serviceConfig)

	settingsStore, err := settings.NewStore(serviceContext, baseSettings, stores.settings, events)
	if err != nil {
		logger.Error("Could not start settings store", "error", err)
		os.Exit(1)
	}

	indexes, err := initIndexes(serviceContext, env)
	if err != nil {
		logger.Error("Vector store failed to initialize. Shutting down.", "backend", env.VectorBackend, "error", err)
		return
	}
	defer indexes.close()

	embeddingService, err := initEmbedder(serviceContext, env)
	if err != nil {
		logger.Error("Embedding provider failed to initialize. Shutting down.", "provider", env.EmbeddingProvider, "error", err)
		return
	}
	llmProvider, err := initProvider(serviceContext, env)
	if err != nil {
		logger.Error("Generation provider failed to initialize. Shutting down.", "provider", env.GenerationProvider, "error", err)
		return
	}

	passages := retrieval.NewPassageStore(indexes.documents, env.EmbeddingDimension)
	cache := semanticCache.New(indexes.cache, embeddingService, events)
	if err := ensureIndexes(serviceContext, passages, cache); err != nil {
		logger.Error("Could not prepare vector indexes. Shutting down.", "error", err)
		return
	}
	ragService := rag.NewService(embeddingService, passages, cache, llmProvider, events)

	//init worker pool
	worker.InitServices(jobService, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//http surface
	middleware.Init(env.AuthToken)
	handler := handlers.New(handlers.Deps{
		Rag:       ragService,
		Jobs:      jobService,
		Messages:  stores.messages,
		Settings:  settingsStore,
		Events:    events,
		UploadDir: config.UploadDir,
	})
	mcpHandler := mcpServer.NewHandler(mcpServer.NewServer(ragService, settingsStore))
	router := server.NewRouter(handler, mcpHandler)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices: func() {
			closeExternalServices()
			customHttpClient.CloseIdle()
		},
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, router)

	<-stopExecution
	logger.Info("Server stopped")
}

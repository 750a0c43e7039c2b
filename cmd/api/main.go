// @title           Document RAG API
// @version         1.0
// @description     Upload documents, ask questions about them and get answers with attributed sources
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/docrag/internal/bootstrap"
	"github.com/akolanti/docrag/internal/config"
	jobmodel "github.com/akolanti/docrag/internal/domain/jobModel"
	"github.com/akolanti/docrag/internal/handlers"
	"github.com/akolanti/docrag/internal/job"
	"github.com/akolanti/docrag/internal/middleware"
	"github.com/akolanti/docrag/internal/server"
	"github.com/akolanti/docrag/internal/worker"
	"github.com/akolanti/docrag/pkg/logger_i"
)

var (
	configFile        string
	listenAddr        string
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	flag.StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config")
	flag.Parse()

	settings, err := config.Load(configFile)
	if err != nil {
		logger_i.Init(false)
		logger_i.NewLogger("main").Error("Could not load settings", "error", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		settings.ListenAddr = listenAddr
	}

	logger_i.Init(settings.IsProd)
	var logger = logger_i.NewLogger("main")

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	app, err := bootstrap.Build(serviceContext, settings)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Error closing services", "error", err)
		}
	}()

	//init job service and job store
	logger.Info("Starting job service")
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
		JobStore:          app.Stores.JobStore,
		MessageStore:      app.Stores.MessageStore,
		DocumentStore:     app.Stores.DocumentStore,
	})

	if settings.NoAuthBypass {
		logger.Warn("Authentication is disabled")
	}
	middleware.Init(middleware.Options{
		AuthToken:     settings.AuthToken,
		NoAuthBypass:  settings.NoAuthBypass,
		RatePerSecond: settings.RateLimitPerSecond,
		Burst:         settings.RateLimitBurst,
		LimiterIdle:   settings.RateLimiterIdle,
	})
	handlers.InitJobHandler(service, app.Rag, settings.UploadDir)

	//init worker pool
	worker.InitServices(service, app.Rag)
	worker.SetTimeouts(worker.Timeouts{Ingest: settings.IngestTimeout, Query: settings.QueryTimeout})
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(settings.ListenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cv-intake-go/internal/api/handler"
	"cv-intake-go/internal/api/router"
	"cv-intake-go/internal/builder"
	"cv-intake-go/internal/config"
	applogger "cv-intake-go/internal/logger"
	"cv-intake-go/internal/outbox"
	"cv-intake-go/internal/processor"
	"cv-intake-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"
	serviceName = "cv-intake-go"
)

func main() {
	var configPath string
	var writeSampleConfig string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.StringVar(&writeSampleConfig, "write-sample-config", "", "Write a sample config file to the given path and exit")
	pflag.Parse()

	if writeSampleConfig != "" {
		if err := config.CreateSampleConfig(writeSampleConfig); err != nil {
			log.Fatalf("failed to write sample config: %v", err)
		}
		log.Printf("sample config written to %s", writeSampleConfig)
		return
	}

	// credentials for local runs come from .env when present
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	initLogger(cfg)
	glog.Infof("%s %s starting", serviceName, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("failed to initialize storage: %v", err)
	}
	defer storageManager.Close()
	glog.Info("storage services initialized")

	if storageManager.RabbitMQ != nil {
		if err := storageManager.RabbitMQ.SetupIntakeTopology(); err != nil {
			glog.Fatalf("failed to set up message topology: %v", err)
		}
		glog.Info("message topology ready")
	}

	cvService, err := processor.NewCVService(cfg, storageManager, &applogger.Logger)
	if err != nil {
		glog.Fatalf("failed to initialize CV service: %v", err)
	}
	glog.Info("CV service initialized")

	// outbox relay delivers cv.uploaded and cv.analyzed events written by
	// the handler and the consumer
	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		relayLogger := log.New(applogger.Logger, "[MessageRelay] ", log.LstdFlags|log.Lshortfile)
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, relayLogger)
		messageRelay.Start()
		glog.Info("outbox relay started")
	}

	var stopConsumer chan<- struct{}
	if storageManager.RabbitMQ != nil {
		stopConsumer = startUploadConsumer(ctx, cfg, storageManager, cvService)
	}

	cvHandler := handler.NewCVHandler(cfg, storageManager, cvService)
	builderHandler := handler.NewBuilderHandler(builder.New(storageManager.Sessions, &applogger.Logger))

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		glog.CtxInfof(c, "%s %s -> %d (%s)",
			string(ctx.Method()), string(ctx.Path()),
			ctx.Response.StatusCode(), time.Since(start))
	})

	router.RegisterRoutes(h, cfg, cvHandler, builderHandler)
	glog.Infof("HTTP server listening on %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("shutdown signal received")

	if stopConsumer != nil {
		close(stopConsumer)
	}
	if messageRelay != nil {
		messageRelay.Stop()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("server shutdown failed: %v", err)
	}
	glog.Info("shutdown complete")
}

// startUploadConsumer consumes cv.uploaded events and runs the analysis
// pipeline for each. Failed messages are requeued by the broker.
func startUploadConsumer(ctx context.Context, cfg *config.Config,
	storageManager *storage.Storage, cvService processor.CVService) chan<- struct{} {

	prefetch := cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 10
	}

	done, err := storageManager.RabbitMQ.StartConsumer(cfg.RabbitMQ.RawCVQueue, prefetch, func(data []byte) bool {
		var message storage.CVUploadedMessage
		if err := json.Unmarshal(data, &message); err != nil {
			applogger.Error().Err(err).Msg("failed to decode uploaded-CV message")
			// a malformed message never becomes valid, do not requeue
			return true
		}

		if err := cvService.ProcessUploadedCV(ctx, message); err != nil {
			applogger.Error().
				Err(err).
				Str("submission_uuid", message.SubmissionUUID).
				Msg("failed to process uploaded CV")
			return false
		}
		return true
	})
	if err != nil {
		glog.Fatalf("failed to start upload consumer: %v", err)
	}

	glog.Infof("upload consumer started on queue %s (prefetch %d)", cfg.RabbitMQ.RawCVQueue, prefetch)
	return done
}

// initLogger configures zerolog globally and routes hertz's hlog through it.
func initLogger(cfg *config.Config) {
	applogger.Init(applogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	glog.SetLogger(hertzzerolog.From(applogger.Logger))
	switch cfg.Logger.Level {
	case "debug":
		glog.SetLevel(glog.LevelDebug)
	case "warn":
		glog.SetLevel(glog.LevelWarn)
	case "error":
		glog.SetLevel(glog.LevelError)
	default:
		glog.SetLevel(glog.LevelInfo)
	}
}

package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/patient-intake/internal/async"
	"github.com/joseph-ayodele/patient-intake/internal/cache"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/export"
	"github.com/joseph-ayodele/patient-intake/internal/intake"
	"github.com/joseph-ayodele/patient-intake/internal/llm"
	"github.com/joseph-ayodele/patient-intake/internal/llm/langchain"
	"github.com/joseph-ayodele/patient-intake/internal/ocr"
	processor "github.com/joseph-ayodele/patient-intake/internal/pipeline"
	"github.com/joseph-ayodele/patient-intake/internal/pipeline/textextract"
	"github.com/joseph-ayodele/patient-intake/internal/ratelimit"
	"github.com/joseph-ayodele/patient-intake/internal/repository"
	"github.com/joseph-ayodele/patient-intake/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := db.Migrate(ctx, logger); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	if err := db.HealthCheck(ctx, 5*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	ordersRepo := repository.NewOrderRepository(db, logger)
	jobsRepo := repository.NewJobRepository(db, logger)
	activityRepo := repository.NewActivityLogRepository(db, logger)

	engine := ocr.NewEngine(ocr.Config{
		Pdftotext:   cfg.OCR.Pdftotext,
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.TesseractLang,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         cfg.OCR.PSM,
		DPI:         cfg.OCR.DPI,
		VisionDPI:   cfg.OCR.VisionDPI,
		MaxPages:    cfg.OCR.MaxPages,
	}, logger)
	cascade := textextract.NewCascade(engine, logger)

	var reasoner llm.Reasoner
	if cfg.LLM.Enabled {
		limiter := ratelimit.NewLimiter(ratelimit.Limits{
			RequestsPerMinute: cfg.LLM.RequestsPerMinute,
			TokensPerMinute:   cfg.LLM.TokensPerMinute,
			RequestsPerDay:    cfg.LLM.RequestsPerDay,
			TokensPerDay:      cfg.LLM.TokensPerDay,
		}, logger)
		client, cerr := langchain.NewClient(langchain.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		}, limiter, logger)
		if cerr != nil {
			logger.Error("failed to build reasoning client", "error", cerr)
			os.Exit(1)
		}
		reasoner = client
	}

	proc := processor.NewProcessor(cascade, engine, engine, reasoner, cfg.LLM.Enabled, logger)

	var results *cache.Cache[*processor.ProcessingResult]
	if cfg.Cache.Enabled {
		results = cache.New[*processor.ProcessingResult](cfg.Cache.TTL, logger)
	}

	svc := intake.NewService(proc, ordersRepo, jobsRepo, results, cfg.LLM.Model, logger)

	queue := async.NewProcessorQueue(svc.HandleJob, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	app := server.New(server.Deps{
		Intake:    svc,
		Processor: proc,
		Orders:    ordersRepo,
		Jobs:      jobsRepo,
		Activity:  activityRepo,
		Exporter:  export.NewService(ordersRepo, logger),
		Queue:     queue,
		BodyLimit: cfg.Server.BodyLimit,
		Logger:    logger,
	})

	var grpcServer *grpc.Server
	if cfg.Server.HealthAddr != "" {
		lis, lerr := net.Listen("tcp", cfg.Server.HealthAddr)
		if lerr != nil {
			logger.Error("failed to listen on health address", "addr", cfg.Server.HealthAddr, "error", lerr)
			os.Exit(1)
		}
		grpcServer = grpc.NewServer()
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		go func() {
			if serr := grpcServer.Serve(lis); serr != nil {
				slog.Error("gRPC health serve error", "error", serr)
			}
		}()
		logger.Info("gRPC health endpoint listening", "addr", cfg.Server.HealthAddr)
	}

	go func() {
		logger.Info("patient intake API listening", "addr", cfg.Server.HTTPAddr, "ai_enabled", cfg.LLM.Enabled)
		if serr := app.Listen(cfg.Server.HTTPAddr); serr != nil {
			slog.Error("http serve error", "error", serr)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := app.ShutdownWithContext(shutdownCtx); serr != nil {
		logger.Error("http shutdown error", "error", serr)
	}
	// let in-flight jobs finish before the DB goes away
	queue.Shutdown(shutdownCtx)
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	logger.Info("shutdown complete")
}

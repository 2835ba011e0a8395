package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/async"
	"github.com/joseph-ayodele/patient-intake/internal/cache"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/export"
	"github.com/joseph-ayodele/patient-intake/internal/ingest"
	"github.com/joseph-ayodele/patient-intake/internal/intake"
	"github.com/joseph-ayodele/patient-intake/internal/llm"
	"github.com/joseph-ayodele/patient-intake/internal/llm/langchain"
	"github.com/joseph-ayodele/patient-intake/internal/ocr"
	processor "github.com/joseph-ayodele/patient-intake/internal/pipeline"
	"github.com/joseph-ayodele/patient-intake/internal/pipeline/textextract"
	"github.com/joseph-ayodele/patient-intake/internal/ratelimit"
	"github.com/joseph-ayodele/patient-intake/internal/repository"
)

func printError(msg string, err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %s: %v\n", msg, err)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %s\n", msg)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "directory of documents to ingest (required)")
		watch   = flag.Bool("watch", false, "keep running and ingest files as they appear")
		useAI   = flag.Bool("use-ai", true, "run AI validation on extracted fields")
		force   = flag.Bool("force", false, "re-process documents already seen (skips content-hash dedupe)")
		inmem   = flag.Bool("inmem", false, "use an in-memory database (discarded on exit)")
		out     = flag.String("out", "", "write an XLSX export of orders to this path when done")
		fromStr = flag.String("from", "", "export window start, YYYY-MM-DD")
		toStr   = flag.String("to", "", "export window end, YYYY-MM-DD")
	)
	flag.Parse()

	if *dir == "" {
		printError("-dir is required", nil)
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.DSN = ""
		cfg.Database.SQLitePath = ":memory:"
	}
	if err := cfg.Validate(); err != nil {
		printError("invalid configuration", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		printError("open database", err)
		os.Exit(1)
	}
	defer db.Close(logger)
	if err := db.Migrate(ctx, logger); err != nil {
		printError("migrate database", err)
		os.Exit(1)
	}

	ordersRepo := repository.NewOrderRepository(db, logger)
	jobsRepo := repository.NewJobRepository(db, logger)

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
	if cfg.LLM.Enabled && *useAI {
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
			printError("build reasoning client", cerr)
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

	ingestor := ingest.NewFSIngestor(svc, queue, *useAI, logger)
	ingestor.Force = *force

	start := time.Now()
	ingested, stats, err := ingestor.IngestDirectory(ctx, *dir, true)
	if err != nil {
		printError("ingest directory", err)
		os.Exit(1)
	}

	jobIDs := make([]string, 0, len(ingested))
	for _, r := range ingested {
		if r.Err == "" && !r.Deduplicated {
			jobIDs = append(jobIDs, r.JobID)
		}
	}

	if *watch {
		evCh, errCh, werr := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:    []string{*dir},
			Debounce: 500 * time.Millisecond,
		})
		if werr != nil {
			printError("start watcher", werr)
			os.Exit(1)
		}
		logger.Info("watching for new documents", "dir", *dir)

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case path, ok := <-evCh:
				if !ok {
					break loop
				}
				r, ierr := ingestor.IngestPath(ctx, path)
				stats.Scanned++
				stats.Matched++
				switch {
				case ierr != nil:
					stats.Failed++
					logger.Error("ingest failed", "path", path, "error", ierr)
				case r.Deduplicated:
					stats.Deduplicated++
				default:
					stats.Succeeded++
					jobIDs = append(jobIDs, r.JobID)
				}
			case werr, ok := <-errCh:
				if ok && werr != nil {
					logger.Error("watcher error", "error", werr)
				}
			}
		}
	}

	// drain the queue so every enqueued document is processed before we
	// tally and export
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	queue.Shutdown(drainCtx)
	cancel()

	var done, failed int
	for _, id := range jobIDs {
		jid, perr := uuid.Parse(id)
		if perr != nil {
			continue
		}
		job, jerr := jobsRepo.GetByID(context.Background(), jid)
		if jerr != nil {
			continue
		}
		switch job.Status {
		case constants.JobStatusDone:
			done++
		case constants.JobStatusFailed:
			failed++
		}
	}

	if *out != "" {
		from, to, perr := exportWindow(*fromStr, *toStr)
		if perr != nil {
			printError("parse export window", perr)
			os.Exit(1)
		}
		exporter := export.NewService(ordersRepo, logger)
		xlsx, xerr := exporter.ExportOrdersXLSX(context.Background(), from, to)
		if xerr != nil {
			printError("export orders", xerr)
			os.Exit(1)
		}
		if werr := os.WriteFile(*out, xlsx, 0o644); werr != nil {
			printError("write export file", werr)
			os.Exit(1)
		}
	}

	fmt.Printf("\nBatch intake complete!\n")
	fmt.Printf("- Directory:    %s\n", *dir)
	fmt.Printf("- Scanned:      %d\n", stats.Scanned)
	fmt.Printf("- Enqueued:     %d\n", stats.Succeeded)
	fmt.Printf("- Deduplicated: %d\n", stats.Deduplicated)
	fmt.Printf("- Processed:    %d\n", done)
	fmt.Printf("- Failed:       %d\n", failed+int(stats.Failed))
	fmt.Printf("- Elapsed:      %s\n", time.Since(start).Round(time.Millisecond))
	if *out != "" {
		fmt.Printf("- Export:       %s\n", *out)
	}
}

func exportWindow(fromStr, toStr string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid -from %q: %w", fromStr, err)
		}
		from = &t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid -to %q: %w", toStr, err)
		}
		to = &t
	}
	return from, to, nil
}

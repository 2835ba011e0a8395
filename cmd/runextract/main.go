package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/llm"
	"github.com/joseph-ayodele/patient-intake/internal/llm/langchain"
	"github.com/joseph-ayodele/patient-intake/internal/ocr"
	processor "github.com/joseph-ayodele/patient-intake/internal/pipeline"
	"github.com/joseph-ayodele/patient-intake/internal/pipeline/textextract"
	"github.com/joseph-ayodele/patient-intake/internal/ratelimit"
)

// runextract runs the extraction pipeline against a single file and prints
// the result as JSON. No database involved; config comes from the
// environment the same way the server reads it.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runextract <document.pdf|scan.png>")
		os.Exit(2)
	}
	path := os.Args[1]

	_ = godotenv.Load()
	cfg := common.LoadConfig()

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

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
	if cfg.LLM.Enabled && cfg.LLM.APIKey != "" {
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
			logger.Error("build reasoning client", "error", cerr)
			os.Exit(1)
		}
		reasoner = client
	}

	proc := processor.NewProcessor(cascade, engine, engine, reasoner, cfg.LLM.Enabled, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	filename := filepath.Base(path)
	start := time.Now()

	var result *processor.ProcessingResult
	switch constants.MapExtToFormat(filepath.Ext(path)) {
	case constants.PDF:
		result, err = proc.Process(ctx, content, filename, cfg.LLM.Enabled)
	case constants.IMAGE:
		result, err = proc.ProcessImage(ctx, content, filename, cfg.LLM.Enabled)
	default:
		logger.Error("unsupported file extension", "path", path)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("extraction failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	logger.Info("extraction finished",
		"method", result.ExtractionMethod,
		"confidence", result.ConfidenceScore,
		"success", result.Success,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
